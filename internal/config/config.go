package config

import (
	"errors"
	"os"
	"strings"

	"github-repo-analyzer/internal/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile 未指定 --config 时尝试读取的文件
const DefaultConfigFile = "analyzer.yaml"

// Config 应用配置，优先级：环境变量 > 配置文件 > 默认值
type Config struct {
	GitHub   GitHub   `mapstructure:"github"`
	Gemini   Gemini   `mapstructure:"gemini"`
	Database Database `mapstructure:"database"`
	Feishu   Feishu   `mapstructure:"feishu"`
	Server   Server   `mapstructure:"server"`
	Watch    Watch    `mapstructure:"watch"`
	Log      Log      `mapstructure:"log"`
}

type GitHub struct {
	Token                string `mapstructure:"token"`
	API                  string `mapstructure:"api"` // rest | graphql
	ContributorsPageSize int    `mapstructure:"contributors_page_size"`
}

type Gemini struct {
	APIKey        string  `mapstructure:"api_key"`
	Model         string  `mapstructure:"model"`
	Temperature   float32 `mapstructure:"temperature"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

type Database struct {
	DSN string `mapstructure:"dsn"` // 为空表示不持久化
}

type Feishu struct {
	Webhook string `mapstructure:"webhook"`
}

type Server struct {
	Port int `mapstructure:"port"`
}

type Watch struct {
	Repos       []string `mapstructure:"repos"`
	Schedule    string   `mapstructure:"schedule"`
	Concurrency int      `mapstructure:"concurrency"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json，为空时按终端自动选择
}

// envAliases 这些密钥习惯上用不带前缀的环境变量名
var envAliases = map[string]string{
	"github.token":   "GITHUB_TOKEN",
	"gemini.api_key": "GEMINI_API_KEY",
	"database.dsn":   "DATABASE_DSN",
	"feishu.webhook": "FEISHU_WEBHOOK",
}

// Load 读取 .env、配置文件和环境变量
// cfgFile 为空时尝试当前目录的 analyzer.yaml，文件不存在不算错误
func Load(cfgFile string) (*Config, error) {
	// .env 不存在是常态
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "绑定环境变量失败", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigFile(DefaultConfigFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, common.WrapError(common.ErrCodeConfig, "读取配置文件失败", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, common.WrapError(common.ErrCodeConfig, "解析配置失败", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.api", "rest")
	v.SetDefault("github.contributors_page_size", 100)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.max_iterations", 7)
	v.SetDefault("database.dsn", "")
	v.SetDefault("feishu.webhook", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("watch.repos", []string{})
	v.SetDefault("watch.schedule", "@every 6h")
	v.SetDefault("watch.concurrency", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// Validate 检查枚举值和取值范围
func (c *Config) Validate() error {
	switch c.GitHub.API {
	case "rest", "graphql":
	default:
		return common.NewError(common.ErrCodeConfig, "github.api 只能是 rest 或 graphql: "+c.GitHub.API)
	}
	if c.GitHub.ContributorsPageSize < 1 || c.GitHub.ContributorsPageSize > 100 {
		return common.NewError(common.ErrCodeConfig, "github.contributors_page_size 必须在 1-100 之间")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return common.NewError(common.ErrCodeConfig, "server.port 不合法")
	}
	if c.Watch.Concurrency < 1 {
		return common.NewError(common.ErrCodeConfig, "watch.concurrency 必须大于 0")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return common.NewError(common.ErrCodeConfig, "log.format 只能是 text 或 json: "+c.Log.Format)
	}
	return nil
}
