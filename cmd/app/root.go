package main

import (
	"io"
	"os"

	"github-repo-analyzer/internal/config"
	"github-repo-analyzer/internal/output"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app 所有子命令共享的运行时状态，在 PersistentPreRunE 中初始化
type app struct {
	cfgFile string
	verbose bool
	jsonOut bool
	noColor bool

	cfg      *config.Config
	logger   *logrus.Logger
	renderer *output.Renderer
	out      io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:   "analyzer",
		Short: "GitHub 仓库健康度评分",
		Long: `analyzer 为 GitHub 仓库计算 0-100 的健康分 (人气、维护、社区、文档四项)，
可选地让 Gemini 借助工具写一份文字分析，并支持 HTTP 服务、定时巡检和历史查询。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "配置文件路径 (默认 ./analyzer.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出 debug 日志")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "以 JSON 输出结果")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "关闭彩色输出")

	root.AddCommand(
		newAnalyzeCmd(a),
		newScoreCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, a.verbose, os.Stderr)
	a.renderer = output.NewRenderer(output.ColorEnabled(a.out, a.noColor))
	return nil
}

// newLogger 终端上用文本格式，重定向或 log.format=json 时用 JSON
func newLogger(c config.Log, verbose bool, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	jsonFormat := c.Format == "json"
	if c.Format == "" {
		jsonFormat = !isTerminal(w)
	}
	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if err != nil && c.Level != "" {
		logger.Warnf("⚠️ 未知的日志级别 %q，使用 info", c.Level)
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
