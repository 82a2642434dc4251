package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/scoring"

	"github.com/sirupsen/logrus"
)

const analysisExcerptLength = 500

type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *logrus.Logger
	retryDelay time.Duration
}

func NewNotifier(webhook string, logger *logrus.Logger) *Notifier {
	if webhook == "" {
		logger.Warn("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{
		webhookURL: webhook,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
	}
}

// feishuResponse 飞书即使出错也可能返回 200，需要看 code
type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Notify 发送飞书卡片消息 (Schema 2.0)
func (n *Notifier) Notify(ctx context.Context, rec *domain.AnalysisRecord) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}
	if rec == nil {
		return common.NewError(common.ErrCodeInvalidInput, "record is nil")
	}

	body, err := json.Marshal(buildCard(rec))
	if err != nil {
		return common.WrapError(common.ErrCodeInternal, "构造卡片失败", err)
	}

	err = common.Do(ctx, func() error {
		return n.post(ctx, body)
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(n.retryDelay),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	n.logger.WithFields(logrus.Fields{"repo": rec.FullName, "grade": rec.Grade}).Info("📨 飞书推送成功")
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return common.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var result feishuResponse
	if json.Unmarshal(raw, &result) == nil && result.Code != 0 {
		// 签名、关键词等业务错误重试也没用
		return common.Permanent(fmt.Errorf("飞书 API 报错: code=%d msg=%s", result.Code, result.Msg))
	}
	return nil
}

// buildCard 构造 Schema 2.0 卡片
func buildCard(rec *domain.AnalysisRecord) map[string]interface{} {
	title := fmt.Sprintf("%s %s 健康评分 %d/100 (%s)", rec.Emoji, rec.FullName, rec.Total, rec.Grade)

	mdContent := fmt.Sprintf(`**⭐ Stars:** %d  |  **🍴 Forks:** %d  |  **语言:** %s
**👥 贡献者:** %d  |  **🐛 Open Issues:** %d

**📊 分项得分:**
- 人气 Popularity: %d/%d
- 维护 Maintenance: %d/%d
- 社区 Community: %d/%d
- 文档 Documentation: %d/%d

%s
`,
		rec.Stars, rec.Forks, rec.Language,
		rec.Contributors, rec.OpenIssues,
		rec.Popularity, domain.MaxPopularity,
		rec.Maintenance, domain.MaxMaintenance,
		rec.Community, domain.MaxCommunity,
		rec.Documentation, domain.MaxDocumentation,
		scoring.Interpretation(rec.Total))

	if excerpt := excerpt(rec.Analysis, analysisExcerptLength); excerpt != "" {
		mdContent += "\n**🤖 AI 分析摘要:**\n" + excerpt + "\n"
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": HeaderTemplate(rec.Total),
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "🔗 查看仓库",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": rec.URL,
							},
						},
					},
				},
			},
		},
	}
}

// HeaderTemplate 按分数段选卡片颜色，与终端输出的配色一致
func HeaderTemplate(total int) string {
	switch {
	case total >= 80:
		return "green"
	case total >= 60:
		return "yellow"
	case total >= 40:
		return "orange"
	default:
		return "red"
	}
}

func excerpt(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
