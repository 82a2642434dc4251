package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/port"
	"github-repo-analyzer/internal/scoring"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	DefaultModel         = "gemini-2.5-flash"
	DefaultTemperature   = 0.3
	DefaultMaxIterations = 7 // 5 个工具 + 1 次分析 + 1 次余量

	stepThinking       = "The AI is thinking..."
	noAnalysisFallback = "No analysis available"
)

// chatSession 是 *genai.ChatSession 用到的那一个方法，测试里可以替换成脚本
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Narrator 实现 port.Narrator：让 Gemini 通过 function calling 调用仓库工具，
// 然后写出 Markdown 分析
type Narrator struct {
	client        *genai.Client
	inspector     port.RepoInspector
	logger        *logrus.Logger
	modelName     string
	temperature   float32
	maxIterations int
	newSession    func() chatSession
}

// Option 配置 Narrator
type Option func(*Narrator)

func WithModel(name string) Option {
	return func(n *Narrator) {
		if name != "" {
			n.modelName = name
		}
	}
}

func WithTemperature(t float32) Option {
	return func(n *Narrator) {
		if t >= 0 {
			n.temperature = t
		}
	}
}

// WithMaxIterations 限制带工具调用的模型轮数，达到上限后强制输出分析
func WithMaxIterations(max int) Option {
	return func(n *Narrator) {
		if max > 0 {
			n.maxIterations = max
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(n *Narrator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNarrator 创建 Gemini 客户端并注册五个工具声明
func NewNarrator(ctx context.Context, apiKey string, inspector port.RepoInspector, opts ...Option) (*Narrator, error) {
	if apiKey == "" {
		return nil, common.NewError(common.ErrCodeConfig, "GEMINI_API_KEY is not configured")
	}

	n := &Narrator{
		inspector:     inspector,
		logger:        logrus.StandardLogger(),
		modelName:     DefaultModel,
		temperature:   DefaultTemperature,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(n)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "create gemini client", err)
	}

	model := client.GenerativeModel(n.modelName)
	model.SetTemperature(n.temperature)
	model.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations()}}

	n.client = client
	n.newSession = func() chatSession { return model.StartChat() }
	return n, nil
}

// Close 释放底层客户端
func (n *Narrator) Close() error {
	if n.client == nil {
		return nil
	}
	return n.client.Close()
}

// Narrate 驱动一次工具调用循环，返回最终的 Markdown 分析
func (n *Narrator) Narrate(ctx context.Context, ref domain.RepoRef, breakdown domain.ScoreBreakdown, emit domain.EventSink) (string, error) {
	if n.newSession == nil {
		return "", common.NewError(common.ErrCodeConfig, "GEMINI_API_KEY is not configured")
	}
	if emit == nil {
		emit = func(domain.Event) {}
	}

	log := n.logger.WithField("repo", ref.FullName())
	session := n.newSession()
	parts := []genai.Part{genai.Text(buildPrompt(ref, breakdown))}

	for iteration := 1; iteration <= n.maxIterations; iteration++ {
		emit(domain.NewStepEvent(stepThinking))
		log.WithField("iteration", iteration).Debug("🤖 LLM 思考中")

		resp, err := session.SendMessage(ctx, parts...)
		if err != nil {
			return "", common.WrapError(common.ErrCodeAIProcessing, "gemini request failed", err)
		}

		texts, calls := splitParts(resp)
		if len(calls) == 0 {
			log.WithField("iteration", iteration).Info("✅ Agent 完成分析")
			return cleanAnalysis(strings.Join(texts, "")), nil
		}

		for _, text := range texts {
			if thought := strings.TrimSpace(text); thought != "" {
				emit(domain.NewThoughtEvent(thought))
			}
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, n.runTool(ctx, ref, call, emit))
		}
	}

	// 达到上限：回传最后一批工具结果，要求模型直接给出分析
	log.Warnf("⚠️ 达到最大轮数 %d，强制输出分析", n.maxIterations)
	emit(domain.NewStepEvent(stepThinking))
	parts = append(parts, genai.Text(forceFinalPrompt))
	resp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "gemini request failed", err)
	}
	texts, _ := splitParts(resp)
	return cleanAnalysis(strings.Join(texts, "")), nil
}

// runTool 执行一次函数调用并发出 step/action/observation 事件
// 工具失败不会中断分析，错误信息作为 observation 交给模型
func (n *Narrator) runTool(ctx context.Context, ref domain.RepoRef, call genai.FunctionCall, emit domain.EventSink) genai.Part {
	target := ref
	if owner, ok := call.Args["owner"].(string); ok && owner != "" {
		target.Owner = owner
	}
	if repo, ok := call.Args["repo"].(string); ok && repo != "" {
		target.Name = repo
	}

	input := call.Args
	if input == nil {
		input = map[string]any{}
	}

	emit(domain.NewStepEvent("Using tool: " + call.Name))
	emit(domain.NewActionEvent(call.Name, input))

	observation, err := n.callTool(ctx, call.Name, target)
	if err != nil {
		observation = fmt.Sprintf("%s: %s", errorPrefix(call.Name), common.MessageOf(err))
		n.logger.WithFields(logrus.Fields{"repo": target.FullName(), "tool": call.Name}).
			Warnf("⚠️ 工具调用失败: %v", err)
	}
	emit(domain.NewObservationEvent(observation))

	return genai.FunctionResponse{
		Name:     call.Name,
		Response: map[string]any{"content": observation},
	}
}

func (n *Narrator) callTool(ctx context.Context, name string, ref domain.RepoRef) (string, error) {
	switch name {
	case toolRepositoryInfo:
		info, err := n.inspector.GetRepositoryInfo(ctx, ref)
		if err != nil {
			return "", err
		}
		return toJSON(info, false)
	case toolReadme:
		return n.inspector.GetReadme(ctx, ref)
	case toolRecentActivity:
		activity, err := n.inspector.GetRecentActivity(ctx, ref)
		if err != nil {
			return "", err
		}
		return toJSON(activity, false)
	case toolTopContributors:
		contributors, err := n.inspector.GetTopContributors(ctx, ref)
		if err != nil {
			return "", err
		}
		return toJSON(contributors, false)
	case toolRepositoryMetrics:
		metrics, err := n.inspector.FetchMetrics(ctx, ref)
		if err != nil {
			return "", err
		}
		return toJSON(metrics, true)
	}
	return "", common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("unknown tool %q", name))
}

// splitParts 取第一个候选里的文本和函数调用
func splitParts(resp *genai.GenerateContentResponse) ([]string, []genai.FunctionCall) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	var texts []string
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			texts = append(texts, string(p))
		case genai.FunctionCall:
			calls = append(calls, p)
		case *genai.FunctionCall:
			if p != nil {
				calls = append(calls, *p)
			}
		}
	}
	return texts, calls
}

// cleanAnalysis 去掉模型有时包在最外层的 ```markdown 代码块
func cleanAnalysis(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") && len(text) > 6 {
		inner := strings.TrimSuffix(text[3:], "```")
		if nl := strings.Index(inner, "\n"); nl >= 0 && !strings.ContainsAny(inner[:nl], " #") {
			inner = inner[nl+1:]
		}
		text = strings.TrimSpace(inner)
	}
	if text == "" {
		return noAnalysisFallback
	}
	return text
}

func toJSON(v any, indent bool) (string, error) {
	var (
		raw []byte
		err error
	)
	if indent {
		raw, err = json.MarshalIndent(v, "", "  ")
	} else {
		raw, err = json.Marshal(v)
	}
	if err != nil {
		return "", common.WrapError(common.ErrCodeInternal, "encode tool result", err)
	}
	return string(raw), nil
}

func buildPrompt(ref domain.RepoRef, breakdown domain.ScoreBreakdown) string {
	return fmt.Sprintf(`Analyze the GitHub repository %s/%s.

**IMPORTANT**: First, use the get_repository_metrics tool to get all metrics, then use other tools if necessary.

Use the available tools and then provide a complete analysis in Markdown format with:
- Title: # 📊 Repository Analysis
- Sections: 🎯 Goal, ⭐ Popularity, 🔧 Maintenance, 💡 Features, 👥 Target Audience, 🏆 Contributors, 📝 Summary

The deterministic health score has already been computed from the same metrics. Stay consistent with it and do not invent a different score:
%s
Be concise and use emojis.`, ref.Owner, ref.Name, scoring.Report(breakdown))
}

const forceFinalPrompt = "You have reached the maximum number of tool calls. Do not call any more tools. Write the final Markdown analysis now using the information you already have."
