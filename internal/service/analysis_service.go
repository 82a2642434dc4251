package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/port"
	"github-repo-analyzer/internal/scoring"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	msgStarting      = "🔍 Starting analysis..."
	msgFetching      = "Fetching repository metrics..."
	msgCalculating   = "Calculating health score..."
	msgInitAgent     = "Initializing AI agent..."
	msgFinished      = "Analysis finished!"
	msgAnalyzeFailed = "Error analyzing the repository: "

	// MsgNoNarrator 没有配置 Gemini key 时返回给调用方的错误
	MsgNoNarrator = "GEMINI_API_KEY is not configured"

	// MsgNoStore 没有配置数据库时查询历史返回的错误
	MsgNoStore = "history storage is not configured"

	// MsgEmptyQuery 搜索关键词为空
	MsgEmptyQuery = "search query is empty"
)

// URLParser 把用户输入的仓库地址解析成 RepoRef
type URLParser func(raw string) (domain.RepoRef, error)

// AnalysisService 串起 拉取指标 -> 评分 -> LLM 解说 -> 存储 -> 推送
type AnalysisService struct {
	parse    URLParser
	source   port.MetricsSource
	scorer   port.Scorer
	narrator port.Narrator   // 可选
	store    port.Repository // 可选
	notifier port.Notifier   // 可选
	logger   *logrus.Logger
	nowFunc  func() time.Time
}

// NewAnalysisService 创建分析服务，narrator/store/notifier 传 nil 表示未配置
func NewAnalysisService(
	parse URLParser,
	source port.MetricsSource,
	scorer port.Scorer,
	narrator port.Narrator,
	store port.Repository,
	notifier port.Notifier,
	logger *logrus.Logger,
) *AnalysisService {
	return &AnalysisService{
		parse:    parse,
		source:   source,
		scorer:   scorer,
		narrator: narrator,
		store:    store,
		notifier: notifier,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// HasNarrator 是否配置了 LLM
func (s *AnalysisService) HasNarrator() bool { return s.narrator != nil }

// HasStore 是否配置了数据库
func (s *AnalysisService) HasStore() bool { return s.store != nil }

// Analyze 在后台执行完整分析，通过返回的 channel 推送事件
// 最后一个事件是 complete 或 error，随后 channel 关闭；ctx 取消时提前关闭
func (s *AnalysisService) Analyze(ctx context.Context, rawURL string) <-chan domain.Event {
	events := make(chan domain.Event, 16)

	go func() {
		defer close(events)
		run := &analysisRun{
			ctx:    ctx,
			events: events,
			log:    s.logger.WithFields(logrus.Fields{"run": uuid.NewString(), "url": rawURL}),
		}
		s.runAnalysis(run, rawURL)
	}()

	return events
}

// analysisRun 一次 Analyze 调用的状态
type analysisRun struct {
	ctx    context.Context
	events chan<- domain.Event
	log    *logrus.Entry
	closed bool
}

// send 返回 false 表示 ctx 已取消，调用方应停止
func (r *analysisRun) send(ev domain.Event) bool {
	if r.closed {
		return false
	}
	if r.ctx.Err() == nil {
		select {
		case r.events <- ev:
			return true
		case <-r.ctx.Done():
		}
	}
	r.closed = true
	r.log.Warn("⏹️ 客户端已断开，终止分析")
	return false
}

func (r *analysisRun) fail(msg string) {
	r.log.Warnf("❌ %s", msg)
	r.send(domain.NewErrorEvent(msg))
}

func (s *AnalysisService) runAnalysis(r *analysisRun, rawURL string) {
	if s.narrator == nil {
		r.fail(MsgNoNarrator)
		return
	}
	if !r.send(domain.NewStartEvent(msgStarting)) {
		return
	}

	ref, err := s.parse(rawURL)
	if err != nil {
		r.fail(msgAnalyzeFailed + common.MessageOf(err))
		return
	}
	r.log = r.log.WithField("repo", ref.FullName())
	r.log.Info("🚀 开始分析")

	if !r.send(domain.NewStepEvent(fmt.Sprintf("Analyzing repository %s", ref.FullName()))) {
		return
	}
	if !r.send(domain.NewStepEvent(msgFetching)) {
		return
	}

	metrics, err := s.source.FetchMetrics(r.ctx, ref)
	if err != nil {
		r.fail(msgAnalyzeFailed + common.MessageOf(err))
		return
	}
	if err := metrics.Validate(); err != nil {
		r.fail(msgAnalyzeFailed + err.Error())
		return
	}

	if !r.send(domain.NewStepEvent(msgCalculating)) {
		return
	}
	res := s.buildResult(ref, metrics)
	r.log.WithFields(logrus.Fields{"total": res.Breakdown.Total, "grade": res.Breakdown.Grade}).Info("📊 评分完成")

	if !r.send(domain.NewStepEvent(fmt.Sprintf("Score calculated: %d/100 %s", res.Breakdown.Total, res.Breakdown.Emoji))) {
		return
	}
	if !r.send(domain.NewScoreEvent(res.Breakdown)) {
		return
	}

	if !r.send(domain.NewStepEvent(msgInitAgent)) {
		return
	}
	analysis, err := s.narrator.Narrate(r.ctx, ref, res.Breakdown, func(ev domain.Event) { r.send(ev) })
	if r.closed {
		return
	}
	if err != nil {
		r.fail(msgAnalyzeFailed + common.MessageOf(err))
		return
	}

	rec := domain.NewAnalysisRecord(*res, analysis)
	s.persist(r.ctx, r.log, rec)
	s.notify(r.ctx, r.log, rec)

	if !r.send(domain.NewStepEvent(msgFinished)) {
		return
	}
	r.send(domain.NewCompleteEvent(analysis))
	r.log.Info("🎉 分析完成")
}

// ScoreOnly 只拉指标和评分，不调用 LLM；配置了数据库时保存记录
func (s *AnalysisService) ScoreOnly(ctx context.Context, rawURL string) (*domain.ScoreResult, error) {
	ref, err := s.parse(rawURL)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithField("repo", ref.FullName())

	res, err := s.score(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, log, domain.NewAnalysisRecord(*res, ""))
	return res, nil
}

// Track 用于定时巡检：评分并保存，等级与上一次记录不同时推送
func (s *AnalysisService) Track(ctx context.Context, rawURL string) (*domain.ScoreResult, error) {
	ref, err := s.parse(rawURL)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithField("repo", ref.FullName())

	res, err := s.score(ctx, ref)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return res, nil
	}

	prev, err := s.store.Latest(ctx, ref.FullName())
	if err != nil && !common.IsCode(err, common.ErrCodeNotFound) {
		log.Warnf("⚠️ 读取上一次记录失败: %v", err)
	}

	rec := domain.NewAnalysisRecord(*res, "")
	s.persist(ctx, log, rec)

	if prev != nil && prev.Grade != rec.Grade {
		log.WithFields(logrus.Fields{"from": prev.Grade, "to": rec.Grade}).Info("🔔 等级发生变化")
		s.notify(ctx, log, rec)
	}
	return res, nil
}

// History 按时间倒序返回某仓库的分析记录
func (s *AnalysisService) History(ctx context.Context, rawURL string, limit int) ([]*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeConfig, MsgNoStore)
	}
	ref, err := s.parse(rawURL)
	if err != nil {
		return nil, err
	}
	return s.store.History(ctx, ref.FullName(), limit)
}

// Search 在已保存的记录里按仓库名或 AI 分析内容模糊查询，高分优先
func (s *AnalysisService) Search(ctx context.Context, query string) ([]*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeConfig, MsgNoStore)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, MsgEmptyQuery)
	}
	return s.store.Search(ctx, query)
}

func (s *AnalysisService) score(ctx context.Context, ref domain.RepoRef) (*domain.ScoreResult, error) {
	metrics, err := s.source.FetchMetrics(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := metrics.Validate(); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "GitHub 返回的指标不完整", err)
	}
	return s.buildResult(ref, metrics), nil
}

func (s *AnalysisService) buildResult(ref domain.RepoRef, metrics domain.RepositoryMetrics) *domain.ScoreResult {
	breakdown := s.scorer.Score(metrics)
	return &domain.ScoreResult{
		Repo:      ref,
		Metrics:   metrics,
		Breakdown: breakdown,
		Report:    scoring.Report(breakdown),
		ScoredAt:  s.nowFunc(),
	}
}

// persist 存储失败只记日志，不影响结果
func (s *AnalysisService) persist(ctx context.Context, log *logrus.Entry, rec *domain.AnalysisRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, rec); err != nil {
		log.Errorf("💾 保存分析记录失败: %v", err)
		return
	}
	log.WithField("id", rec.ID).Debug("💾 已保存分析记录")
}

// notify 推送失败只记日志
func (s *AnalysisService) notify(ctx context.Context, log *logrus.Entry, rec *domain.AnalysisRecord) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, rec); err != nil {
		log.Errorf("📨 推送失败: %v", err)
	}
}
