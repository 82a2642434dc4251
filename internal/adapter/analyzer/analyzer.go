package analyzer

import (
	"context"
	"time"

	"github-repo-analyzer/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScoreFunc 对单个仓库地址评分 (由 service.AnalysisService 提供)
type ScoreFunc func(ctx context.Context, rawURL string) (*domain.ScoreResult, error)

// BatchResult 批量评分中单个仓库的结果，Err 非空时 Result 为 nil
type BatchResult struct {
	URL    string
	Result *domain.ScoreResult
	Err    error
}

// BatchScorer 并发地为一组仓库评分
type BatchScorer struct {
	score         ScoreFunc
	logger        *logrus.Logger
	maxGoroutines int           // 最大并发数
	itemTimeout   time.Duration // 单个仓库的超时时间
}

// NewBatchScorer 创建批量评分器，默认并发数为 3
func NewBatchScorer(score ScoreFunc, logger *logrus.Logger) *BatchScorer {
	return &BatchScorer{
		score:         score,
		logger:        logger,
		maxGoroutines: 3,
		itemTimeout:   30 * time.Second,
	}
}

// SetMaxGoroutines 设置最大并发数
func (b *BatchScorer) SetMaxGoroutines(max int) {
	if max > 0 {
		b.maxGoroutines = max
	}
}

// SetItemTimeout 设置单个仓库的超时时间
func (b *BatchScorer) SetItemTimeout(d time.Duration) {
	if d > 0 {
		b.itemTimeout = d
	}
}

// ScoreAll 为每个地址评分，结果顺序与输入一致
// 单个仓库失败只记录在结果里；只有 ctx 被取消时才返回错误
func (b *BatchScorer) ScoreAll(ctx context.Context, urls []string) ([]BatchResult, error) {
	b.logger.WithFields(logrus.Fields{
		"repos":       len(urls),
		"concurrency": b.maxGoroutines,
	}).Info("📦 开始批量评分")

	results := make([]BatchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(b.maxGoroutines)
	for i, url := range urls {
		g.Go(func() error {
			results[i] = b.scoreOne(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		b.logger.Warn("⏰ 批量评分因超时或取消而中断")
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	b.logger.WithFields(logrus.Fields{"repos": len(urls), "failed": failed}).Info("✅ 批量评分完成")
	return results, nil
}

func (b *BatchScorer) scoreOne(ctx context.Context, url string) BatchResult {
	if err := ctx.Err(); err != nil {
		return BatchResult{URL: url, Err: err}
	}

	itemCtx, cancel := context.WithTimeout(ctx, b.itemTimeout)
	defer cancel()

	res, err := b.score(itemCtx, url)
	if err != nil {
		b.logger.WithField("url", url).Warnf("❌ 评分失败: %v", err)
		return BatchResult{URL: url, Err: err}
	}

	b.logger.WithFields(logrus.Fields{
		"repo":  res.Repo.FullName(),
		"total": res.Breakdown.Total,
		"grade": res.Breakdown.Grade,
	}).Debug("✅ 评分完成")
	return BatchResult{URL: url, Result: res}
}
