package port

import (
	"context"

	"github-repo-analyzer/internal/domain"
)

// MetricsSource (测量员): 从 GitHub 拉取评分所需的原始指标
// REST 和 GraphQL 两种实现
type MetricsSource interface {
	FetchMetrics(ctx context.Context, ref domain.RepoRef) (domain.RepositoryMetrics, error)
}

// RepoInspector (侦察兵): 提供给 LLM 调用的只读工具
// 每个方法对应一个 function declaration
type RepoInspector interface {
	MetricsSource
	GetRepositoryInfo(ctx context.Context, ref domain.RepoRef) (*domain.RepositoryInfo, error)
	GetReadme(ctx context.Context, ref domain.RepoRef) (string, error)
	GetRecentActivity(ctx context.Context, ref domain.RepoRef) (*domain.RecentActivity, error)
	GetTopContributors(ctx context.Context, ref domain.RepoRef) (*domain.ContributorsInfo, error)
}

// Narrator (解说员): 让 LLM 借助工具写出文字分析
// 过程中的 thought/action/observation/step 通过 emit 发出
type Narrator interface {
	Narrate(ctx context.Context, ref domain.RepoRef, breakdown domain.ScoreBreakdown, emit domain.EventSink) (string, error)
}

// Scorer (裁判): 纯函数评分
type Scorer interface {
	Score(m domain.RepositoryMetrics) domain.ScoreBreakdown
}

// Repository (仓库管理员): 保存分析记录，查询历史
type Repository interface {
	Save(ctx context.Context, rec *domain.AnalysisRecord) error

	// Latest 返回某仓库最近一次记录，没有时返回 ErrCodeNotFound
	Latest(ctx context.Context, fullName string) (*domain.AnalysisRecord, error)

	// History 按时间倒序
	History(ctx context.Context, fullName string, limit int) ([]*domain.AnalysisRecord, error)

	// Search 在仓库名和分析文本里做模糊查询
	Search(ctx context.Context, query string) ([]*domain.AnalysisRecord, error)
}

// Notifier (信使): 推送评分结果到飞书
type Notifier interface {
	Notify(ctx context.Context, rec *domain.AnalysisRecord) error
}
