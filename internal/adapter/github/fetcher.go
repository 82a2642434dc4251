package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"

	"github.com/google/go-github/v53/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultContributorsPageSize 只取一页贡献者，所以这也是贡献者数量的上限
	DefaultContributorsPageSize = 100

	readmeMaxLength     = 3000
	readmeTruncatedNote = "\n\n... (README truncated for size reasons)"
	recentCommitsCount  = 5
	topContributorCount = 10
)

// ErrNoCommits 仓库没有任何提交
const ErrNoCommits = "No commits found in this repository."

// Fetcher 用 REST API 实现 port.MetricsSource 和 port.RepoInspector
type Fetcher struct {
	client               *github.Client
	logger               *logrus.Logger
	contributorsPageSize int
	retryDelay           time.Duration
}

// FetcherOption 配置 Fetcher
type FetcherOption func(*Fetcher)

// WithContributorsPageSize 设置贡献者分页大小 (1-100)
func WithContributorsPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 && n <= 100 {
			f.contributorsPageSize = n
		}
	}
}

// WithBaseURL 指向其他 API 地址 (GitHub Enterprise 或测试服务器)，必须以 / 结尾
func WithBaseURL(raw string) FetcherOption {
	return func(f *Fetcher) {
		if u, err := url.Parse(raw); err == nil {
			f.client.BaseURL = u
		}
	}
}

// WithRetryDelay 设置首次重试前的等待时间
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryDelay = d
		}
	}
}

// NewFetcher 初始化 GitHub REST 客户端，httpClient 为 nil 时使用默认客户端
func NewFetcher(httpClient *http.Client, logger *logrus.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:               github.NewClient(httpClient),
		logger:               logger,
		contributorsPageSize: DefaultContributorsPageSize,
		retryDelay:           time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchMetrics 拉取评分所需的全部指标
// 仓库信息、贡献者、最后一次提交、README 四个请求并发执行
func (f *Fetcher) FetchMetrics(ctx context.Context, ref domain.RepoRef) (domain.RepositoryMetrics, error) {
	log := f.logger.WithField("repo", ref.FullName())
	log.Debug("📊 开始拉取仓库指标")

	var (
		repo         *github.Repository
		contributors int
		lastCommit   time.Time
		hasReadme    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		repo, err = f.getRepository(gctx, ref)
		return err
	})
	g.Go(func() error {
		list, err := f.listContributors(gctx, ref, f.contributorsPageSize)
		if err != nil && !isEmptyRepository(err) {
			return wrapAPIError(err, "list contributors")
		}
		contributors = len(list)
		return nil
	})
	g.Go(func() error {
		commits, err := f.listCommits(gctx, ref, 1)
		if err != nil && !isEmptyRepository(err) {
			return wrapAPIError(err, "list commits")
		}
		if len(commits) > 0 {
			lastCommit = commitDate(commits[0])
		}
		return nil
	})
	g.Go(func() error {
		var err error
		hasReadme, err = f.probeReadme(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RepositoryMetrics{}, err
	}

	// 没有提交或者提交没有作者日期时退回 updated_at
	if lastCommit.IsZero() {
		lastCommit = repo.GetUpdatedAt().Time
	}

	m := domain.RepositoryMetrics{
		Stars:          repo.GetStargazersCount(),
		Forks:          repo.GetForksCount(),
		OpenIssues:     repo.GetOpenIssuesCount(),
		LastCommitDate: lastCommit,
		Contributors:   contributors,
		HasReadme:      hasReadme,
		HasLicense:     repo.License != nil,
		HasWiki:        repo.GetHasWiki(),
		HasDescription: repo.GetDescription() != "",
		Language:       repo.GetLanguage(),
		CreatedAt:      repo.GetCreatedAt().Time,
	}.Normalize()

	log.WithFields(logrus.Fields{
		"stars":        m.Stars,
		"contributors": m.Contributors,
	}).Debug("✅ 指标拉取完成")
	return m, nil
}

// GetRepositoryInfo 对应 get_repository_info 工具
func (f *Fetcher) GetRepositoryInfo(ctx context.Context, ref domain.RepoRef) (*domain.RepositoryInfo, error) {
	repo, err := f.getRepository(ctx, ref)
	if err != nil {
		return nil, err
	}

	info := &domain.RepositoryInfo{
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		Language:    repo.GetLanguage(),
		CreatedAt:   repo.GetCreatedAt().Time,
		UpdatedAt:   repo.GetUpdatedAt().Time,
		Homepage:    repo.GetHomepage(),
		Topics:      repo.Topics,
		License:     repo.GetLicense().GetName(),
	}
	if info.Topics == nil {
		info.Topics = []string{}
	}
	return info, nil
}

// GetReadme 对应 get_readme_content 工具，超过 3000 字符会被截断
func (f *Fetcher) GetReadme(ctx context.Context, ref domain.RepoRef) (string, error) {
	content, err := f.getReadmeContent(ctx, ref)
	if err != nil {
		return "", wrapAPIError(err, "get readme")
	}
	return truncateReadme(content), nil
}

// GetRecentActivity 对应 get_recent_activity 工具，取最近 5 次提交
func (f *Fetcher) GetRecentActivity(ctx context.Context, ref domain.RepoRef) (*domain.RecentActivity, error) {
	commits, err := f.listCommits(ctx, ref, recentCommitsCount)
	if err != nil && !isEmptyRepository(err) {
		return nil, wrapAPIError(err, "list commits")
	}
	if len(commits) == 0 {
		return nil, common.NewError(common.ErrCodeNotFound, ErrNoCommits)
	}

	activity := &domain.RecentActivity{
		RecentCommits: make([]domain.CommitInfo, 0, len(commits)),
	}
	for _, c := range commits {
		activity.RecentCommits = append(activity.RecentCommits, domain.CommitInfo{
			Date:    commitDate(c),
			Message: c.GetCommit().GetMessage(),
			Author:  c.GetCommit().GetAuthor().GetName(),
		})
	}
	last := activity.RecentCommits[0]
	activity.LastCommitDate = last.Date
	activity.LastCommitMessage = last.Message
	activity.LastCommitAuthor = last.Author
	return activity, nil
}

// GetTopContributors 对应 get_top_contributors 工具，取前 10 名
func (f *Fetcher) GetTopContributors(ctx context.Context, ref domain.RepoRef) (*domain.ContributorsInfo, error) {
	list, err := f.listContributors(ctx, ref, topContributorCount)
	if err != nil && !isEmptyRepository(err) {
		return nil, wrapAPIError(err, "list contributors")
	}

	info := &domain.ContributorsInfo{
		TotalContributors: len(list),
		TopContributors:   make([]domain.Contributor, 0, len(list)),
	}
	for _, c := range list {
		info.TopContributors = append(info.TopContributors, domain.Contributor{
			Username:      c.GetLogin(),
			Contributions: c.GetContributions(),
		})
	}
	return info, nil
}

func (f *Fetcher) getRepository(ctx context.Context, ref domain.RepoRef) (*github.Repository, error) {
	var repo *github.Repository
	err := f.retry(ctx, ref, "get repository", func() error {
		var apiErr error
		repo, _, apiErr = f.client.Repositories.Get(ctx, ref.Owner, ref.Name)
		return apiErr
	})
	if err != nil {
		return nil, wrapAPIError(err, "get repository")
	}
	return repo, nil
}

func (f *Fetcher) listContributors(ctx context.Context, ref domain.RepoRef, perPage int) ([]*github.Contributor, error) {
	var list []*github.Contributor
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	err := f.retry(ctx, ref, "list contributors", func() error {
		var apiErr error
		list, _, apiErr = f.client.Repositories.ListContributors(ctx, ref.Owner, ref.Name, opts)
		return apiErr
	})
	return list, err
}

func (f *Fetcher) listCommits(ctx context.Context, ref domain.RepoRef, perPage int) ([]*github.RepositoryCommit, error) {
	var commits []*github.RepositoryCommit
	opts := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	err := f.retry(ctx, ref, "list commits", func() error {
		var apiErr error
		commits, _, apiErr = f.client.Repositories.ListCommits(ctx, ref.Owner, ref.Name, opts)
		return apiErr
	})
	return commits, err
}

func (f *Fetcher) getReadmeContent(ctx context.Context, ref domain.RepoRef) (string, error) {
	var content string
	err := f.retry(ctx, ref, "get readme", func() error {
		file, _, apiErr := f.client.Repositories.GetReadme(ctx, ref.Owner, ref.Name, nil)
		if apiErr != nil {
			return apiErr
		}
		decoded, decodeErr := file.GetContent()
		if decodeErr != nil {
			return common.Permanent(decodeErr)
		}
		content = decoded
		return nil
	})
	return content, err
}

// probeReadme GitHub 会解析任意 README 变体 (README.rst、docs/README.md 等)，404 表示没有
func (f *Fetcher) probeReadme(ctx context.Context, ref domain.RepoRef) (bool, error) {
	_, err := f.getReadmeContent(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case statusOf(err) == http.StatusNotFound:
		return false, nil
	default:
		return false, wrapAPIError(err, "get readme")
	}
}

// retry 只重试网络错误和 5xx，4xx 和限流直接返回
func (f *Fetcher) retry(ctx context.Context, ref domain.RepoRef, op string, fn common.RetryableFunc) error {
	return common.Do(ctx, fn,
		common.WithMaxRetries(3),
		common.WithInitialDelay(f.retryDelay),
		common.WithRetryIf(isRetryable),
		common.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			f.logger.WithFields(logrus.Fields{
				"repo":    ref.FullName(),
				"op":      op,
				"attempt": attempt,
			}).Warnf("⚠️ GitHub 请求失败，%v 后重试: %v", delay, err)
		}),
	)
}

func isRetryable(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return false
	}
	if status := statusOf(err); status >= 400 && status < 500 {
		return false
	}
	return true
}

// statusOf 取出 GitHub 错误响应的状态码，非 HTTP 错误返回 0
func statusOf(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	return 0
}

// isEmptyRepository GitHub 对没有提交的仓库返回 409 "Git Repository is empty."
func isEmptyRepository(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// wrapAPIError 把 GitHub 错误映射成带错误码的 AppError
func wrapAPIError(err error, op string) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return common.WrapError(common.ErrCodeRateLimit, fmt.Sprintf("%s: GitHub API rate limit exceeded", op), err)
	}
	if statusOf(err) == http.StatusNotFound {
		return common.WrapError(common.ErrCodeNotFound, fmt.Sprintf("%s: Not Found", op), err)
	}
	return common.WrapError(common.ErrCodeGitHubAPI, op, err)
}

// commitDate 取作者日期，没有时退回提交者日期
func commitDate(c *github.RepositoryCommit) time.Time {
	if d := c.GetCommit().GetAuthor().GetDate(); !d.IsZero() {
		return d.Time
	}
	return c.GetCommit().GetCommitter().GetDate().Time
}

func truncateReadme(content string) string {
	runes := []rune(content)
	if len(runes) <= readmeMaxLength {
		return content
	}
	return string(runes[:readmeMaxLength]) + readmeTruncatedNote
}
