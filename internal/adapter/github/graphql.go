package github

import (
	"context"
	"net/http"
	"strings"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"

	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// repositoryMetricsQuery 一次请求拿到除贡献者和 README 以外的全部指标
type repositoryMetricsQuery struct {
	Repository struct {
		StargazerCount int
		ForkCount      int
		HasWikiEnabled bool
		Description    *string
		CreatedAt      githubv4.DateTime
		UpdatedAt      githubv4.DateTime
		LicenseInfo    *struct {
			Name string
		}
		PrimaryLanguage *struct {
			Name string
		}
		Issues struct {
			TotalCount int
		} `graphql:"issues(states: OPEN)"`
		PullRequests struct {
			TotalCount int
		} `graphql:"pullRequests(states: OPEN)"`
		DefaultBranchRef *struct {
			Target struct {
				Commit struct {
					AuthoredDate githubv4.DateTime
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// GraphQLSource 用 GraphQL API 实现 port.MetricsSource
// 贡献者列表和 README 探测仍然走 REST
type GraphQLSource struct {
	client *githubv4.Client
	rest   *Fetcher
	logger *logrus.Logger
}

// NewGraphQLSource 与 REST Fetcher 共用同一个 http.Client
func NewGraphQLSource(httpClient *http.Client, rest *Fetcher, logger *logrus.Logger) *GraphQLSource {
	return &GraphQLSource{
		client: githubv4.NewClient(httpClient),
		rest:   rest,
		logger: logger,
	}
}

// FetchMetrics 并发执行 GraphQL 查询和 REST 的贡献者、README 请求
func (s *GraphQLSource) FetchMetrics(ctx context.Context, ref domain.RepoRef) (domain.RepositoryMetrics, error) {
	var (
		q            repositoryMetricsQuery
		contributors int
		hasReadme    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.query(gctx, ref, &q)
	})
	g.Go(func() error {
		list, err := s.rest.listContributors(gctx, ref, s.rest.contributorsPageSize)
		if err != nil && !isEmptyRepository(err) {
			return wrapAPIError(err, "list contributors")
		}
		contributors = len(list)
		return nil
	})
	g.Go(func() error {
		var err error
		hasReadme, err = s.rest.probeReadme(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RepositoryMetrics{}, err
	}

	r := q.Repository
	lastCommit := r.UpdatedAt.Time
	if r.DefaultBranchRef != nil && !r.DefaultBranchRef.Target.Commit.AuthoredDate.IsZero() {
		lastCommit = r.DefaultBranchRef.Target.Commit.AuthoredDate.Time
	}

	m := domain.RepositoryMetrics{
		Stars: r.StargazerCount,
		Forks: r.ForkCount,
		// 与 REST 的 open_issues_count 口径一致：包含打开的 PR
		OpenIssues:     r.Issues.TotalCount + r.PullRequests.TotalCount,
		LastCommitDate: lastCommit,
		Contributors:   contributors,
		HasReadme:      hasReadme,
		HasLicense:     r.LicenseInfo != nil,
		HasWiki:        r.HasWikiEnabled,
		HasDescription: r.Description != nil && *r.Description != "",
		CreatedAt:      r.CreatedAt.Time,
	}
	if r.PrimaryLanguage != nil {
		m.Language = r.PrimaryLanguage.Name
	}

	s.logger.WithField("repo", ref.FullName()).Debug("✅ GraphQL 指标拉取完成")
	return m.Normalize(), nil
}

func (s *GraphQLSource) query(ctx context.Context, ref domain.RepoRef, q *repositoryMetricsQuery) error {
	variables := map[string]interface{}{
		"owner": githubv4.String(ref.Owner),
		"name":  githubv4.String(ref.Name),
	}

	err := common.Do(ctx, func() error {
		return s.client.Query(ctx, q, variables)
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(s.rest.retryDelay),
		common.WithRetryIf(func(err error) bool { return !isUnresolved(err) }),
	)
	if err == nil {
		return nil
	}
	if isUnresolved(err) {
		return common.WrapError(common.ErrCodeNotFound, "query repository: Not Found", err)
	}
	return common.WrapError(common.ErrCodeGitHubAPI, "query repository", err)
}

// isUnresolved GraphQL 对不存在的仓库返回 "Could not resolve to a Repository"
func isUnresolved(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Could not resolve to a Repository")
}
