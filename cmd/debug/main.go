package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github-repo-analyzer/internal/adapter/github"
	"github-repo-analyzer/internal/config"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/scoring"

	"github.com/sirupsen/logrus"
)

func main() {
	owner, repo := "1904labs", "dom-to-image-more"
	if len(os.Args) > 2 {
		owner, repo = os.Args[1], os.Args[2]
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("❌ 读取配置失败: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	httpClient, err := github.NewHTTPClient(cfg.GitHub.Token)
	if err != nil {
		log.Fatalf("❌ 创建 HTTP 客户端失败: %v", err)
	}
	fetcher := github.NewFetcher(httpClient, logger, github.WithContributorsPageSize(cfg.GitHub.ContributorsPageSize))
	graphql := github.NewGraphQLSource(httpClient, fetcher, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ref := github.RefFor(owner, repo)
	fmt.Printf("🔍 调试模式：逐个调用工具 %s\n\n", ref.FullName())

	step("get_repository_info", func() (any, error) { return fetcher.GetRepositoryInfo(ctx, ref) })
	step("get_readme_content", func() (any, error) { return fetcher.GetReadme(ctx, ref) })
	step("get_recent_activity", func() (any, error) { return fetcher.GetRecentActivity(ctx, ref) })
	step("get_top_contributors", func() (any, error) { return fetcher.GetTopContributors(ctx, ref) })

	var metrics domain.RepositoryMetrics
	step("get_repository_metrics (REST)", func() (any, error) {
		m, err := fetcher.FetchMetrics(ctx, ref)
		metrics = m
		return m, err
	})
	step("get_repository_metrics (GraphQL)", func() (any, error) { return graphql.FetchMetrics(ctx, ref) })

	if err := metrics.Validate(); err != nil {
		fmt.Printf("⚠️ 指标不完整，跳过评分: %v\n", err)
		return
	}
	breakdown := scoring.NewScorer().Score(metrics)
	fmt.Println("📊 评分结果:")
	fmt.Println(scoring.Report(breakdown))
}

// step 执行一个工具并打印结果或错误
func step(name string, fn func() (any, error)) {
	fmt.Printf("🔧 %s\n", name)
	started := time.Now()
	result, err := fn()
	if err != nil {
		fmt.Printf("    ❌ 失败 (%s): %v\n\n", time.Since(started).Round(time.Millisecond), err)
		return
	}

	var out string
	if s, ok := result.(string); ok {
		out = s
	} else {
		raw, _ := json.MarshalIndent(result, "    ", "  ")
		out = string(raw)
	}
	fmt.Printf("    ✅ 成功 (%s)\n    %s\n\n", time.Since(started).Round(time.Millisecond), out)
}
