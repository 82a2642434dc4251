package port_test

import (
	"github-repo-analyzer/internal/adapter/analyzer"
	"github-repo-analyzer/internal/adapter/feishu"
	"github-repo-analyzer/internal/adapter/gemini"
	"github-repo-analyzer/internal/adapter/github"
	"github-repo-analyzer/internal/adapter/httpapi"
	"github-repo-analyzer/internal/adapter/repository"
	"github-repo-analyzer/internal/port"
	"github-repo-analyzer/internal/scoring"
	"github-repo-analyzer/internal/service"
)

// 编译期检查各适配器实现了对应端口
var (
	_ port.MetricsSource = (*github.Fetcher)(nil)
	_ port.RepoInspector = (*github.Fetcher)(nil)
	_ port.MetricsSource = (*github.GraphQLSource)(nil)
	_ port.Narrator      = (*gemini.Narrator)(nil)
	_ port.Scorer        = (*scoring.Scorer)(nil)
	_ port.Repository    = (*repository.PostgresRepo)(nil)
	_ port.Notifier      = (*feishu.Notifier)(nil)

	_ httpapi.Analyzer   = (*service.AnalysisService)(nil)
	_ service.URLParser  = github.ParseRepoURL
	_ analyzer.ScoreFunc = (*service.AnalysisService)(nil).ScoreOnly
)
