package main

import (
	"context"
	"errors"

	"github-repo-analyzer/internal/adapter/feishu"
	"github-repo-analyzer/internal/adapter/gemini"
	"github-repo-analyzer/internal/adapter/github"
	"github-repo-analyzer/internal/adapter/repository"
	"github-repo-analyzer/internal/config"
	"github-repo-analyzer/internal/port"
	"github-repo-analyzer/internal/scoring"
	"github-repo-analyzer/internal/service"

	"github.com/sirupsen/logrus"
)

// deps 按配置组装的依赖，未配置的可选项保持 nil
type deps struct {
	fetcher  *github.Fetcher
	source   port.MetricsSource
	narrator port.Narrator
	store    port.Repository
	notifier port.Notifier
	closers  []func() error
}

// Close 释放 Gemini 客户端和数据库连接
func (d *deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// buildDeps withNarrator 为 false 时不创建 Gemini 客户端 (score/watch/history 用不到)
func buildDeps(ctx context.Context, cfg *config.Config, logger *logrus.Logger, withNarrator bool) (*deps, error) {
	httpClient, err := github.NewHTTPClient(cfg.GitHub.Token)
	if err != nil {
		return nil, err
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("⚠️ 未设置 GITHUB_TOKEN，匿名请求每小时只有 60 次额度")
	}

	d := &deps{}
	d.fetcher = github.NewFetcher(httpClient, logger, github.WithContributorsPageSize(cfg.GitHub.ContributorsPageSize))
	d.source = d.fetcher
	if cfg.GitHub.API == "graphql" {
		d.source = github.NewGraphQLSource(httpClient, d.fetcher, logger)
		logger.Debug("🔌 使用 GraphQL 拉取指标")
	}

	if withNarrator && cfg.Gemini.APIKey != "" {
		narrator, err := gemini.NewNarrator(ctx, cfg.Gemini.APIKey, d.fetcher,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithTemperature(cfg.Gemini.Temperature),
			gemini.WithMaxIterations(cfg.Gemini.MaxIterations),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		d.narrator = narrator
		d.closers = append(d.closers, narrator.Close)
	}

	if cfg.Database.DSN != "" {
		store, err := repository.NewPostgresRepo(cfg.Database.DSN)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.store = store
		d.closers = append(d.closers, store.Close)
	}

	if cfg.Feishu.Webhook != "" {
		d.notifier = feishu.NewNotifier(cfg.Feishu.Webhook, logger)
	}
	return d, nil
}

func (d *deps) service(logger *logrus.Logger) *service.AnalysisService {
	return service.NewAnalysisService(github.ParseRepoURL, d.source, scoring.NewScorer(), d.narrator, d.store, d.notifier, logger)
}
