package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github-repo-analyzer/internal/adapter/analyzer"
	"github-repo-analyzer/internal/adapter/httpapi"
	"github-repo-analyzer/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// signalContext Ctrl+C 或 SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <repo-url>",
		Short: "评分并让 Gemini 写一份完整分析",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			d, err := buildDeps(ctx, a.cfg, a.logger, true)
			if err != nil {
				return err
			}
			defer d.Close()

			var last domain.Event
			for ev := range d.service(a.logger).Analyze(ctx, args[0]) {
				last = ev
				if err := a.printEvent(ev); err != nil {
					return err
				}
			}

			if !last.IsTerminal() {
				return ctx.Err()
			}
			if last.Type == domain.EventError {
				return errors.New("analysis failed")
			}
			return nil
		},
	}
}

func (a *app) printEvent(ev domain.Event) error {
	if a.jsonOut {
		return json.NewEncoder(a.out).Encode(ev)
	}
	_, err := fmt.Fprintln(a.out, a.renderer.RenderEvent(ev))
	return err
}

func newScoreCmd(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "score <repo-url>...",
		Short: "只计算健康分，不调用 LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			d, err := buildDeps(ctx, a.cfg, a.logger, false)
			if err != nil {
				return err
			}
			defer d.Close()
			svc := d.service(a.logger)

			if len(args) == 1 {
				res, err := svc.ScoreOnly(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printScore(res)
			}

			batch := analyzer.NewBatchScorer(svc.ScoreOnly, a.logger)
			batch.SetMaxGoroutines(concurrency)
			results, err := batch.ScoreAll(ctx, args)
			if err != nil {
				return err
			}
			return a.printBatch(results)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 3, "批量评分的并发数")
	return cmd
}

func (a *app) printScore(res *domain.ScoreResult) error {
	if a.jsonOut {
		return json.NewEncoder(a.out).Encode(res)
	}
	fmt.Fprintf(a.out, "📦 %s\n\n", res.Repo.FullName())
	fmt.Fprintln(a.out, a.renderer.RenderMetrics(res.Metrics, res.ScoredAt))
	fmt.Fprint(a.out, a.renderer.RenderBreakdown(res.Breakdown))
	return nil
}

// batchOutput --json 时批量评分的输出结构
type batchOutput struct {
	Results []batchItem      `json:"results"`
	Summary analyzer.Summary `json:"summary"`
}

type batchItem struct {
	URL    string              `json:"url"`
	Result *domain.ScoreResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func (a *app) printBatch(results []analyzer.BatchResult) error {
	if !a.jsonOut {
		_, err := fmt.Fprint(a.out, a.renderer.RenderBatch(results))
		return err
	}

	out := batchOutput{Summary: analyzer.Summarize(results)}
	for _, r := range results {
		item := batchItem{URL: r.URL, Result: r.Result}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return json.NewEncoder(a.out).Encode(out)
}

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			d, err := buildDeps(ctx, a.cfg, a.logger, true)
			if err != nil {
				return err
			}
			defer d.Close()

			svc := d.service(a.logger)
			if !svc.HasNarrator() {
				a.logger.Warn("⚠️ 未配置 GEMINI_API_KEY，/api/analyze 将返回 500")
			}

			if port == 0 {
				port = a.cfg.Server.Port
			}
			router := httpapi.SetupRouter(httpapi.NewHandler(svc, a.logger))
			return httpapi.Serve(ctx, ":"+strconv.Itoa(port), router, a.logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "监听端口 (默认取 server.port)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		schedule string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch [repo-url...]",
		Short: "定时巡检一组仓库，等级变化时推送飞书",
		Long: `watch 立即评分一次，之后按 cron 表达式重复。
仓库列表取命令行参数，没有参数时取配置里的 watch.repos。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repos := watchRepos(args, a.cfg.Watch.Repos)
			if len(repos) == 0 {
				return errors.New("没有要巡检的仓库：请传入 URL 或配置 watch.repos")
			}
			if schedule == "" {
				schedule = a.cfg.Watch.Schedule
			}

			ctx, cancel := signalContext()
			defer cancel()

			d, err := buildDeps(ctx, a.cfg, a.logger, false)
			if err != nil {
				return err
			}
			defer d.Close()

			svc := d.service(a.logger)
			if !svc.HasStore() {
				a.logger.Warn("⚠️ 未配置 database.dsn，无法比较历史等级，不会推送")
			}

			batch := analyzer.NewBatchScorer(svc.Track, a.logger)
			batch.SetMaxGoroutines(a.cfg.Watch.Concurrency)
			runCycle := func() { a.runWatchCycle(ctx, batch, repos) }

			runCycle()
			if once {
				return nil
			}
			return runScheduled(ctx, schedule, runCycle, a)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron 表达式 (默认取 watch.schedule)")
	cmd.Flags().BoolVar(&once, "once", false, "只执行一次")
	return cmd
}

// watchRepos 命令行参数优先
func watchRepos(args, configured []string) []string {
	if len(args) > 0 {
		return args
	}
	return configured
}

func (a *app) runWatchCycle(ctx context.Context, batch *analyzer.BatchScorer, repos []string) {
	started := time.Now()
	results, err := batch.ScoreAll(ctx, repos)
	if err != nil {
		a.logger.Warnf("⏰ 本轮巡检被中断: %v", err)
		return
	}
	if err := a.printBatch(results); err != nil {
		a.logger.Errorf("❌ 输出结果失败: %v", err)
	}
	a.logger.WithField("elapsed", time.Since(started).Round(time.Millisecond).String()).Info("🎉 本轮巡检完成")
}

// runScheduled 按 cron 表达式执行，ctx 取消后等待正在执行的任务结束
func runScheduled(ctx context.Context, schedule string, job func(), a *app) error {
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(a.logger)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(a.logger))),
	)
	if _, err := c.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("无效的 cron 表达式 %q: %w", schedule, err)
	}

	c.Start()
	a.logger.WithField("schedule", schedule).Info("⏰ 定时巡检已启动，按 Ctrl+C 停止")

	<-ctx.Done()
	a.logger.Info("👋 收到停止信号，正在退出...")
	<-c.Stop().Done()
	return nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		search string
	)

	cmd := &cobra.Command{
		Use:   "history [repo-url]",
		Short: "查看仓库的历史评分，或用 --search 跨仓库搜索",
		Args:  historyArgs(&search),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			d, err := buildDeps(ctx, a.cfg, a.logger, false)
			if err != nil {
				return err
			}
			defer d.Close()

			svc := d.service(a.logger)
			if search != "" {
				records, err := svc.Search(ctx, search)
				if err != nil {
					return err
				}
				return a.printRecords(records, a.renderer.RenderSearch)
			}

			records, err := svc.History(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return a.printRecords(records, a.renderer.RenderHistory)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "最多显示多少条")
	cmd.Flags().StringVarP(&search, "search", "s", "", "按仓库名或分析内容搜索所有记录")
	return cmd
}

// historyArgs 搜索时不接受仓库地址，否则必须给一个
func historyArgs(search *string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if *search != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	}
}

func (a *app) printRecords(records []*domain.AnalysisRecord, render func([]*domain.AnalysisRecord, time.Time) string) error {
	if a.jsonOut {
		return json.NewEncoder(a.out).Encode(records)
	}
	_, err := fmt.Fprint(a.out, render(records, time.Now()))
	return err
}
