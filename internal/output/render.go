package output

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github-repo-analyzer/internal/adapter/analyzer"
	"github-repo-analyzer/internal/domain"
	"github-repo-analyzer/internal/scoring"

	"github.com/dustin/go-humanize"
)

const (
	barWidth           = 20
	observationPreview = 200
)

// Renderer 把领域对象渲染成终端文本
type Renderer struct {
	st styles
}

// NewRenderer color 为 false 时输出纯文本
func NewRenderer(color bool) *Renderer {
	return &Renderer{st: newStyles(color)}
}

// RenderBreakdown 总分标题加四个分项进度条
func (r *Renderer) RenderBreakdown(b domain.ScoreBreakdown) string {
	var sb strings.Builder
	title := fmt.Sprintf("%s Health Score: %d/100 (%s)", b.Emoji, b.Total, b.Grade)
	sb.WriteString(r.st.bold.Inherit(r.st.band[Band(b.Total)]).Render(title))
	sb.WriteString("\n\n")

	rows := []struct {
		name       string
		score, max int
	}{
		{"Popularity", b.Popularity, domain.MaxPopularity},
		{"Maintenance", b.Maintenance, domain.MaxMaintenance},
		{"Community", b.Community, domain.MaxCommunity},
		{"Documentation", b.Documentation, domain.MaxDocumentation},
	}
	for _, row := range rows {
		sb.WriteString(r.st.label.Render(row.name))
		sb.WriteString(r.bar(row.score, row.max))
		sb.WriteString(fmt.Sprintf(" %2d/%d\n", row.score, row.max))
	}

	sb.WriteString("\n")
	sb.WriteString(scoring.Interpretation(b.Total))
	sb.WriteString("\n")
	return sb.String()
}

func (r *Renderer) bar(score, limit int) string {
	percent, filled := 0, 0
	if limit > 0 {
		percent = score * 100 / limit
		filled = int(math.Round(float64(score) / float64(limit) * barWidth))
	}
	filled = min(max(filled, 0), barWidth)
	return r.st.band[Band(percent)].Render(strings.Repeat("█", filled)) +
		r.st.muted.Render(strings.Repeat("░", barWidth-filled))
}

// RenderEvent 每个事件渲染成一行 (complete 事件附带全文)
func (r *Renderer) RenderEvent(ev domain.Event) string {
	switch data := ev.Data.(type) {
	case domain.StartData:
		return r.st.header.Render(data.Message)
	case domain.StepData:
		return r.st.muted.Render("▶ " + data.Step)
	case domain.ThoughtData:
		return "💭 " + data.Thought
	case domain.ActionData:
		input, _ := json.Marshal(data.Input)
		return fmt.Sprintf("🔧 %s %s", r.st.bold.Render(data.Action), input)
	case domain.ObservationData:
		return r.st.muted.Render("👀 " + preview(data.Observation, observationPreview))
	case domain.ScoreBreakdown:
		return r.RenderBreakdown(data)
	case domain.CompleteData:
		return r.st.header.Render("✅ Analysis complete") + "\n\n" + data.Analysis
	case domain.ErrorData:
		return r.st.error.Render("❌ " + data.Error)
	}
	return fmt.Sprintf("%s: %v", ev.Type, ev.Data)
}

// RenderMetrics 关键指标，数字加千分位，日期显示为相对时间
func (r *Renderer) RenderMetrics(m domain.RepositoryMetrics, now time.Time) string {
	lines := [][2]string{
		{"⭐ Stars", humanize.Comma(int64(m.Stars))},
		{"🍴 Forks", humanize.Comma(int64(m.Forks))},
		{"🐛 Open issues", humanize.Comma(int64(m.OpenIssues))},
		{"👥 Contributors", humanize.Comma(int64(m.Contributors))},
		{"🕒 Last commit", RelativeDate(m.LastCommitDate, now)},
		{"📅 Created", RelativeDate(m.CreatedAt, now)},
		{"💻 Language", m.Language},
		{"📄 README", yesNo(m.HasReadme)},
		{"⚖️ License", yesNo(m.HasLicense)},
		{"📚 Wiki", yesNo(m.HasWiki)},
		{"📝 Description", yesNo(m.HasDescription)},
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(r.st.label.Render(l[0]))
		sb.WriteString(l[1])
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderHistory 历史记录表格，最新的在前
func (r *Renderer) RenderHistory(records []*domain.AnalysisRecord, now time.Time) string {
	if len(records) == 0 {
		return r.st.muted.Render("📭 No history yet") + "\n"
	}
	t := newTable(r.st, "WHEN", "TOTAL", "GRADE", "POP", "MAINT", "COMM", "DOCS", "STARS")
	for i, rec := range records {
		grade := rec.Emoji + " " + rec.Grade
		if i+1 < len(records) {
			grade += gradeTrend(rec.Grade, records[i+1].Grade)
		}
		t.addRow(
			RelativeDate(rec.AnalyzedAt, now),
			fmt.Sprintf("%d", rec.Total),
			grade,
			fmt.Sprintf("%d", rec.Popularity),
			fmt.Sprintf("%d", rec.Maintenance),
			fmt.Sprintf("%d", rec.Community),
			fmt.Sprintf("%d", rec.Documentation),
			humanize.Comma(int64(rec.Stars)),
		)
	}
	return t.render()
}

// gradeTrend 记录按时间倒序，与更早的一条比较
func gradeTrend(current, older string) string {
	switch cur, prev := scoring.Rank(current), scoring.Rank(older); {
	case cur < prev:
		return " ↑"
	case cur > prev:
		return " ↓"
	default:
		return ""
	}
}

// RenderSearch 搜索结果，跨仓库所以多一列仓库名
func (r *Renderer) RenderSearch(records []*domain.AnalysisRecord, now time.Time) string {
	if len(records) == 0 {
		return r.st.muted.Render("📭 No matching records") + "\n"
	}
	t := newTable(r.st, "REPOSITORY", "WHEN", "TOTAL", "GRADE", "LANGUAGE")
	for _, rec := range records {
		t.addRow(
			rec.FullName,
			RelativeDate(rec.AnalyzedAt, now),
			fmt.Sprintf("%d", rec.Total),
			rec.Emoji+" "+rec.Grade,
			rec.Language,
		)
	}
	return t.render()
}

// RenderBatch 批量评分结果表格加统计
func (r *Renderer) RenderBatch(results []analyzer.BatchResult) string {
	t := newTable(r.st, "REPOSITORY", "TOTAL", "GRADE", "NOTE")
	for _, res := range results {
		if res.Err != nil {
			t.addRow(res.URL, "-", "-", r.st.error.Render(preview(res.Err.Error(), 60)))
			continue
		}
		b := res.Result.Breakdown
		t.addRow(res.Result.Repo.FullName(), fmt.Sprintf("%d", b.Total), b.Emoji+" "+b.Grade, "")
	}

	s := analyzer.Summarize(results)
	var sb strings.Builder
	sb.WriteString(t.render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%d repositories, %d failed", s.Count, s.Failed))
	if s.Count > s.Failed {
		sb.WriteString(fmt.Sprintf(" | mean %.1f, median %.1f, min %.0f, max %.0f", s.Mean, s.Median, s.Min, s.Max))
		var grades []string
		for _, g := range s.GradeOrder() {
			grades = append(grades, fmt.Sprintf("%s×%d", g, s.Grades[g]))
		}
		sb.WriteString(" | " + strings.Join(grades, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RelativeDate 把时间显示成 "today"、"3 days ago"、"2 weeks ago" 等
// 按整天计算，未来的时间也显示为 today
func RelativeDate(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

func yesNo(b bool) string {
	if b {
		return "✅ yes"
	}
	return "❌ no"
}

// preview 压成一行并截断
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
