package domain

import "time"

// AnalysisRecord 一次分析 (或仅评分) 的持久化快照
// 指标和评分都展开成列，方便按分数排序和查询历史
type AnalysisRecord struct {
	ID       string `json:"id" gorm:"primaryKey"`
	FullName string `json:"full_name" gorm:"index"` // owner/repo
	URL      string `json:"url"`

	Stars          int       `json:"stars"`
	Forks          int       `json:"forks"`
	OpenIssues     int       `json:"open_issues"`
	Contributors   int       `json:"contributors"`
	LastCommitDate time.Time `json:"last_commit_date"`
	RepoCreatedAt  time.Time `json:"repo_created_at"`
	HasReadme      bool      `json:"has_readme"`
	HasLicense     bool      `json:"has_license"`
	HasWiki        bool      `json:"has_wiki"`
	HasDescription bool      `json:"has_description"`
	Language       string    `json:"language"`

	Popularity    int    `json:"popularity"`
	Maintenance   int    `json:"maintenance"`
	Community     int    `json:"community"`
	Documentation int    `json:"documentation"`
	Total         int    `json:"total" gorm:"index"`
	Grade         string `json:"grade"`
	Emoji         string `json:"emoji"`

	// LLM 叙述，仅评分时为空
	Analysis   string    `json:"analysis" gorm:"type:text"`
	AnalyzedAt time.Time `json:"analyzed_at" gorm:"index"`
}

// NewAnalysisRecord 从评分结果构造记录，ID 由存储层分配
func NewAnalysisRecord(res ScoreResult, analysis string) *AnalysisRecord {
	m, b := res.Metrics, res.Breakdown
	return &AnalysisRecord{
		FullName:       res.Repo.FullName(),
		URL:            res.Repo.URL,
		Stars:          m.Stars,
		Forks:          m.Forks,
		OpenIssues:     m.OpenIssues,
		Contributors:   m.Contributors,
		LastCommitDate: m.LastCommitDate,
		RepoCreatedAt:  m.CreatedAt,
		HasReadme:      m.HasReadme,
		HasLicense:     m.HasLicense,
		HasWiki:        m.HasWiki,
		HasDescription: m.HasDescription,
		Language:       m.Language,
		Popularity:     b.Popularity,
		Maintenance:    b.Maintenance,
		Community:      b.Community,
		Documentation:  b.Documentation,
		Total:          b.Total,
		Grade:          b.Grade,
		Emoji:          b.Emoji,
		Analysis:       analysis,
		AnalyzedAt:     res.ScoredAt,
	}
}

// Metrics 还原评分输入
func (r *AnalysisRecord) Metrics() RepositoryMetrics {
	return RepositoryMetrics{
		Stars:          r.Stars,
		Forks:          r.Forks,
		OpenIssues:     r.OpenIssues,
		LastCommitDate: r.LastCommitDate,
		Contributors:   r.Contributors,
		HasReadme:      r.HasReadme,
		HasLicense:     r.HasLicense,
		HasWiki:        r.HasWiki,
		HasDescription: r.HasDescription,
		Language:       r.Language,
		CreatedAt:      r.RepoCreatedAt,
	}
}

// Breakdown 还原评分输出
func (r *AnalysisRecord) Breakdown() ScoreBreakdown {
	return ScoreBreakdown{
		Popularity:    r.Popularity,
		Maintenance:   r.Maintenance,
		Community:     r.Community,
		Documentation: r.Documentation,
		Total:         r.Total,
		Grade:         r.Grade,
		Emoji:         r.Emoji,
	}
}
