package domain

import (
	"errors"
	"fmt"
	"time"
)

// RepoRef 指向一个 GitHub 仓库
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"repo"`
	URL   string `json:"url"` // 规范化后的 https://github.com/owner/repo
}

// FullName 返回 "owner/repo"
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// RepositoryMetrics 是评分引擎的唯一输入
// 字段名和 JSON 名保持与前端/事件流一致
type RepositoryMetrics struct {
	Stars          int       `json:"stars"`
	Forks          int       `json:"forks"`
	OpenIssues     int       `json:"openIssues"`
	LastCommitDate time.Time `json:"lastCommitDate"`
	Contributors   int       `json:"contributors"` // 数据源可能只取第一页
	HasReadme      bool      `json:"hasReadme"`
	HasLicense     bool      `json:"hasLicense"`
	HasWiki        bool      `json:"hasWiki"`
	HasDescription bool      `json:"hasDescription"`
	Language       string    `json:"language"` // 仅展示用，不参与评分
	CreatedAt      time.Time `json:"createdAt"`
}

// ErrInvalidMetrics 表示指标记录不完整或有负数
var ErrInvalidMetrics = errors.New("invalid repository metrics")

// Validate 在进入评分引擎之前校验指标
func (m RepositoryMetrics) Validate() error {
	switch {
	case m.Stars < 0:
		return fmt.Errorf("%w: stars is negative (%d)", ErrInvalidMetrics, m.Stars)
	case m.Forks < 0:
		return fmt.Errorf("%w: forks is negative (%d)", ErrInvalidMetrics, m.Forks)
	case m.OpenIssues < 0:
		return fmt.Errorf("%w: openIssues is negative (%d)", ErrInvalidMetrics, m.OpenIssues)
	case m.Contributors < 0:
		return fmt.Errorf("%w: contributors is negative (%d)", ErrInvalidMetrics, m.Contributors)
	case m.LastCommitDate.IsZero():
		return fmt.Errorf("%w: lastCommitDate is missing", ErrInvalidMetrics)
	case m.CreatedAt.IsZero():
		return fmt.Errorf("%w: createdAt is missing", ErrInvalidMetrics)
	}
	return nil
}

// Normalize 把负数计数截到 0，空语言替换成 "Unknown"
func (m RepositoryMetrics) Normalize() RepositoryMetrics {
	m.Stars = max(m.Stars, 0)
	m.Forks = max(m.Forks, 0)
	m.OpenIssues = max(m.OpenIssues, 0)
	m.Contributors = max(m.Contributors, 0)
	if m.Language == "" {
		m.Language = "Unknown"
	}
	return m
}

// ScoreBreakdown 是评分引擎的输出
type ScoreBreakdown struct {
	Popularity    int    `json:"popularity"`    // 0-30
	Maintenance   int    `json:"maintenance"`   // 0-30
	Community     int    `json:"community"`     // 0-20
	Documentation int    `json:"documentation"` // 0-20
	Total         int    `json:"total"`         // 0-100
	Grade         string `json:"grade"`
	Emoji         string `json:"emoji"`
}

// 各分类满分
const (
	MaxPopularity    = 30
	MaxMaintenance   = 30
	MaxCommunity     = 20
	MaxDocumentation = 20
	MaxTotal         = 100
)

// ScoreResult 把指标、评分和文字报告放在一起 (score-only 接口的返回值)
type ScoreResult struct {
	Repo      RepoRef           `json:"repo"`
	Metrics   RepositoryMetrics `json:"metrics"`
	Breakdown ScoreBreakdown    `json:"breakdown"`
	Report    string            `json:"report"`
	ScoredAt  time.Time         `json:"scored_at"`
}

// RepositoryInfo 是 get_repository_info 工具的返回结构
type RepositoryInfo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OpenIssues  int       `json:"open_issues"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Homepage    string    `json:"homepage"`
	Topics      []string  `json:"topics"`
	License     string    `json:"license"`
}

// CommitInfo 单条提交
type CommitInfo struct {
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
}

// RecentActivity 是 get_recent_activity 工具的返回结构
type RecentActivity struct {
	LastCommitDate    time.Time    `json:"last_commit_date"`
	LastCommitMessage string       `json:"last_commit_message"`
	LastCommitAuthor  string       `json:"last_commit_author"`
	RecentCommits     []CommitInfo `json:"recent_commits"`
}

// Contributor 贡献者
type Contributor struct {
	Username      string `json:"username"`
	Contributions int    `json:"contributions"`
}

// ContributorsInfo 是 get_top_contributors 工具的返回结构
type ContributorsInfo struct {
	TotalContributors int           `json:"total_contributors"`
	TopContributors   []Contributor `json:"top_contributors"`
}
