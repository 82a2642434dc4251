// Package scoring computes the deterministic repository health score.
//
// The score is the clamped sum of four category sub-scores (popularity,
// maintenance, community, documentation) derived from fixed threshold
// ladders, mapped onto an eleven-step letter grade. Everything here is pure:
// the only time input is the "now" instant, read once per Score call.
package scoring

import (
	"time"

	"github-repo-analyzer/internal/domain"
)

// Scorer computes health scores. The zero value uses time.Now.
type Scorer struct {
	nowFunc func() time.Time
}

// NewScorer returns a Scorer reading the wall clock.
func NewScorer() *Scorer {
	return &Scorer{nowFunc: time.Now}
}

// NewScorerWithClock returns a Scorer reading now from clock, for pinning
// the reference instant in tests.
func NewScorerWithClock(clock func() time.Time) *Scorer {
	return &Scorer{nowFunc: clock}
}

// Score captures now once and computes the breakdown for m.
func (s *Scorer) Score(m domain.RepositoryMetrics) domain.ScoreBreakdown {
	now := time.Now()
	if s != nil && s.nowFunc != nil {
		now = s.nowFunc()
	}
	return ScoreAt(m, now)
}

// ScoreAt computes the breakdown for m relative to now.
func ScoreAt(m domain.RepositoryMetrics, now time.Time) domain.ScoreBreakdown {
	m = m.Normalize()

	b := domain.ScoreBreakdown{
		Popularity:    Popularity(m),
		Maintenance:   Maintenance(m, now),
		Community:     Community(m),
		Documentation: Documentation(m),
	}
	b.Total = min(b.Popularity+b.Maintenance+b.Community+b.Documentation, domain.MaxTotal)
	g := GradeFor(b.Total)
	b.Grade, b.Emoji = g.Letter, g.Emoji
	return b
}

// Popularity scores stars, forks and the open-issue/star ratio (0-30).
func Popularity(m domain.RepositoryMetrics) int {
	return starsLadder.score(m.Stars) +
		forksLadder.score(m.Forks) +
		issueRatioLadder.score(IssueRatio(m))
}

// Maintenance scores commit recency and project age (0-30).
func Maintenance(m domain.RepositoryMetrics, now time.Time) int {
	return recencyLadder.score(DaysBetween(now, m.LastCommitDate)) +
		maturityLadder.score(DaysBetween(now, m.CreatedAt))
}

// Community scores the contributor count and contributor/star ratio (0-20).
func Community(m domain.RepositoryMetrics) int {
	return contributorsLadder.score(m.Contributors) +
		contributorRatioLadder.score(ContributorRatio(m))
}

// Documentation adds the flat README/license/description/wiki bonuses (0-20).
func Documentation(m domain.RepositoryMetrics) int {
	points := 0
	if m.HasReadme {
		points += readmePoints
	}
	if m.HasLicense {
		points += licensePoints
	}
	if m.HasDescription {
		points += descriptionPoints
	}
	if m.HasWiki {
		points += wikiPoints
	}
	return points
}

// IssueRatio is openIssues/stars, or 1 when the repository has no stars.
func IssueRatio(m domain.RepositoryMetrics) float64 {
	if m.Stars <= 0 {
		return noStarsIssueRatio
	}
	return float64(m.OpenIssues) / float64(m.Stars)
}

// ContributorRatio is contributors/stars, or 0 when there are no stars.
func ContributorRatio(m domain.RepositoryMetrics) float64 {
	if m.Stars <= 0 {
		return noStarsContributorRatio
	}
	return float64(m.Contributors) / float64(m.Stars)
}
