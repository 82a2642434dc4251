package scoring

import (
	"strings"
	"testing"

	"github-repo-analyzer/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		total  int
		letter string
		emoji  string
	}{
		{100, "A+", "🏆"},
		{90, "A+", "🏆"},
		{89, "A", "🥇"},
		{85, "A", "🥇"},
		{84, "A-", "⭐"},
		{80, "A-", "⭐"},
		{79, "B+", "🎯"},
		{75, "B+", "🎯"},
		{74, "B", "✅"},
		{70, "B", "✅"},
		{69, "B-", "👍"},
		{65, "B-", "👍"},
		{64, "C+", "📈"},
		{60, "C+", "📈"},
		{59, "C", "🔄"},
		{55, "C", "🔄"},
		{54, "C-", "⚠️"},
		{50, "C-", "⚠️"},
		{49, "D", "⚡"},
		{40, "D", "⚡"},
		{39, "F", "❌"},
		{0, "F", "❌"},
		{-5, "F", "❌"},
	}

	for _, tt := range tests {
		g := GradeFor(tt.total)
		assert.Equal(t, tt.letter, g.Letter, "total=%d", tt.total)
		assert.Equal(t, tt.emoji, g.Emoji, "total=%d", tt.total)
	}
}

func TestGrades_OrderedAndDistinct(t *testing.T) {
	all := Grades()
	assert.Len(t, all, 11)

	seenLetters := map[string]bool{}
	seenEmoji := map[string]bool{}
	for i, g := range all {
		assert.False(t, seenLetters[g.Letter], "duplicate letter %s", g.Letter)
		assert.False(t, seenEmoji[g.Emoji], "duplicate emoji %s", g.Emoji)
		seenLetters[g.Letter] = true
		seenEmoji[g.Emoji] = true
		if i > 0 {
			assert.Less(t, g.Min, all[i-1].Min)
		}
	}

	// 返回的是副本
	all[0].Letter = "Z"
	assert.Equal(t, "A+", GradeFor(100).Letter)
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, Rank("A+"))
	assert.Equal(t, 10, Rank("F"))
	assert.Less(t, Rank("B"), Rank("C+"))
	assert.Equal(t, 11, Rank("?"))
}

func TestInterpretation(t *testing.T) {
	tests := []struct {
		total  int
		prefix string
	}{
		{100, "**Excellent!**"},
		{90, "**Excellent!**"},
		{89, "**Very Good!**"},
		{80, "**Very Good!**"},
		{79, "**Good!**"},
		{70, "**Good!**"},
		{69, "**Fair.**"},
		{60, "**Fair.**"},
		{59, "**Average.**"},
		{50, "**Average.**"},
		{49, "**Low.**"},
		{0, "**Low.**"},
	}

	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(Interpretation(tt.total), tt.prefix), "total=%d", tt.total)
	}
}

func TestReport(t *testing.T) {
	b := domain.ScoreBreakdown{
		Popularity:    30,
		Maintenance:   30,
		Community:     16,
		Documentation: 20,
		Total:         96,
		Grade:         "A+",
		Emoji:         "🏆",
	}

	report := Report(b)

	assert.Contains(t, report, "## 🎯 Health Score: 96/100 🏆")
	assert.Contains(t, report, "**Grade: A+**")
	assert.Contains(t, report, "### Score Breakdown:")
	assert.Contains(t, report, "- **Popularity**: 30/30 ⭐⭐⭐\n")
	assert.Contains(t, report, "- **Maintenance**: 30/30 🔧🔧🔧\n")
	assert.Contains(t, report, "- **Community**: 16/20 👥👥👥\n")
	assert.Contains(t, report, "- **Documentation**: 20/20 📚📚📚\n")
	assert.Contains(t, report, Interpretation(96))
}

func TestReport_ZeroScoresHaveNoIcons(t *testing.T) {
	report := Report(domain.ScoreBreakdown{Grade: "F", Emoji: "❌"})

	assert.Contains(t, report, "- **Popularity**: 0/30 \n")
	assert.Contains(t, report, "- **Community**: 0/20 \n")
	assert.Contains(t, report, "**Low.**")
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "", icons("⭐", 0, 10))
	assert.Equal(t, "⭐", icons("⭐", 1, 10))
	assert.Equal(t, "⭐", icons("⭐", 10, 10))
	assert.Equal(t, "⭐⭐", icons("⭐", 11, 10))
	assert.Equal(t, "👥👥", icons("👥", 8, 7))
}
