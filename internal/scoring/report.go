package scoring

import (
	"fmt"
	"strings"

	"github-repo-analyzer/internal/domain"
)

// interpretations is ordered highest band first.
var interpretations = []struct {
	min  int
	text string
}{
	{90, "**Excellent!** This project is outstanding with very high popularity, active maintenance, an engaged community, and comprehensive documentation. Highly recommended! 🌟"},
	{80, "**Very Good!** This is a high-quality project with good practices. It is actively maintained and well-documented. Recommended for production use. ✨"},
	{70, "**Good!** This project is solid and reliable. It may require some minor improvements but is suitable for most use cases. 👌"},
	{60, "**Fair.** This project works but could benefit from improvements in maintenance, documentation, or community. Use with caution. ⚠️"},
	{50, "**Average.** This project has significant gaps. Review carefully before use and be prepared to contribute or look for alternatives. 🔍"},
	{0, "**Low.** This project has serious issues with maintenance, popularity, or documentation. Consider more robust alternatives. ❗"},
}

// Interpretation returns the qualitative sentence for a total score.
func Interpretation(total int) string {
	for _, band := range interpretations {
		if total >= band.min {
			return band.text
		}
	}
	return interpretations[len(interpretations)-1].text
}

// Report renders a breakdown as the Markdown summary shown to users.
func Report(b domain.ScoreBreakdown) string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "## 🎯 Health Score: %d/100 %s\n\n", b.Total, b.Emoji)
	fmt.Fprintf(&sb, "**Grade: %s**\n\n", b.Grade)
	sb.WriteString("### Score Breakdown:\n")
	fmt.Fprintf(&sb, "- **Popularity**: %d/%d %s\n", b.Popularity, domain.MaxPopularity, icons("⭐", b.Popularity, 10))
	fmt.Fprintf(&sb, "- **Maintenance**: %d/%d %s\n", b.Maintenance, domain.MaxMaintenance, icons("🔧", b.Maintenance, 10))
	fmt.Fprintf(&sb, "- **Community**: %d/%d %s\n", b.Community, domain.MaxCommunity, icons("👥", b.Community, 7))
	fmt.Fprintf(&sb, "- **Documentation**: %d/%d %s\n", b.Documentation, domain.MaxDocumentation, icons("📚", b.Documentation, 7))
	sb.WriteString("\n")
	sb.WriteString(Interpretation(b.Total))
	sb.WriteString("\n")
	return sb.String()
}

// icons repeats icon ceil(score/per) times.
func icons(icon string, score, per int) string {
	if score <= 0 {
		return ""
	}
	return strings.Repeat(icon, (score+per-1)/per)
}
