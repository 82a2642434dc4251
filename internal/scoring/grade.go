package scoring

// Grade is one step of the letter-grade ladder.
type Grade struct {
	Min    int
	Letter string
	Emoji  string
}

// grades is ordered highest first; the last entry is the catch-all.
var grades = []Grade{
	{90, "A+", "🏆"},
	{85, "A", "🥇"},
	{80, "A-", "⭐"},
	{75, "B+", "🎯"},
	{70, "B", "✅"},
	{65, "B-", "👍"},
	{60, "C+", "📈"},
	{55, "C", "🔄"},
	{50, "C-", "⚠️"},
	{40, "D", "⚡"},
	{0, "F", "❌"},
}

// GradeFor maps a total score onto the grade ladder.
func GradeFor(total int) Grade {
	for _, g := range grades {
		if total >= g.Min {
			return g
		}
	}
	return grades[len(grades)-1]
}

// Grades returns a copy of the ladder, highest grade first.
func Grades() []Grade {
	out := make([]Grade, len(grades))
	copy(out, grades)
	return out
}

// Rank orders letters: A+ is 0, F is 10, unknown letters sort last.
func Rank(letter string) int {
	for i, g := range grades {
		if g.Letter == letter {
			return i
		}
	}
	return len(grades)
}
