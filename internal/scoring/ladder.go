package scoring

import "cmp"

// tier is one rung of a threshold ladder: a bound and the points awarded
// when the comparator accepts the value against that bound.
type tier[T cmp.Ordered] struct {
	bound  T
	points int
}

// ladder is an ordered table of tiers evaluated top to bottom. The first
// tier whose bound satisfies match wins; no tier matching yields 0.
type ladder[T cmp.Ordered] struct {
	match func(value, bound T) bool
	tiers []tier[T]
}

func (l ladder[T]) score(value T) int {
	for _, t := range l.tiers {
		if l.match(value, t.bound) {
			return t.points
		}
	}
	return 0
}

// maxPoints is the points of the first tier, i.e. the ladder's ceiling.
func (l ladder[T]) maxPoints() int {
	if len(l.tiers) == 0 {
		return 0
	}
	return l.tiers[0].points
}

func atLeast[T cmp.Ordered](v, bound T) bool { return v >= bound }
func atMost[T cmp.Ordered](v, bound T) bool  { return v <= bound }
func below[T cmp.Ordered](v, bound T) bool   { return v < bound }
func above[T cmp.Ordered](v, bound T) bool   { return v > bound }

// Popularity.
var (
	starsLadder = ladder[int]{match: atLeast[int], tiers: []tier[int]{
		{10000, 15}, {5000, 12}, {1000, 10}, {500, 8}, {100, 5}, {50, 3}, {10, 1},
	}}
	forksLadder = ladder[int]{match: atLeast[int], tiers: []tier[int]{
		{1000, 10}, {500, 8}, {100, 6}, {50, 4}, {10, 2},
	}}
	// lower open-issue/star ratio is better
	issueRatioLadder = ladder[float64]{match: below[float64], tiers: []tier[float64]{
		{0.01, 5}, {0.05, 4}, {0.1, 3}, {0.2, 2}, {0.3, 1},
	}}
)

// Maintenance. Both ladders take whole days.
var (
	recencyLadder = ladder[int]{match: atMost[int], tiers: []tier[int]{
		{1, 20}, {7, 18}, {14, 15}, {30, 12}, {90, 8}, {180, 5}, {365, 2},
	}}
	maturityLadder = ladder[int]{match: atLeast[int], tiers: []tier[int]{
		{730, 10}, {365, 8}, {180, 6}, {90, 4}, {30, 2},
	}}
)

// Community.
var (
	contributorsLadder = ladder[int]{match: atLeast[int], tiers: []tier[int]{
		{100, 15}, {50, 12}, {20, 10}, {10, 8}, {5, 5}, {2, 3}, {1, 1},
	}}
	contributorRatioLadder = ladder[float64]{match: above[float64], tiers: []tier[float64]{
		{0.1, 5}, {0.05, 4}, {0.02, 3}, {0.01, 2}, {0.005, 1},
	}}
)

// Documentation: flat bonuses.
const (
	readmePoints      = 8
	licensePoints     = 5
	descriptionPoints = 4
	wikiPoints        = 3
)

// Ratio sentinels when there are no stars to normalize against.
const (
	noStarsIssueRatio       = 1.0 // worst case, no bonus
	noStarsContributorRatio = 0.0 // no bonus
)
