// Package grading converts assignment scores into category scores, course
// grades and what-if projections. Everything here is a pure function over
// copied inputs: no I/O and no shared state.
package grading

import (
	"math"
	"sort"
)

// DefaultCategoryName is used for assignments that carry no group name.
const DefaultCategoryName = "Assignments"

// Assignment is a single graded (or not yet graded) item in a snapshot.
type Assignment struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	PointsPossible *float64 `json:"points_possible"`
	Score          *float64 `json:"score"`
	Graded         bool     `json:"graded"`
	GroupName      string   `json:"assignment_group_name,omitempty"`
	GroupWeight    *float64 `json:"assignment_group_weight,omitempty"`
}

// assessable reports whether the assignment counts toward a score.
func (a Assignment) assessable() bool {
	return a.Graded && a.PointsPossible != nil && *a.PointsPossible > 0
}

func (a Assignment) earned() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// Rules are the drop rules of a category.
type Rules struct {
	DropLowest  int     `json:"drop_lowest" validate:"min=0"`
	DropHighest int     `json:"drop_highest" validate:"min=0"`
	NeverDrop   []int64 `json:"never_drop,omitempty"`
	ExtraCredit bool    `json:"extra_credit,omitempty"`
}

// Category is a weighted bucket of assignments fed to WeightedGrade.
type Category struct {
	Name        string       `json:"name"`
	Weight      float64      `json:"weight"`
	Rules       Rules        `json:"rules"`
	Assignments []Assignment `json:"assignments"`
}

// CategoryScore is the score of one category after drop rules.
type CategoryScore struct {
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
	Percentage     float64 `json:"percentage"`
	GradedCount    int     `json:"graded_count"`
	TotalCount     int     `json:"total_count"`
}

// CategoryBreakdown is a category score together with its configured weight.
type CategoryBreakdown struct {
	CategoryScore
	Weight float64 `json:"weight"`
}

// CourseGrade is the result of a weighted calculation. PointsEarned and
// PointsPossible cover the unweighted pool only.
type CourseGrade struct {
	Percentage     float64                      `json:"percentage"`
	LetterGrade    Letter                       `json:"letter_grade"`
	PointsEarned   float64                      `json:"points_earned"`
	PointsPossible float64                      `json:"points_possible"`
	CategoryScores map[string]CategoryBreakdown `json:"category_scores"`
}

// PointsResult is a plain earned-over-possible grade.
type PointsResult struct {
	Percentage     float64 `json:"percentage"`
	LetterGrade    Letter  `json:"letter_grade"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
}

type scoredItem struct {
	assignment Assignment
	pct        float64
	protected  bool
}

// CategoryScoreFor scores a category with the given drop counts. The boolean
// is false when no assignment is assessable yet, which is not the same thing
// as a score of zero.
func CategoryScoreFor(assignments []Assignment, dropLowest, dropHighest int) (CategoryScore, bool) {
	return CategoryScoreWithRules(assignments, Rules{DropLowest: dropLowest, DropHighest: dropHighest})
}

// CategoryScoreWithRules scores a category. Items are ranked by their own
// percentage, never by raw points. Lowest items are dropped first and then the
// highest of what remains; a drop that would leave nothing is skipped. Items
// listed in NeverDrop are never removed.
func CategoryScoreWithRules(assignments []Assignment, rules Rules) (CategoryScore, bool) {
	protected := make(map[int64]struct{}, len(rules.NeverDrop))
	for _, id := range rules.NeverDrop {
		protected[id] = struct{}{}
	}

	items := make([]scoredItem, 0, len(assignments))
	for _, a := range assignments {
		if !a.assessable() {
			continue
		}
		_, keep := protected[a.ID]
		items = append(items, scoredItem{
			assignment: a,
			pct:        a.earned() / *a.PointsPossible * 100,
			protected:  keep,
		})
	}
	if len(items) == 0 {
		return CategoryScore{}, false
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].pct < items[j].pct })

	items = dropItems(items, rules.DropLowest, false)
	items = dropItems(items, rules.DropHighest, true)

	var earned, possible float64
	for _, it := range items {
		earned += it.assignment.earned()
		possible += *it.assignment.PointsPossible
	}

	var pct float64
	if possible > 0 {
		pct = earned / possible * 100
	}

	return CategoryScore{
		PointsEarned:   Round2(earned),
		PointsPossible: Round2(possible),
		Percentage:     Round2(pct),
		GradedCount:    len(items),
		TotalCount:     len(assignments),
	}, true
}

// dropItems removes up to n unprotected items from the front (lowest) or the
// back (highest) of a list sorted ascending. The list is returned untouched
// when the drop would empty it.
func dropItems(items []scoredItem, n int, fromTop bool) []scoredItem {
	if n <= 0 {
		return items
	}

	droppable := 0
	for _, it := range items {
		if !it.protected {
			droppable++
		}
	}
	if droppable > n {
		droppable = n
	}
	if droppable == 0 || len(items)-droppable < 1 {
		return items
	}

	kept := make([]scoredItem, 0, len(items)-droppable)
	remaining := droppable
	if fromTop {
		for i := len(items) - 1; i >= 0; i-- {
			if remaining > 0 && !items[i].protected {
				remaining--
				continue
			}
			kept = append(kept, items[i])
		}
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
		return kept
	}

	for _, it := range items {
		if remaining > 0 && !it.protected {
			remaining--
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// WeightedGrade combines category scores into a course grade. Categories with
// nothing graded contribute nothing. Weighted categories are rescaled by the
// weight that actually has graded work, so a student is not penalised for
// categories that have no submissions yet. Categories without a weight are
// pooled by raw points and only used when no weighted category is assessable.
func WeightedGrade(categories []Category) CourseGrade {
	var totalWeight, weightedSum, poolEarned, poolPossible float64
	scores := make(map[string]CategoryBreakdown, len(categories))

	for _, cat := range categories {
		cs, ok := CategoryScoreWithRules(cat.Assignments, cat.Rules)
		if !ok {
			continue
		}

		name := cat.Name
		if name == "" {
			name = "Unknown"
		}
		scores[name] = CategoryBreakdown{CategoryScore: cs, Weight: cat.Weight}

		if cat.Weight > 0 {
			weightedSum += cs.Percentage * (cat.Weight / 100)
			totalWeight += cat.Weight
		} else {
			poolEarned += cs.PointsEarned
			poolPossible += cs.PointsPossible
		}
	}

	var pct float64
	switch {
	case totalWeight > 0:
		pct = weightedSum / totalWeight * 100
	case poolPossible > 0:
		pct = poolEarned / poolPossible * 100
	}
	pct = Round2(pct)

	return CourseGrade{
		Percentage:     pct,
		LetterGrade:    PercentageToLetter(pct),
		PointsEarned:   Round2(poolEarned),
		PointsPossible: Round2(poolPossible),
		CategoryScores: scores,
	}
}

// PointsGrade is the no-category calculation: earned over possible across
// every assessable assignment.
func PointsGrade(assignments []Assignment) PointsResult {
	var earned, possible float64
	for _, a := range assignments {
		if !a.assessable() {
			continue
		}
		earned += a.earned()
		possible += *a.PointsPossible
	}

	var pct float64
	if possible > 0 {
		pct = earned / possible * 100
	}
	pct = Round2(pct)

	return PointsResult{
		Percentage:     pct,
		LetterGrade:    PercentageToLetter(pct),
		PointsEarned:   Round2(earned),
		PointsPossible: Round2(possible),
	}
}

// HasWeights reports whether any category carries a positive weight.
func HasWeights(categories []Category) bool {
	for _, c := range categories {
		if c.Weight > 0 {
			return true
		}
	}
	return false
}

// Round2 rounds to two decimals, the precision every grade is reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
