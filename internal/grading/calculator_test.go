package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(v float64) *float64 { return &v }

func graded(id int64, score, possible float64) Assignment {
	return Assignment{ID: id, Score: pts(score), PointsPossible: pts(possible), Graded: true}
}

func TestPercentageToLetter(t *testing.T) {
	tests := []struct {
		pct  float64
		want Letter
	}{
		{100, LetterA},
		{104.5, LetterA},
		{93.0, LetterA},
		{92.99, LetterAMinus},
		{90, LetterAMinus},
		{89.99, LetterBPlus},
		{87, LetterBPlus},
		{83, LetterB},
		{80, LetterBMinus},
		{77, LetterCPlus},
		{73, LetterC},
		{70, LetterCMinus},
		{67, LetterDPlus},
		{63, LetterD},
		{60, LetterDMinus},
		{59.99, LetterF},
		{0, LetterF},
		{-5, LetterF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentageToLetter(tt.pct), "percentage %v", tt.pct)
	}
}

func TestPercentageToLetter_Monotonic(t *testing.T) {
	rank := map[Letter]int{}
	for i, th := range gradeScale {
		rank[th.letter] = len(gradeScale) - i
	}
	rank[LetterF] = 0

	prev := rank[PercentageToLetter(0)]
	for p := 0.0; p <= 100.0; p += 0.01 {
		r := rank[PercentageToLetter(p)]
		require.GreaterOrEqual(t, r, prev, "letter dropped at %v", p)
		prev = r
	}
}

func TestCategoryScoreFor_EmptyIsNotZero(t *testing.T) {
	_, ok := CategoryScoreFor(nil, 0, 0)
	assert.False(t, ok)

	ungraded := []Assignment{
		{ID: 1, PointsPossible: pts(10)},
		{ID: 2, PointsPossible: pts(0), Score: pts(0), Graded: true},
		{ID: 3, Score: pts(5), Graded: true},
	}
	_, ok = CategoryScoreFor(ungraded, 0, 0)
	assert.False(t, ok)
}

func TestCategoryScoreFor_PointsNotAverage(t *testing.T) {
	cs, ok := CategoryScoreFor([]Assignment{graded(1, 10, 10), graded(2, 0, 90)}, 0, 0)
	require.True(t, ok)

	assert.Equal(t, 10.0, cs.PointsEarned)
	assert.Equal(t, 100.0, cs.PointsPossible)
	assert.Equal(t, 10.0, cs.Percentage)
}

func TestCategoryScoreFor_Counts(t *testing.T) {
	items := []Assignment{
		graded(1, 8, 10),
		graded(2, 9, 10),
		{ID: 3, PointsPossible: pts(10)},
	}

	cs, ok := CategoryScoreFor(items, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 2, cs.GradedCount)
	assert.Equal(t, 3, cs.TotalCount)
	assert.Equal(t, 85.0, cs.Percentage)
}

func TestCategoryScoreFor_DropsByPercentage(t *testing.T) {
	// The 5-point quiz has the smallest raw score but the best percentage.
	items := []Assignment{
		graded(1, 5, 5),
		graded(2, 60, 100),
		graded(3, 80, 100),
	}

	cs, ok := CategoryScoreFor(items, 1, 0)
	require.True(t, ok)
	assert.Equal(t, 2, cs.GradedCount)
	assert.Equal(t, 85.0, cs.PointsEarned)
	assert.Equal(t, 105.0, cs.PointsPossible)
}

func TestCategoryScoreFor_DropLowestThenHighest(t *testing.T) {
	items := []Assignment{
		graded(1, 50, 100),
		graded(2, 70, 100),
		graded(3, 80, 100),
		graded(4, 100, 100),
	}

	cs, ok := CategoryScoreFor(items, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 2, cs.GradedCount)
	assert.Equal(t, 75.0, cs.Percentage)
}

func TestCategoryScoreFor_NeverDropsToZero(t *testing.T) {
	for n := 1; n <= 5; n++ {
		items := make([]Assignment, n)
		for i := range items {
			items[i] = graded(int64(i+1), float64(10*(i+1)), 100)
		}

		for k := 0; k <= n+2; k++ {
			cs, ok := CategoryScoreFor(items, k, 0)
			require.True(t, ok)

			want := n - k
			if k >= n {
				want = n
			}
			assert.Equal(t, want, cs.GradedCount, "n=%d k=%d", n, k)
			assert.GreaterOrEqual(t, cs.GradedCount, 1)
		}
	}
}

func TestCategoryScoreWithRules_NeverDrop(t *testing.T) {
	items := []Assignment{
		graded(1, 40, 100), // final exam, protected
		graded(2, 60, 100),
		graded(3, 90, 100),
	}

	cs, ok := CategoryScoreWithRules(items, Rules{DropLowest: 1, NeverDrop: []int64{1}})
	require.True(t, ok)
	assert.Equal(t, 2, cs.GradedCount)
	assert.Equal(t, 130.0, cs.PointsEarned)

	cs, ok = CategoryScoreWithRules(items, Rules{DropLowest: 5, NeverDrop: []int64{1}})
	require.True(t, ok)
	assert.Equal(t, 1, cs.GradedCount)
	assert.Equal(t, 40.0, cs.Percentage)
}

func TestCategoryScoreFor_DoesNotMutateInput(t *testing.T) {
	items := []Assignment{graded(3, 90, 100), graded(1, 10, 100), graded(2, 50, 100)}
	_, _ = CategoryScoreFor(items, 1, 1)

	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, int64(1), items[1].ID)
	assert.Equal(t, int64(2), items[2].ID)
}

func TestWeightedGrade_RescalesToGradedWeight(t *testing.T) {
	result := WeightedGrade([]Category{
		{Name: "Homework", Weight: 50, Assignments: []Assignment{graded(1, 100, 100)}},
		{Name: "Exams", Weight: 50, Assignments: []Assignment{{ID: 2, PointsPossible: pts(100)}}},
	})

	assert.Equal(t, 100.0, result.Percentage)
	assert.Equal(t, LetterA, result.LetterGrade)
	assert.Contains(t, result.CategoryScores, "Homework")
	assert.NotContains(t, result.CategoryScores, "Exams")
}

func TestWeightedGrade_Weighted(t *testing.T) {
	result := WeightedGrade([]Category{
		{Name: "Homework", Weight: 30, Assignments: []Assignment{graded(1, 90, 100)}},
		{Name: "Quizzes", Weight: 30, Assignments: []Assignment{graded(2, 8, 10)}},
		{Name: "Exams", Weight: 40, Assignments: []Assignment{graded(3, 70, 100)}},
	})

	// 90*.3 + 80*.3 + 70*.4 = 79
	assert.Equal(t, 79.0, result.Percentage)
	assert.Equal(t, LetterCPlus, result.LetterGrade)
	assert.Equal(t, 30.0, result.CategoryScores["Quizzes"].Weight)
	assert.Equal(t, 0.0, result.PointsPossible)
}

func TestWeightedGrade_UnweightedPoolFallback(t *testing.T) {
	result := WeightedGrade([]Category{
		{Name: "Extra Credit", Assignments: []Assignment{graded(1, 5, 10)}},
		{Name: "Other", Weight: 0, Assignments: []Assignment{graded(2, 15, 30)}},
	})

	assert.Equal(t, 50.0, result.Percentage)
	assert.Equal(t, 20.0, result.PointsEarned)
	assert.Equal(t, 40.0, result.PointsPossible)
}

func TestWeightedGrade_PoolIgnoredWhenWeighted(t *testing.T) {
	result := WeightedGrade([]Category{
		{Name: "Work", Weight: 100, Assignments: []Assignment{graded(1, 80, 100)}},
		{Name: "Extra Credit", Assignments: []Assignment{graded(2, 10, 10)}},
	})

	assert.Equal(t, 80.0, result.Percentage)
	assert.Equal(t, 10.0, result.PointsEarned)
}

func TestWeightedGrade_NothingGraded(t *testing.T) {
	result := WeightedGrade([]Category{{Name: "Homework", Weight: 100}})

	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, LetterF, result.LetterGrade)
	assert.Empty(t, result.CategoryScores)
}

func TestWeightedGrade_AppliesDropRules(t *testing.T) {
	result := WeightedGrade([]Category{{
		Name:   "Quizzes",
		Weight: 100,
		Rules:  Rules{DropLowest: 1},
		Assignments: []Assignment{
			graded(1, 0, 10),
			graded(2, 9, 10),
		},
	}})

	assert.Equal(t, 90.0, result.Percentage)
}

func TestPointsGrade(t *testing.T) {
	result := PointsGrade([]Assignment{
		graded(1, 45, 50),
		graded(2, 40, 50),
		{ID: 3, PointsPossible: pts(100)},
	})

	assert.Equal(t, 85.0, result.Percentage)
	assert.Equal(t, LetterB, result.LetterGrade)
	assert.Equal(t, 85.0, result.PointsEarned)
	assert.Equal(t, 100.0, result.PointsPossible)

	empty := PointsGrade(nil)
	assert.Equal(t, 0.0, empty.Percentage)
	assert.Equal(t, LetterF, empty.LetterGrade)
}

func TestEstimateGPA(t *testing.T) {
	gpa, ok := EstimateGPA([]Letter{LetterA, LetterB, "P"})
	require.True(t, ok)
	assert.Equal(t, 3.5, gpa)

	_, ok = EstimateGPA(nil)
	assert.False(t, ok)
}
