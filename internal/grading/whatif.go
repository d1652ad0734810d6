package grading

import "fmt"

// Outcome tags the result of a target projection so callers have to look at
// which case they got.
type Outcome string

const (
	OutcomeAchievable      Outcome = "achievable"
	OutcomeUnachievable    Outcome = "unachievable"
	OutcomeNoRemainingWork Outcome = "no_remaining_work"
	OutcomeNoAssignments   Outcome = "no_assignments"
)

// TargetProjection is what it takes on the remaining work to reach a target.
// NeededPercentage is never clamped: 115 means the target is out of reach.
type TargetProjection struct {
	Outcome          Outcome `json:"outcome"`
	Achievable       bool    `json:"achievable"`
	NeededScore      float64 `json:"needed_score"`
	NeededPercentage float64 `json:"needed_percentage"`
	TargetLetter     Letter  `json:"target_letter"`
	Message          string  `json:"message"`
}

// WhatIfTarget solves for the average percentage needed on the remaining
// points to finish at targetPercentage of all points.
func WhatIfTarget(currentEarned, currentPossible, remainingPossible, targetPercentage float64) TargetProjection {
	letter := PercentageToLetter(targetPercentage)

	totalPossible := currentPossible + remainingPossible
	if totalPossible <= 0 {
		return TargetProjection{
			Outcome:      OutcomeNoAssignments,
			TargetLetter: letter,
			Message:      "No assignments available",
		}
	}

	if remainingPossible <= 0 {
		achievable := currentPossible > 0 && currentEarned/currentPossible*100 >= targetPercentage
		return TargetProjection{
			Outcome:      OutcomeNoRemainingWork,
			Achievable:   achievable,
			TargetLetter: letter,
			Message:      "No remaining assignments.",
		}
	}

	neededTotal := targetPercentage / 100 * totalPossible
	neededRemaining := neededTotal - currentEarned
	neededPct := neededRemaining / remainingPossible * 100

	if neededPct > 100 {
		return TargetProjection{
			Outcome:          OutcomeUnachievable,
			NeededScore:      Round2(neededRemaining),
			NeededPercentage: Round2(neededPct),
			TargetLetter:     letter,
			Message:          fmt.Sprintf("Would need %.1f%% on remaining work - not achievable.", neededPct),
		}
	}

	return TargetProjection{
		Outcome:          OutcomeAchievable,
		Achievable:       true,
		NeededScore:      Round2(neededRemaining),
		NeededPercentage: Round2(neededPct),
		TargetLetter:     letter,
		Message:          fmt.Sprintf("Need %.1f%% average on remaining assignments to get %s", neededPct, letter),
	}
}

// WhatIfScores projects a points grade with hypothetical scores laid over the
// matching assignments, which then count as graded. The input is not touched.
func WhatIfScores(assignments []Assignment, hypothetical map[int64]float64) PointsResult {
	modified := make([]Assignment, len(assignments))
	for i, a := range assignments {
		if score, ok := hypothetical[a.ID]; ok {
			s := score
			a.Score = &s
			a.Graded = true
		}
		modified[i] = a
	}
	return PointsGrade(modified)
}

// TargetInputs splits a snapshot into the current earned and possible points
// over graded work and the possible points still outstanding.
func TargetInputs(assignments []Assignment) (earned, possible, remaining float64) {
	for _, a := range assignments {
		if a.PointsPossible == nil || *a.PointsPossible <= 0 {
			continue
		}
		if a.Graded {
			earned += a.earned()
			possible += *a.PointsPossible
		} else {
			remaining += *a.PointsPossible
		}
	}
	return earned, possible, remaining
}
