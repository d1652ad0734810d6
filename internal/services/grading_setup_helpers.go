package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/crisjonblvx/facultyflow/internal/grading"
	"github.com/crisjonblvx/facultyflow/internal/lms"
	"github.com/crisjonblvx/facultyflow/internal/models"
	"gorm.io/datatypes"
)

const defaultLatePenaltyPerDay = 10

// analyzeSetup runs the four independent health checks. It never calls the LMS.
func analyzeSetup(course *lms.Course, groups []lms.Category, assignments []lms.Assignment) *AnalysisResult {
	result := &AnalysisResult{
		HasGroups:              len(groups) > 0,
		Groups:                 nonNilGroups(groups),
		WeightedGradingEnabled: course != nil && course.WeightedGrading,
		Issues:                 []string{},
		Suggestions:            []string{},
	}

	// Weighting off while several groups exist
	if !result.WeightedGradingEnabled && len(groups) > 1 {
		result.Issues = append(result.Issues, "Multiple groups exist but weighted grading not enabled")
		result.Suggestions = append(result.Suggestions, "Enable weighted grading to use category weights")
	}

	// Weight total. Checked whenever weights are in play, even with weighting off.
	total := sumWeights(groups)
	result.TotalWeight = grading.Round2(total)
	if (result.WeightedGradingEnabled || total > 0) && !models.IsFullWeight(total) {
		result.Issues = append(result.Issues, fmt.Sprintf("Weights total %s%% (should be 100%%)", formatPercent(total)))
		if total < 100 {
			result.Suggestions = append(result.Suggestions, fmt.Sprintf("Add %s%% to existing categories", formatPercent(100-total)))
		} else {
			result.Suggestions = append(result.Suggestions, fmt.Sprintf("Reduce weights by %s%%", formatPercent(total-100)))
		}
	}

	// Orphans: assignments outside every group
	used := make(map[int64]struct{}, len(groups))
	for _, a := range assignments {
		if a.CategoryID == nil || *a.CategoryID == 0 {
			result.OrphanAssignmentsCount++
			continue
		}
		used[*a.CategoryID] = struct{}{}
	}
	if result.OrphanAssignmentsCount > 0 {
		result.Issues = append(result.Issues, orphanIssue(result.OrphanAssignmentsCount))
		result.Suggestions = append(result.Suggestions, "Move orphan assignments to appropriate categories")
	}

	// Empty groups
	for _, g := range groups {
		if _, ok := used[g.ID]; !ok {
			result.EmptyGroupsCount++
		}
	}
	if result.EmptyGroupsCount > 0 {
		result.Issues = append(result.Issues, emptyIssue(result.EmptyGroupsCount))
		result.Suggestions = append(result.Suggestions, "Remove empty categories or add assignments to them")
	}

	result.Health = models.HealthHealthy
	if len(result.Issues) > 0 {
		result.Health = models.HealthNeedsAttention
	}
	return result
}

func orphanIssue(n int) string {
	return fmt.Sprintf("%d assignments not in any category", n)
}

func emptyIssue(n int) string {
	return fmt.Sprintf("%d empty categories (no assignments)", n)
}

// untouchedIssues lists what an auto fix leaves for a human.
func untouchedIssues(analysis *AnalysisResult) []string {
	issues := []string{}
	if analysis.OrphanAssignmentsCount > 0 {
		issues = append(issues, orphanIssue(analysis.OrphanAssignmentsCount))
	}
	if analysis.EmptyGroupsCount > 0 {
		issues = append(issues, emptyIssue(analysis.EmptyGroupsCount))
	}
	return issues
}

// rescaleWeights scales every group by 100/total, keeping their proportions.
func rescaleWeights(groups []lms.Category, total float64) []WeightAdjustment {
	factor := 100 / total
	out := make([]WeightAdjustment, 0, len(groups))
	for _, g := range groups {
		out = append(out, WeightAdjustment{
			GroupID:   g.ID,
			Name:      g.Name,
			OldWeight: g.Weight,
			NewWeight: grading.Round2(g.Weight * factor),
		})
	}
	return out
}

func sumWeights(groups []lms.Category) float64 {
	var total float64
	for _, g := range groups {
		total += g.Weight
	}
	return total
}

func nonNilGroups(groups []lms.Category) []lms.Category {
	if groups == nil {
		return []lms.Category{}
	}
	return groups
}

// formatPercent prints a percentage with at most two decimals and no trailing zeros.
func formatPercent(v float64) string {
	return strconv.FormatFloat(grading.Round2(v), 'f', -1, 64)
}

func toLMSRules(r grading.Rules) lms.CategoryRules {
	return lms.CategoryRules{
		DropLowest:  r.DropLowest,
		DropHighest: r.DropHighest,
		NeverDrop:   r.NeverDrop,
	}
}

func toLatePolicy(rules *models.GlobalRules) lms.LatePolicy {
	var policy lms.LatePolicy
	if rules == nil {
		return policy
	}
	if lp := rules.LatePenalty; lp != nil && lp.Enabled {
		policy.LateSubmissionDeductionEnabled = true
		policy.LateSubmissionDeduction = lp.PercentPerDay
		if policy.LateSubmissionDeduction <= 0 {
			policy.LateSubmissionDeduction = defaultLatePenaltyPerDay
		}
		policy.LateSubmissionInterval = "day"
	}
	if mp := rules.MissingPolicy; mp != nil && mp.Enabled {
		policy.MissingSubmissionDeductionEnabled = true
		if mp.AutoZero {
			policy.MissingSubmissionDeduction = 100
		}
	}
	return policy
}

// validationMessage returns the weight-total message when present, else the first field error.
func validationMessage(err error) string {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		if e, ok := ve.ForRule("weight_total"); ok {
			return e.Message
		}
		if len(ve) > 0 {
			return fmt.Sprintf("%s %s", ve[0].Field, ve[0].Message)
		}
	}
	return err.Error()
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
