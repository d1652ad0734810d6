package validator

import (
	"fmt"
	"strings"

	"github.com/crisjonblvx/facultyflow/internal/models"
)

// BusinessValidator checks rules that span several fields
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// Validate dispatches on the request type. Unknown types pass.
func (b *BusinessValidator) Validate(s interface{}) ValidationErrors {
	switch req := s.(type) {
	case *models.SetupRequest:
		return b.ValidateSetup(req.Categories)
	case models.SetupRequest:
		return b.ValidateSetup(req.Categories)
	case *models.WhatIfRequest:
		return b.ValidateWhatIf(req)
	case models.WhatIfRequest:
		return b.ValidateWhatIf(&req)
	}
	return nil
}

// ValidateSetup enforces a 100% weight total and unique category names.
func (b *BusinessValidator) ValidateSetup(categories []models.CategoryConfig) ValidationErrors {
	var errors ValidationErrors

	if len(categories) == 0 {
		errors = append(errors, *NewValidationError("categories", "at least one category is required", nil))
		return errors
	}

	total := models.TotalWeight(categories)
	if !models.IsFullWeight(total) {
		errors = append(errors, ValidationError{
			Field:   "categories",
			Message: fmt.Sprintf("Category weights must total 100%% (currently %g%%)", total),
			Value:   total,
			Rule:    "weight_total",
		})
	}

	seen := make(map[string]int, len(categories))
	for i, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			errors = append(errors, *NewValidationError(fmt.Sprintf("categories[%d].name", i), "is required", c.Name))
			continue
		}
		key := strings.ToLower(name)
		if first, dup := seen[key]; dup {
			errors = append(errors, *NewValidationError(fmt.Sprintf("categories[%d].name", i),
				fmt.Sprintf("duplicates categories[%d].name", first), c.Name))
			continue
		}
		seen[key] = i

		if c.Rules.DropLowest < 0 {
			errors = append(errors, *NewValidationError(fmt.Sprintf("categories[%d].rules.drop_lowest", i), "must be at least 0", c.Rules.DropLowest))
		}
		if c.Rules.DropHighest < 0 {
			errors = append(errors, *NewValidationError(fmt.Sprintf("categories[%d].rules.drop_highest", i), "must be at least 0", c.Rules.DropHighest))
		}
	}

	return errors
}

// ValidateWhatIf requires the input that the chosen scenario needs.
func (b *BusinessValidator) ValidateWhatIf(req *models.WhatIfRequest) ValidationErrors {
	var errors ValidationErrors

	switch req.Scenario {
	case models.ScenarioTargetGrade:
		if req.TargetGrade == nil {
			errors = append(errors, *NewValidationError("target_grade", "is required for target_grade scenario", nil))
		}
	case models.ScenarioAssignmentScores:
		if len(req.AssignmentScores) == 0 {
			errors = append(errors, *NewValidationError("assignment_scores", "is required for assignment_scores scenario", nil))
		}
	}

	return errors
}
