package validator

import (
	"testing"

	"github.com/crisjonblvx/facultyflow/internal/grading"
	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_SetupRequest(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Homework", Weight: 30},
			{Name: "Quizzes", Weight: 30, Rules: grading.Rules{DropLowest: 1}},
			{Name: "Exams", Weight: 40},
		}}
		assert.NoError(t, v.Validate(req))
	})

	t.Run("weights off by more than tolerance", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Homework", Weight: 40},
			{Name: "Exams", Weight: 50},
		}}
		err := v.Validate(req)
		require.Error(t, err)

		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 1)
		assert.Equal(t, "weight_total", errs[0].Rule)
		assert.Equal(t, "Category weights must total 100% (currently 90%)", errs[0].Message)
	})

	t.Run("within tolerance", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "A", Weight: 33.33},
			{Name: "B", Weight: 33.33},
			{Name: "C", Weight: 33.34},
		}}
		assert.NoError(t, v.Validate(req))
	})

	t.Run("just past tolerance", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Homework", Weight: 60},
			{Name: "Exams", Weight: 40.014},
		}}
		var errs ValidationErrors
		require.ErrorAs(t, v.Validate(req), &errs)
		assert.Equal(t, "weight_total", errs[0].Rule)
	})

	t.Run("duplicate names", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Exams", Weight: 50},
			{Name: "exams", Weight: 50},
		}}
		err := v.Validate(req)
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "categories[1].name", errs[0].Field)
	})

	t.Run("struct tags use json names", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Exams", Weight: 120},
		}}
		err := v.Validate(req)
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "categories[0].weight", errs[0].Field)
		assert.Equal(t, "must be at most 100", errs[0].Message)
	})

	t.Run("negative drop count", func(t *testing.T) {
		req := &models.SetupRequest{Categories: []models.CategoryConfig{
			{Name: "Exams", Weight: 100, Rules: grading.Rules{DropLowest: -1}},
		}}
		err := v.Validate(req)
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "categories[0].rules.drop_lowest", errs[0].Field)
	})
}

func TestValidate_FixRequest(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&models.FixRequest{FixType: models.FixAuto}))
	assert.NoError(t, v.Validate(&models.FixRequest{FixType: models.FixReset}))

	err := v.Validate(&models.FixRequest{FixType: "nuke"})
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "fix_type", errs[0].Rule)
	assert.Contains(t, errs[0].Message, "auto, reset")
}

func TestValidate_WhatIfRequest(t *testing.T) {
	v := New()
	target := 90.0

	assert.NoError(t, v.Validate(&models.WhatIfRequest{
		CourseID: 1, Scenario: models.ScenarioTargetGrade, TargetGrade: &target,
	}))

	err := v.Validate(&models.WhatIfRequest{CourseID: 1, Scenario: models.ScenarioTargetGrade})
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "target_grade", errs[0].Field)

	err = v.Validate(&models.WhatIfRequest{CourseID: 1, Scenario: models.ScenarioAssignmentScores})
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "assignment_scores", errs[0].Field)

	err = v.Validate(&models.WhatIfRequest{CourseID: 1, Scenario: "guess"})
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "scenario_type", errs[0].Rule)
}
