package models

import "github.com/crisjonblvx/facultyflow/internal/grading"

// SetupRequest creates weighted assignment groups on an LMS course.
type SetupRequest struct {
	Categories  []CategoryConfig `json:"categories" validate:"required,min=1,dive"`
	GlobalRules *GlobalRules     `json:"global_rules,omitempty"`
}

type FixRequest struct {
	FixType FixType `json:"fix_type" validate:"required,fix_type"`
}

// WhatIfRequest asks for a projection against one synced course.
type WhatIfRequest struct {
	CourseID         uint              `json:"course_id" validate:"required"`
	Scenario         ScenarioType      `json:"scenario" validate:"required,scenario_type"`
	TargetGrade      *float64          `json:"target_grade,omitempty" validate:"omitempty,min=0,max=100"`
	AssignmentScores map[int64]float64 `json:"assignment_scores,omitempty" validate:"omitempty,dive,min=0"`
}

// CalculateCategory is a posted category for the stateless calculator.
type CalculateCategory struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Weight      float64              `json:"weight" validate:"min=0,max=100"`
	Rules       grading.Rules        `json:"rules"`
	Assignments []grading.Assignment `json:"assignments" validate:"dive"`
}

type CalculateRequest struct {
	Categories []CalculateCategory `json:"categories" validate:"required,min=1,dive"`
}
