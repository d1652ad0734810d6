package models

import (
	"math"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/grading"
	"gorm.io/datatypes"
)

type FixType string

const (
	FixAuto  FixType = "auto"
	FixReset FixType = "reset"
)

type AnalysisHealth string

const (
	HealthHealthy        AnalysisHealth = "healthy"
	HealthNeedsAttention AnalysisHealth = "needs_attention"
)

type ScenarioType string

const (
	ScenarioTargetGrade      ScenarioType = "target_grade"
	ScenarioAssignmentScores ScenarioType = "assignment_scores"
)

// WeightTolerance is how far a weight sum may sit from 100 and still count as 100.
const WeightTolerance = 0.01

// weightEpsilon absorbs float error in sums like 44.44+44.44+11.11.
const weightEpsilon = 1e-9

// IsFullWeight reports whether total is within WeightTolerance of 100.
func IsFullWeight(total float64) bool {
	return math.Abs(total-100) <= WeightTolerance+weightEpsilon
}

// CategoryConfig is one assignment group an educator wants created on the LMS.
type CategoryConfig struct {
	Name   string        `json:"name" validate:"required,min=1,max=255"`
	Weight float64       `json:"weight" validate:"min=0,max=100"`
	Rules  grading.Rules `json:"rules"`
}

// GlobalRules are course-wide policies applied after the groups exist.
type GlobalRules struct {
	LatePenalty   *LatePenaltyRule   `json:"late_penalty,omitempty"`
	MissingPolicy *MissingPolicyRule `json:"missing_policy,omitempty"`
}

type LatePenaltyRule struct {
	Enabled       bool    `json:"enabled"`
	PercentPerDay float64 `json:"percent_per_day" validate:"min=0,max=100"`
}

type MissingPolicyRule struct {
	Enabled  bool `json:"enabled"`
	AutoZero bool `json:"auto_zero"`
}

// IsEmpty reports whether applying the rules would change nothing.
func (g *GlobalRules) IsEmpty() bool {
	if g == nil {
		return true
	}
	late := g.LatePenalty != nil && g.LatePenalty.Enabled
	missing := g.MissingPolicy != nil && g.MissingPolicy.Enabled
	return !late && !missing
}

// TotalWeight sums the configured weights.
func TotalWeight(categories []CategoryConfig) float64 {
	var total float64
	for _, c := range categories {
		total += c.Weight
	}
	return total
}

// CourseCategory is an LMS assignment group as last synced for a course.
type CourseCategory struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CourseID   uint           `json:"course_id" gorm:"not null;uniqueIndex:idx_course_category"`
	LMSGroupID int64          `json:"lms_group_id" gorm:"not null;uniqueIndex:idx_course_category"`
	Name       string         `json:"name" gorm:"not null;size:255"`
	Weight     float64        `json:"weight"`
	Rules      datatypes.JSON `json:"rules" gorm:"type:jsonb"` // grading.Rules

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CourseCategory) TableName() string {
	return "course_categories"
}
