package models

import (
	"time"

	"gorm.io/datatypes"
)

type SetupOperation string

const (
	OperationSetup    SetupOperation = "setup"
	OperationAnalyze  SetupOperation = "analyze"
	OperationFixAuto  SetupOperation = "fix_auto"
	OperationFixReset SetupOperation = "fix_reset"
)

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// GradingSetupRun records one setup, analyze or fix invocation against a
// course so partial failures can be traced after the fact.
type GradingSetupRun struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	LMSCourseID int64          `json:"lms_course_id" gorm:"not null;index"`
	Operation   SetupOperation `json:"operation" gorm:"not null;size:20;index"`
	Status      RunStatus      `json:"status" gorm:"not null;size:20"`
	Step        string         `json:"step,omitempty" gorm:"size:50"` // failing step, empty on success
	Message     string         `json:"message" gorm:"type:text"`
	Details     datatypes.JSON `json:"details" gorm:"type:jsonb"`
	ActorID     string         `json:"actor_id" gorm:"size:64;index"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (GradingSetupRun) TableName() string {
	return "grading_setup_runs"
}

// AllModels lists every persisted model for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&StudentCourse{},
		&StudentAssignment{},
		&CourseCategory{},
		&GradeSnapshot{},
		&GradingSetupRun{},
	}
}
