package models

import (
	"time"

	"github.com/crisjonblvx/facultyflow/internal/grading"
	"gorm.io/datatypes"
)

type StudentCourse struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_student_course"`
	LMSCourseID  int64      `json:"lms_course_id" gorm:"not null;uniqueIndex:idx_student_course"`
	Name         string     `json:"name" gorm:"not null;size:255"`
	Code         *string    `json:"code" gorm:"size:100"`
	LastSyncedAt *time.Time `json:"last_synced_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assignments []StudentAssignment `json:"assignments,omitempty" gorm:"foreignKey:CourseID"`
	Categories  []CourseCategory    `json:"categories,omitempty" gorm:"foreignKey:CourseID"`
}

func (StudentCourse) TableName() string {
	return "student_courses"
}

// StudentAssignment is the synced assignment record a grade is computed from.
type StudentAssignment struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	UserID          string `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_student_assignment"`
	CourseID        uint   `json:"course_id" gorm:"not null;index;uniqueIndex:idx_student_assignment"`
	LMSAssignmentID int64  `json:"lms_assignment_id" gorm:"not null;uniqueIndex:idx_student_assignment"`
	Name            string `json:"name" gorm:"not null;size:255"`

	PointsPossible *float64   `json:"points_possible"`
	Score          *float64   `json:"score"`
	Grade          *string    `json:"grade" gorm:"size:50"`
	Graded         bool       `json:"graded" gorm:"default:false"`
	Submitted      bool       `json:"submitted" gorm:"default:false"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	DueAt          *time.Time `json:"due_at"`

	AssignmentGroupID     *int64   `json:"assignment_group_id"`
	AssignmentGroupName   *string  `json:"assignment_group_name" gorm:"size:255"`
	AssignmentGroupWeight *float64 `json:"assignment_group_weight"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentAssignment) TableName() string {
	return "student_assignments"
}

// ToGrading converts the record into the calculator's snapshot form.
func (a StudentAssignment) ToGrading() grading.Assignment {
	out := grading.Assignment{
		ID:             a.LMSAssignmentID,
		Name:           a.Name,
		PointsPossible: a.PointsPossible,
		Score:          a.Score,
		Graded:         a.Graded,
		GroupWeight:    a.AssignmentGroupWeight,
	}
	if a.AssignmentGroupName != nil {
		out.GroupName = *a.AssignmentGroupName
	}
	return out
}

// GradeSnapshot is one point on a course's grade history, at most one per day.
type GradeSnapshot struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         string         `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_grade_snapshot"`
	CourseID       uint           `json:"course_id" gorm:"not null;uniqueIndex:idx_grade_snapshot"`
	SnapshotDate   time.Time      `json:"snapshot_date" gorm:"type:date;not null;uniqueIndex:idx_grade_snapshot"`
	Percentage     float64        `json:"percentage"`
	Letter         string         `json:"letter" gorm:"size:2"`
	PointsEarned   float64        `json:"points_earned"`
	PointsPossible float64        `json:"points_possible"`
	Categories     datatypes.JSON `json:"categories" gorm:"type:jsonb"` // map[string]grading.CategoryBreakdown

	CreatedAt time.Time `json:"created_at"`
}

func (GradeSnapshot) TableName() string {
	return "grade_snapshots"
}
