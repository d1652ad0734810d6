// Package lms is the boundary to the learning management system. Only the
// calls grading setup and grade sync need are modelled here.
package lms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client is the set of LMS calls the grading core depends on.
type Client interface {
	GetCourse(ctx context.Context, courseID int64) (*Course, error)
	ListCategories(ctx context.Context, courseID int64) ([]Category, error)
	CreateCategory(ctx context.Context, courseID int64, name string, weight float64, rules CategoryRules) (*Category, error)
	UpdateCategoryWeight(ctx context.Context, courseID, categoryID int64, weight float64) error
	DeleteCategory(ctx context.Context, courseID, categoryID int64) error
	EnableWeightedGrading(ctx context.Context, courseID int64) error
	ApplyGlobalRules(ctx context.Context, courseID int64, policy LatePolicy) error
	ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error)
	// ListSubmissions returns one student's submissions in a course.
	ListSubmissions(ctx context.Context, courseID, studentID int64) ([]Submission, error)
}

type Course struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	CourseCode      *string `json:"course_code,omitempty"`
	WeightedGrading bool    `json:"apply_assignment_group_weights"`
}

// CategoryRules is the LMS-native drop rule representation. Zero values are
// left out of requests.
type CategoryRules struct {
	DropLowest  int     `json:"drop_lowest,omitempty"`
	DropHighest int     `json:"drop_highest,omitempty"`
	NeverDrop   []int64 `json:"never_drop,omitempty"`
}

// IsEmpty reports whether the rules carry nothing to send.
func (r CategoryRules) IsEmpty() bool {
	return r.DropLowest == 0 && r.DropHighest == 0 && len(r.NeverDrop) == 0
}

// Category is an assignment group.
type Category struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Weight float64       `json:"group_weight"`
	Rules  CategoryRules `json:"rules"`
}

type Assignment struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	CategoryID     *int64     `json:"assignment_group_id"`
	PointsPossible *float64   `json:"points_possible"`
	DueAt          *time.Time `json:"due_at"`
}

type Submission struct {
	AssignmentID  int64      `json:"assignment_id"`
	UserID        int64      `json:"user_id"`
	Score         *float64   `json:"score"`
	Grade         *string    `json:"grade"`
	WorkflowState string     `json:"workflow_state"`
	SubmittedAt   *time.Time `json:"submitted_at"`
}

// Graded reports whether the submission has been graded.
func (s *Submission) Graded() bool {
	return s != nil && s.WorkflowState == "graded"
}

// Submitted reports whether the student has turned the work in.
func (s *Submission) Submitted() bool {
	if s == nil {
		return false
	}
	switch s.WorkflowState {
	case "submitted", "graded", "pending_review":
		return true
	}
	return false
}

// LatePolicy is the course-wide late and missing submission policy.
type LatePolicy struct {
	LateSubmissionDeductionEnabled    bool    `json:"late_submission_deduction_enabled"`
	LateSubmissionDeduction           float64 `json:"late_submission_deduction,omitempty"`
	LateSubmissionInterval            string  `json:"late_submission_interval,omitempty"`
	MissingSubmissionDeductionEnabled bool    `json:"missing_submission_deduction_enabled"`
	MissingSubmissionDeduction        float64 `json:"missing_submission_deduction,omitempty"`
}

// APIError is a non-2xx answer from the LMS.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lms %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an LMS 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
