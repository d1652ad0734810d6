package services

import (
	"errors"
	"fmt"

	apperrors "github.com/crisjonblvx/facultyflow/internal/errors"
	"github.com/crisjonblvx/facultyflow/internal/lms"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Course specific errors
	ErrCourseNotSynced     = errors.New("course has not been synced for this user")
	ErrLMSAccountNotLinked = errors.New("no LMS account is linked to this user")

	// Request specific errors
	ErrInvalidFixType  = errors.New("invalid fix type")
	ErrInvalidScenario = errors.New("invalid what-if scenario")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// Setup step names reported in StepError and SetupResult.
const (
	StepValidate      = "validate"
	StepCreateGroups  = "create_groups"
	StepEnableWeights = "enable_weighting"
	StepGlobalRules   = "apply_global_rules"
	StepVerify        = "verify"
	StepFetchCourse   = "fetch_course"
	StepFetchGroups   = "fetch_groups"
	StepFetchWork     = "fetch_assignments"
	StepFetchScores   = "fetch_submissions"
	StepUpdateWeights = "update_weights"
	StepDeleteGroups  = "delete_groups"
)

// StepError is an LMS failure annotated with the orchestration step it broke.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotSynced) ||
		lms.IsNotFound(err)
}

// IsUnauthorized checks if the LMS rejected our credentials
func IsUnauthorized(err error) bool {
	var apiErr *lms.APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidFixType) || errors.Is(err, ErrInvalidScenario) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsUpstream checks if error came from the LMS rather than from us
func IsUpstream(err error) bool {
	var apiErr *lms.APIError
	var stepErr *StepError
	return errors.As(err, &apiErr) || errors.As(err, &stepErr)
}
