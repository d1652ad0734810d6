package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type SnapshotFilters struct {
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Limit    int        `json:"limit"`
}

type SetupRunFilters struct {
	Operation *models.SetupOperation `json:"operation"`
	Status    *models.RunStatus      `json:"status"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

// Repository groups the per-entity repositories and owns transactions.
type Repository interface {
	Course() CourseRepository
	Assignment() AssignmentRepository
	Category() CategoryRepository
	Snapshot() SnapshotRepository
	SetupRun() SetupRunRepository

	// WithTransaction runs fn in a database transaction, passing the tx handle
	// to every repository call made inside it.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type CourseRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, course *models.StudentCourse) error
	GetByID(ctx context.Context, tx *gorm.DB, userID string, id uint) (*models.StudentCourse, error)
	GetByLMSID(ctx context.Context, tx *gorm.DB, userID string, lmsCourseID int64) (*models.StudentCourse, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.StudentCourse, error)
}

type AssignmentRepository interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, assignments []*models.StudentAssignment) error
	// DeleteMissing removes the user's rows for the course whose LMS id is not
	// in keep. An empty keep clears the course.
	DeleteMissing(ctx context.Context, tx *gorm.DB, userID string, courseID uint, keep []int64) (int64, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.StudentAssignment, error)
}

type CategoryRepository interface {
	// ReplaceForCourse makes the stored groups of a course exactly categories.
	ReplaceForCourse(ctx context.Context, tx *gorm.DB, courseID uint, categories []*models.CourseCategory) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseCategory, error)
}

type SnapshotRepository interface {
	// Upsert keeps at most one snapshot per user, course and day.
	Upsert(ctx context.Context, tx *gorm.DB, snapshot *models.GradeSnapshot) error
	ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint, filters SnapshotFilters) ([]*models.GradeSnapshot, error)
}

type SetupRunRepository interface {
	Create(ctx context.Context, tx *gorm.DB, run *models.GradingSetupRun) error
	ListByCourse(ctx context.Context, tx *gorm.DB, lmsCourseID int64, filters SetupRunFilters) ([]*models.GradingSetupRun, int64, error)
}
