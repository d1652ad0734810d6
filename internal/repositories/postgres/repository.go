package postgres

import (
	"context"

	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db         *gorm.DB
	course     repositories.CourseRepository
	assignment repositories.AssignmentRepository
	category   repositories.CategoryRepository
	snapshot   repositories.SnapshotRepository
	setupRun   repositories.SetupRunRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:         db,
		course:     NewCoursePostgreSQL(db),
		assignment: NewAssignmentPostgreSQL(db),
		category:   NewCategoryPostgreSQL(db),
		snapshot:   NewSnapshotPostgreSQL(db),
		setupRun:   NewSetupRunPostgreSQL(db),
	}
}

func (r *Repository) Course() repositories.CourseRepository         { return r.course }
func (r *Repository) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *Repository) Category() repositories.CategoryRepository     { return r.category }
func (r *Repository) Snapshot() repositories.SnapshotRepository     { return r.snapshot }
func (r *Repository) SetupRun() repositories.SetupRunRepository     { return r.setupRun }

func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// pick returns the transaction handle when one is in flight.
func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
