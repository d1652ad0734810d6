package postgres

import (
	"context"
	"fmt"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const assignmentBatchSize = 200

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) UpsertBatch(ctx context.Context, tx *gorm.DB, assignments []*models.StudentAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	db := a.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "lms_assignment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "points_possible", "score", "grade", "graded", "submitted",
				"submitted_at", "due_at", "assignment_group_id", "assignment_group_name",
				"assignment_group_weight", "updated_at",
			}),
		}).
		CreateInBatches(assignments, assignmentBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert assignments: %w", err)
	}
	return nil
}

func (a *AssignmentPostgreSQL) DeleteMissing(ctx context.Context, tx *gorm.DB, userID string, courseID uint, keep []int64) (int64, error) {
	db := a.getDB(tx)
	query := db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID)
	if len(keep) > 0 {
		query = query.Where("lms_assignment_id NOT IN ?", keep)
	}
	result := query.Delete(&models.StudentAssignment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete removed assignments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (a *AssignmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.StudentAssignment, error) {
	db := a.getDB(tx)
	var assignments []*models.StudentAssignment
	if err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("due_at ASC NULLS LAST, id ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pick(a.db, tx)
}
