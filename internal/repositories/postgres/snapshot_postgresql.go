package postgres

import (
	"context"
	"fmt"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotPostgreSQL struct {
	db *gorm.DB
}

func NewSnapshotPostgreSQL(db *gorm.DB) repositories.SnapshotRepository {
	return &SnapshotPostgreSQL{db: db}
}

func (s *SnapshotPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, snapshot *models.GradeSnapshot) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"percentage", "letter", "points_earned", "points_possible", "categories"}),
		}).
		Create(snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to upsert grade snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint, filters repositories.SnapshotFilters) ([]*models.GradeSnapshot, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID)

	if filters.DateFrom != nil {
		query = query.Where("snapshot_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("snapshot_date <= ?", *filters.DateTo)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var snapshots []*models.GradeSnapshot
	if err := query.Order("snapshot_date ASC").Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to list grade snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *SnapshotPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pick(s.db, tx)
}
