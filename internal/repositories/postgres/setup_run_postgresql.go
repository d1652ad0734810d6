package postgres

import (
	"context"
	"fmt"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
)

type SetupRunPostgreSQL struct {
	db *gorm.DB
}

func NewSetupRunPostgreSQL(db *gorm.DB) repositories.SetupRunRepository {
	return &SetupRunPostgreSQL{db: db}
}

func (s *SetupRunPostgreSQL) Create(ctx context.Context, tx *gorm.DB, run *models.GradingSetupRun) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record setup run: %w", err)
	}
	return nil
}

func (s *SetupRunPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, lmsCourseID int64, filters repositories.SetupRunFilters) ([]*models.GradingSetupRun, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).Model(&models.GradingSetupRun{}).Where("lms_course_id = ?", lmsCourseID)

	if filters.Operation != nil {
		query = query.Where("operation = ?", *filters.Operation)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count setup runs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var runs []*models.GradingSetupRun
	if err := query.Order("created_at DESC").Limit(limit).Offset(filters.Offset).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list setup runs: %w", err)
	}
	return runs, total, nil
}

func (s *SetupRunPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pick(s.db, tx)
}
