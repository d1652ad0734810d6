package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CoursePostgreSQL struct {
	db *gorm.DB
}

func NewCoursePostgreSQL(db *gorm.DB) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db}
}

// Upsert inserts the course or refreshes its LMS fields, filling course.ID either way.
func (c *CoursePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, course *models.StudentCourse) error {
	db := c.getDB(tx)
	err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lms_course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "code", "last_synced_at", "updated_at"}),
		}).
		Create(course).Error
	if err != nil {
		return fmt.Errorf("failed to upsert course %d: %w", course.LMSCourseID, err)
	}

	if course.ID == 0 {
		existing, err := c.GetByLMSID(ctx, tx, course.UserID, course.LMSCourseID)
		if err != nil {
			return err
		}
		course.ID = existing.ID
	}
	return nil
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, userID string, id uint) (*models.StudentCourse, error) {
	db := c.getDB(tx)
	var course models.StudentCourse
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (c *CoursePostgreSQL) GetByLMSID(ctx context.Context, tx *gorm.DB, userID string, lmsCourseID int64) (*models.StudentCourse, error) {
	db := c.getDB(tx)
	var course models.StudentCourse
	if err := db.WithContext(ctx).
		Where("user_id = ? AND lms_course_id = ?", userID, lmsCourseID).
		First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course by LMS id: %w", err)
	}
	return &course, nil
}

func (c *CoursePostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.StudentCourse, error) {
	db := c.getDB(tx)
	var courses []*models.StudentCourse
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pick(c.db, tx)
}
