package postgres

import (
	"context"
	"fmt"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"gorm.io/gorm"
)

type CategoryPostgreSQL struct {
	db *gorm.DB
}

func NewCategoryPostgreSQL(db *gorm.DB) repositories.CategoryRepository {
	return &CategoryPostgreSQL{db: db}
}

// ReplaceForCourse deletes groups that vanished from the LMS and rewrites the rest.
func (c *CategoryPostgreSQL) ReplaceForCourse(ctx context.Context, tx *gorm.DB, courseID uint, categories []*models.CourseCategory) error {
	db := c.getDB(tx).WithContext(ctx)

	if err := db.Where("course_id = ?", courseID).Delete(&models.CourseCategory{}).Error; err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	if len(categories) == 0 {
		return nil
	}
	for _, cat := range categories {
		cat.ID = 0
		cat.CourseID = courseID
	}
	if err := db.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to store categories: %w", err)
	}
	return nil
}

func (c *CategoryPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseCategory, error) {
	db := c.getDB(tx)
	var categories []*models.CourseCategory
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (c *CategoryPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pick(c.db, tx)
}
