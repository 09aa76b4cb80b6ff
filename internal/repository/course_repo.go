package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// CourseRepository reads course records.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a GORM-backed course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}
