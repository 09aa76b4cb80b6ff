package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	FindByLogin(ctx context.Context, login string) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

// FindByLogin matches the platform user id first and falls back to the email.
func (r *studentRepository) FindByLogin(ctx context.Context, login string) (models.Student, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	var student models.Student
	err := r.db.WithContext(ctx).Where("user_id = ?", login).Order("id ASC").First(&student).Error
	if err == nil {
		return student, nil
	}
	if !IsNotFound(err) {
		return models.Student{}, err
	}

	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(login)).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}
