package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// StudentGroupRepository manages student groups and their membership.
type StudentGroupRepository interface {
	GetByID(ctx context.Context, id uint) (models.StudentGroup, error)
	FindByCourse(ctx context.Context, courseID uint) (models.StudentGroup, error)
	FindByName(ctx context.Context, name string) (models.StudentGroup, error)
	Create(ctx context.Context, group *models.StudentGroup) error
	IsMember(ctx context.Context, groupID, studentID uint) (bool, error)
	AddMember(ctx context.Context, groupID, studentID uint) error
}

type studentGroupRepository struct {
	db *gorm.DB
}

// NewStudentGroupRepository constructs the repository.
func NewStudentGroupRepository(db *gorm.DB) StudentGroupRepository {
	return &studentGroupRepository{db: db}
}

func (r *studentGroupRepository) GetByID(ctx context.Context, id uint) (models.StudentGroup, error) {
	var group models.StudentGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return models.StudentGroup{}, err
	}

	return group, nil
}

// FindByCourse returns the oldest enabled group studying the course.
func (r *studentGroupRepository) FindByCourse(ctx context.Context, courseID uint) (models.StudentGroup, error) {
	var group models.StudentGroup
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("disabled = ?", false).
		Order("id ASC").
		First(&group).Error; err != nil {
		return models.StudentGroup{}, err
	}

	return group, nil
}

func (r *studentGroupRepository) FindByName(ctx context.Context, name string) (models.StudentGroup, error) {
	var group models.StudentGroup
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error; err != nil {
		return models.StudentGroup{}, err
	}

	return group, nil
}

func (r *studentGroupRepository) Create(ctx context.Context, group *models.StudentGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *studentGroupRepository) IsMember(ctx context.Context, groupID, studentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StudentGroupMember{}).
		Where("student_group_id = ? AND student_id = ?", groupID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// AddMember is idempotent: an existing membership is not an error.
func (r *studentGroupRepository) AddMember(ctx context.Context, groupID, studentID uint) error {
	member := models.StudentGroupMember{StudentGroupID: groupID, StudentID: studentID}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil
		}
		return err
	}

	return nil
}
