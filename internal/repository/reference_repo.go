package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// ReferenceDataRepository manages the lookup records plans depend on.
type ReferenceDataRepository interface {
	FindAssessmentGroup(ctx context.Context, name string) (models.AssessmentGroup, error)
	CreateAssessmentGroup(ctx context.Context, group *models.AssessmentGroup) error
	FindGradingScale(ctx context.Context, name string) (models.GradingScale, error)
	FirstGradingScale(ctx context.Context) (models.GradingScale, error)
	CreateGradingScale(ctx context.Context, scale *models.GradingScale) error
	CriteriaExists(ctx context.Context, name string) (bool, error)
	FirstCriteriaName(ctx context.Context) (string, error)
	EnsureCriteria(ctx context.Context, name string) error
}

type referenceDataRepository struct {
	db *gorm.DB
}

// NewReferenceDataRepository constructs the repository.
func NewReferenceDataRepository(db *gorm.DB) ReferenceDataRepository {
	return &referenceDataRepository{db: db}
}

func (r *referenceDataRepository) FindAssessmentGroup(ctx context.Context, name string) (models.AssessmentGroup, error) {
	var group models.AssessmentGroup
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error; err != nil {
		return models.AssessmentGroup{}, err
	}
	return group, nil
}

func (r *referenceDataRepository) CreateAssessmentGroup(ctx context.Context, group *models.AssessmentGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *referenceDataRepository) FindGradingScale(ctx context.Context, name string) (models.GradingScale, error) {
	var scale models.GradingScale
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&scale).Error; err != nil {
		return models.GradingScale{}, err
	}
	return scale, nil
}

func (r *referenceDataRepository) FirstGradingScale(ctx context.Context) (models.GradingScale, error) {
	var scale models.GradingScale
	if err := r.db.WithContext(ctx).Order("id ASC").First(&scale).Error; err != nil {
		return models.GradingScale{}, err
	}
	return scale, nil
}

func (r *referenceDataRepository) CreateGradingScale(ctx context.Context, scale *models.GradingScale) error {
	return r.db.WithContext(ctx).Create(scale).Error
}

func (r *referenceDataRepository) CriteriaExists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AssessmentCriteria{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *referenceDataRepository) FirstCriteriaName(ctx context.Context) (string, error) {
	var criteria models.AssessmentCriteria
	if err := r.db.WithContext(ctx).Order("id ASC").First(&criteria).Error; err != nil {
		return "", err
	}
	return criteria.Name, nil
}

func (r *referenceDataRepository) EnsureCriteria(ctx context.Context, name string) error {
	exists, err := r.CriteriaExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&models.AssessmentCriteria{Name: name}).Error; err != nil && !IsDuplicateKey(err) {
		return err
	}
	return nil
}
