package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// SubmissionRepository stores the originating quiz and practical records.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	FindByExternalRef(ctx context.Context, source, externalRef string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) FindByExternalRef(ctx context.Context, source, externalRef string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("source = ? AND external_ref = ?", source, externalRef).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
