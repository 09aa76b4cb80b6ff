package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// AssessmentResultRepository persists consolidated results and their details.
type AssessmentResultRepository interface {
	GetByID(ctx context.Context, id uint) (models.AssessmentResult, error)
	FindActive(ctx context.Context, studentID, planID uint) (models.AssessmentResult, error)
	ListActive(ctx context.Context, planID *uint) ([]models.AssessmentResult, error)
	Save(ctx context.Context, result *models.AssessmentResult) error
	UpdateStatus(ctx context.Context, result *models.AssessmentResult) error
	ReplaceDuplicates(ctx context.Context, keeper *models.AssessmentResult, duplicates []models.AssessmentResult) error
}

type assessmentResultRepository struct {
	db *gorm.DB
}

// NewAssessmentResultRepository instantiates a GORM-backed repository.
func NewAssessmentResultRepository(db *gorm.DB) AssessmentResultRepository {
	return &assessmentResultRepository{db: db}
}

func (r *assessmentResultRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AssessmentResult{}).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}

func (r *assessmentResultRepository) GetByID(ctx context.Context, id uint) (models.AssessmentResult, error) {
	var result models.AssessmentResult
	if err := r.baseQuery(ctx).First(&result, id).Error; err != nil {
		return models.AssessmentResult{}, err
	}

	return result, nil
}

func (r *assessmentResultRepository) FindActive(ctx context.Context, studentID, planID uint) (models.AssessmentResult, error) {
	var result models.AssessmentResult
	if err := r.baseQuery(ctx).
		Where("student_id = ? AND assessment_plan_id = ?", studentID, planID).
		Where("status <> ?", models.ResultStatusCancelled).
		Order("id ASC").
		First(&result).Error; err != nil {
		return models.AssessmentResult{}, err
	}

	return result, nil
}

func (r *assessmentResultRepository) ListActive(ctx context.Context, planID *uint) ([]models.AssessmentResult, error) {
	query := r.baseQuery(ctx).Where("status <> ?", models.ResultStatusCancelled)
	if planID != nil {
		query = query.Where("assessment_plan_id = ?", *planID)
	}

	var results []models.AssessmentResult
	if err := query.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// Save writes the result row and every detail line in one transaction.
func (r *assessmentResultRepository) Save(ctx context.Context, result *models.AssessmentResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveResult(tx, result)
	})
}

func (r *assessmentResultRepository) UpdateStatus(ctx context.Context, result *models.AssessmentResult) error {
	result.SyncActiveKey()
	return r.db.WithContext(ctx).Model(result).
		Select("status", "active_key", "submitted_at").
		Updates(map[string]interface{}{
			"status":       result.Status,
			"active_key":   result.ActiveKey,
			"submitted_at": result.SubmittedAt,
		}).Error
}

// ReplaceDuplicates cancels the duplicates before saving the keeper so the
// keeper can claim the active key.
func (r *assessmentResultRepository) ReplaceDuplicates(ctx context.Context, keeper *models.AssessmentResult, duplicates []models.AssessmentResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range duplicates {
			duplicate := &duplicates[i]
			duplicate.Status = models.ResultStatusCancelled
			duplicate.SyncActiveKey()
			if err := tx.Model(duplicate).
				Select("status", "active_key").
				Updates(map[string]interface{}{
					"status":     duplicate.Status,
					"active_key": nil,
				}).Error; err != nil {
				return err
			}
		}

		return saveResult(tx, keeper)
	})
}

func saveResult(tx *gorm.DB, result *models.AssessmentResult) error {
	result.SyncActiveKey()

	if result.ID == 0 {
		if err := tx.Omit(clause.Associations).Create(result).Error; err != nil {
			return err
		}
	} else if err := tx.Omit(clause.Associations).Save(result).Error; err != nil {
		return err
	}

	for i := range result.Details {
		detail := &result.Details[i]
		detail.AssessmentResultID = result.ID
		detail.Position = i + 1
		if err := tx.Save(detail).Error; err != nil {
			return err
		}
	}

	return nil
}
