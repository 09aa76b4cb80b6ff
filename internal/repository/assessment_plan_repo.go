package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// AssessmentPlanRepository persists assessment plans and their criteria.
type AssessmentPlanRepository interface {
	GetByID(ctx context.Context, id uint) (models.AssessmentPlan, error)
	FindActive(ctx context.Context, groupID, courseID uint) (models.AssessmentPlan, error)
	Create(ctx context.Context, plan *models.AssessmentPlan) error
	UpdateStatus(ctx context.Context, plan *models.AssessmentPlan) error
	SaveCriterion(ctx context.Context, criterion *models.AssessmentPlanCriterion) error
}

type assessmentPlanRepository struct {
	db *gorm.DB
}

// NewAssessmentPlanRepository instantiates a GORM-backed repository.
func NewAssessmentPlanRepository(db *gorm.DB) AssessmentPlanRepository {
	return &assessmentPlanRepository{db: db}
}

func (r *assessmentPlanRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AssessmentPlan{}).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}

func (r *assessmentPlanRepository) GetByID(ctx context.Context, id uint) (models.AssessmentPlan, error) {
	var plan models.AssessmentPlan
	if err := r.baseQuery(ctx).First(&plan, id).Error; err != nil {
		return models.AssessmentPlan{}, err
	}

	return plan, nil
}

func (r *assessmentPlanRepository) FindActive(ctx context.Context, groupID, courseID uint) (models.AssessmentPlan, error) {
	var plan models.AssessmentPlan
	if err := r.baseQuery(ctx).
		Where("student_group_id = ? AND course_id = ?", groupID, courseID).
		Where("status <> ?", models.PlanStatusCancelled).
		Order("id ASC").
		First(&plan).Error; err != nil {
		return models.AssessmentPlan{}, err
	}

	return plan, nil
}

// Create inserts the plan together with its initial criteria.
func (r *assessmentPlanRepository) Create(ctx context.Context, plan *models.AssessmentPlan) error {
	plan.SyncActiveKey()
	for i := range plan.Criteria {
		if plan.Criteria[i].Position == 0 {
			plan.Criteria[i].Position = i + 1
		}
	}
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *assessmentPlanRepository) UpdateStatus(ctx context.Context, plan *models.AssessmentPlan) error {
	plan.SyncActiveKey()
	return r.db.WithContext(ctx).Model(plan).
		Select("status", "status_note", "active_key").
		Updates(map[string]interface{}{
			"status":      plan.Status,
			"status_note": plan.StatusNote,
			"active_key":  plan.ActiveKey,
		}).Error
}

func (r *assessmentPlanRepository) SaveCriterion(ctx context.Context, criterion *models.AssessmentPlanCriterion) error {
	return r.db.WithContext(ctx).Save(criterion).Error
}
