package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// ScheduleRepository answers which windows a group already occupies on a date.
type ScheduleRepository interface {
	ListOccupied(ctx context.Context, groupID uint, date string, excludePlanID uint) ([]models.Window, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs a read-only schedule repository.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// ListOccupied merges non-cancelled course schedule entries and assessment
// plans of the group on the date.
func (r *scheduleRepository) ListOccupied(ctx context.Context, groupID uint, date string, excludePlanID uint) ([]models.Window, error) {
	var schedules []models.CourseSchedule
	if err := r.db.WithContext(ctx).
		Where("student_group_id = ? AND schedule_date = ?", groupID, date).
		Where("status <> ?", models.CourseScheduleStatusCancelled).
		Find(&schedules).Error; err != nil {
		return nil, err
	}

	planQuery := r.db.WithContext(ctx).
		Where("student_group_id = ? AND schedule_date = ?", groupID, date).
		Where("status <> ?", models.PlanStatusCancelled)
	if excludePlanID > 0 {
		planQuery = planQuery.Where("id <> ?", excludePlanID)
	}

	var plans []models.AssessmentPlan
	if err := planQuery.Find(&plans).Error; err != nil {
		return nil, err
	}

	windows := make([]models.Window, 0, len(schedules)+len(plans))
	for _, schedule := range schedules {
		window, err := schedule.Window()
		if err != nil {
			return nil, fmt.Errorf("course schedule %d: %w", schedule.ID, err)
		}
		windows = append(windows, window)
	}
	for _, plan := range plans {
		window, err := plan.Window()
		if err != nil {
			return nil, fmt.Errorf("assessment plan %d: %w", plan.ID, err)
		}
		windows = append(windows, window)
	}

	return windows, nil
}
