package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/models"
)

func TestScheduleRepositoryListOccupiedMergesSchedulesAndPlans(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	schedules := []models.CourseSchedule{
		{StudentGroupID: 1, CourseID: 1, ScheduleDate: "2026-03-02", FromTime: "9:00", ToTime: "12:00:00", Status: models.CourseScheduleStatusScheduled},
		{StudentGroupID: 1, CourseID: 1, ScheduleDate: "2026-03-02", FromTime: "13:00", ToTime: "15:00", Status: models.CourseScheduleStatusCancelled},
		{StudentGroupID: 1, CourseID: 1, ScheduleDate: "2026-03-03", FromTime: "09:00", ToTime: "17:00", Status: models.CourseScheduleStatusScheduled},
		{StudentGroupID: 2, CourseID: 1, ScheduleDate: "2026-03-02", FromTime: "06:00", ToTime: "08:00", Status: models.CourseScheduleStatusScheduled},
	}
	require.NoError(t, db.Create(&schedules).Error)

	kept := models.AssessmentPlan{Name: "Welding", StudentGroupID: 1, CourseID: 2, AssessmentGroupID: 1, GradingScaleID: 1,
		ScheduleDate: "2026-03-02", FromTime: "18:00:00", ToTime: "20:00:00", MaximumScore: 100, Status: models.PlanStatusFinalized}
	excluded := models.AssessmentPlan{Name: "Rigging", StudentGroupID: 1, CourseID: 3, AssessmentGroupID: 1, GradingScaleID: 1,
		ScheduleDate: "2026-03-02", FromTime: "06:00:00", ToTime: "08:00:00", MaximumScore: 100, Status: models.PlanStatusDraft}
	require.NoError(t, db.Create(&kept).Error)
	require.NoError(t, db.Create(&excluded).Error)

	windows, err := repo.ListOccupied(ctx, 1, "2026-03-02", excluded.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []models.Window{
		{Start: models.Clock(9, 0, 0), End: models.Clock(12, 0, 0)},
		{Start: models.Clock(18, 0, 0), End: models.Clock(20, 0, 0)},
	}, windows)

	windows, err = repo.ListOccupied(ctx, 1, "2026-03-02", 0)
	require.NoError(t, err)
	require.Len(t, windows, 3)
}

func TestScheduleRepositoryListOccupiedFailsOnMalformedRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepository(db)

	broken := models.CourseSchedule{StudentGroupID: 1, CourseID: 1, ScheduleDate: "2026-03-02", FromTime: "nine", ToTime: "17:00"}
	require.NoError(t, db.Create(&broken).Error)

	_, err := repo.ListOccupied(context.Background(), 1, "2026-03-02", 0)
	require.Error(t, err)
}
