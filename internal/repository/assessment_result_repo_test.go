package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/models"
)

func TestAssessmentResultRepositorySaveWritesDetailsInOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentResultRepository(db)
	ctx := context.Background()

	result := models.AssessmentResult{
		StudentID:        1,
		AssessmentPlanID: 2,
		StudentGroupID:   3,
		Status:           models.ResultStatusDraft,
		Details: []models.AssessmentResultDetail{
			{CriterionName: "Quiz Assessment", Score: 80, MaximumScore: 80},
			{CriterionName: "Practical Assessment", Score: 75, MaximumScore: 100},
		},
	}
	result.RecomputeTotals()
	require.NoError(t, repo.Save(ctx, &result))
	require.NotZero(t, result.ID)

	stored, err := repo.FindActive(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, result.ID, stored.ID)
	require.Len(t, stored.Details, 2)
	require.Equal(t, "Quiz Assessment", stored.Details[0].CriterionName)
	require.Equal(t, 2, stored.Details[1].Position)
	require.Equal(t, 155.0, stored.TotalScore)

	stored.Details[0].Score = 40
	stored.RecomputeTotals()
	require.NoError(t, repo.Save(ctx, &stored))

	reloaded, err := repo.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Details, 2, "saving again must update details in place")
	require.Equal(t, 40.0, reloaded.Details[0].Score)
	require.Equal(t, 115.0, reloaded.TotalScore)
}

func TestAssessmentResultRepositoryRejectsSecondActiveResult(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentResultRepository(db)
	ctx := context.Background()

	first := models.AssessmentResult{StudentID: 1, AssessmentPlanID: 2, StudentGroupID: 3, Status: models.ResultStatusDraft}
	require.NoError(t, repo.Save(ctx, &first))

	second := models.AssessmentResult{StudentID: 1, AssessmentPlanID: 2, StudentGroupID: 3, Status: models.ResultStatusDraft}
	err := repo.Save(ctx, &second)
	require.Error(t, err)
	require.True(t, IsDuplicateKey(err))

	cancelled := models.AssessmentResult{StudentID: 1, AssessmentPlanID: 2, StudentGroupID: 3, Status: models.ResultStatusCancelled}
	require.NoError(t, repo.Save(ctx, &cancelled), "cancelled results do not hold the active key")
}

func TestAssessmentResultRepositoryReplaceDuplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentResultRepository(db)
	ctx := context.Background()

	keeper := models.AssessmentResult{StudentID: 1, AssessmentPlanID: 2, StudentGroupID: 3, Status: models.ResultStatusDraft}
	require.NoError(t, repo.Save(ctx, &keeper))

	// legacy rows written before the active key existed
	duplicate := models.AssessmentResult{StudentID: 1, AssessmentPlanID: 2, StudentGroupID: 3, Status: models.ResultStatusDraft}
	require.NoError(t, db.Omit("active_key").Create(&duplicate).Error)

	planID := uint(2)
	active, err := repo.ListActive(ctx, &planID)
	require.NoError(t, err)
	require.Len(t, active, 2)

	keeper.Details = []models.AssessmentResultDetail{{CriterionName: "Quiz Assessment", Score: 8, MaximumScore: 10}}
	keeper.RecomputeTotals()
	require.NoError(t, repo.ReplaceDuplicates(ctx, &keeper, []models.AssessmentResult{duplicate}))

	active, err = repo.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, keeper.ID, active[0].ID)
	require.Equal(t, 8.0, active[0].TotalScore)

	cancelled, err := repo.GetByID(ctx, duplicate.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusCancelled, cancelled.Status)
	require.Nil(t, cancelled.ActiveKey)
}

func TestAssessmentResultRepositoryUpdateStatusReleasesKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentResultRepository(db)
	ctx := context.Background()

	result := models.AssessmentResult{StudentID: 5, AssessmentPlanID: 6, StudentGroupID: 7, Status: models.ResultStatusDraft}
	require.NoError(t, repo.Save(ctx, &result))

	result.Status = models.ResultStatusCancelled
	require.NoError(t, repo.UpdateStatus(ctx, &result))

	_, err := repo.FindActive(ctx, 5, 6)
	require.True(t, IsNotFound(err))
}
