package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssessmentResultRecomputeTotals(t *testing.T) {
	result := AssessmentResult{Details: []AssessmentResultDetail{
		{CriterionName: "Quiz Assessment", Score: 80, MaximumScore: 80},
		{CriterionName: "Practical Assessment", Score: 75, MaximumScore: 100},
	}}
	result.TotalScore = 999

	result.RecomputeTotals()

	require.Equal(t, 155.0, result.TotalScore)
	require.Equal(t, 180.0, result.MaximumScore)
	require.Equal(t, 1, result.DetailIndex("Practical Assessment"))
	require.Equal(t, -1, result.DetailIndex("practical assessment"))
}

func TestActiveKeysFollowStatus(t *testing.T) {
	result := AssessmentResult{StudentID: 4, AssessmentPlanID: 9, Status: ResultStatusDraft}
	result.SyncActiveKey()
	require.NotNil(t, result.ActiveKey)
	require.Equal(t, "4:9", *result.ActiveKey)

	result.Status = ResultStatusCancelled
	result.SyncActiveKey()
	require.Nil(t, result.ActiveKey)

	plan := AssessmentPlan{StudentGroupID: 2, CourseID: 3, Status: PlanStatusDraft}
	plan.SyncActiveKey()
	require.Equal(t, "2:3", *plan.ActiveKey)
	require.False(t, plan.IsFinalized())
}

func TestPlanCriteriaHelpers(t *testing.T) {
	plan := AssessmentPlan{Criteria: []AssessmentPlanCriterion{
		{CriterionName: "Written Assessment", MaximumScore: 60},
		{CriterionName: "Quiz Assessment", MaximumScore: 40},
	}}

	criterion, idx, found := plan.CriterionByName("Quiz Assessment")
	require.True(t, found)
	require.Equal(t, 1, idx)
	require.Equal(t, 40.0, criterion.MaximumScore)
	require.Equal(t, 100.0, plan.CriteriaTotal())

	_, _, found = plan.CriterionByName("Oral Assessment")
	require.False(t, found)
}

func TestChecklistScore(t *testing.T) {
	items := make([]ChecklistItem, 12)
	for i := 0; i < 9; i++ {
		items[i].Mark = true
	}

	checked, total := ChecklistScore(items)
	require.Equal(t, 9.0, checked)
	require.Equal(t, 12.0, total)
}
