package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/models"
)

func (f *engineFixture) submissionService(events ResultEventPublisher) SubmissionService {
	return NewSubmissionService(f.submissions, f.results, f.ingestor, events, f.validate, f.grading, testLogger())
}

func checklist(checked, total int) []dto.ChecklistItemRequest {
	items := make([]dto.ChecklistItemRequest, 0, total)
	for i := 0; i < total; i++ {
		items = append(items, dto.ChecklistItemRequest{Item: fmt.Sprintf("Step %d", i+1), Mark: i < checked})
	}
	return items
}

func TestSubmitQuizUsesConfiguredCriterionMaximum(t *testing.T) {
	grading := config.DefaultGradingConfig()
	grading.QuizCriterionMaximum = 80
	f := newEngineFixture(t, grading)
	events := &recordingPublisher{}
	svc := f.submissionService(events)

	ctx := middleware.ContextWithCorrelation(context.Background(), "req-42")
	response, err := svc.SubmitQuiz(ctx, dto.QuizSubmissionRequest{
		ExternalRef:  "quiz-attempt-1",
		StudentID:    f.student.ID,
		CourseID:     f.course.ID,
		Score:        1,
		ScoreOutOf:   1,
		ScheduleDate: "2026-03-02",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeSuccess, response.Status)
	require.Empty(t, response.ErrorKind)
	require.NotNil(t, response.AssessmentResultID)

	result, err := f.results.GetByID(ctx, *response.AssessmentResultID)
	require.NoError(t, err)
	require.Equal(t, 80.0, result.TotalScore)
	require.Equal(t, "Quiz Assessment", result.Details[0].CriterionName)
	require.Equal(t, "Quiz: 1/1 (scaled to 80/80)", result.Details[0].Comment)

	submission, err := f.submissions.GetByID(ctx, response.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeSuccess, submission.Outcome)
	require.Equal(t, response.Message, submission.OutcomeNote)
	require.Equal(t, *response.AssessmentResultID, *submission.AssessmentResultID)
	require.Equal(t, "req-42", submission.Metadata["correlation_id"])

	require.Equal(t, []string{EventResultUpdated}, events.events)
}

func TestSubmitPracticalScoresChecklist(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	svc := f.submissionService(nil)
	ctx := context.Background()

	response, err := svc.SubmitPractical(ctx, dto.PracticalSubmissionRequest{
		ExternalRef: "practical-7",
		MemberLogin: "amina.y",
		CourseID:    f.course.ID,
		Title:       "Forklift pre-use check",
		Checklist:   checklist(9, 12),
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeSuccess, response.Status)

	result, err := f.results.GetByID(ctx, *response.AssessmentResultID)
	require.NoError(t, err)
	require.Equal(t, 75.0, result.TotalScore)
	require.Equal(t, "Practical Assessment", result.Details[0].CriterionName)
	require.Equal(t, "Forklift pre-use check: 9/12 (scaled to 75/100)", result.Details[0].Comment)

	submission, err := f.submissions.GetByID(ctx, response.SubmissionID)
	require.NoError(t, err)
	var items []models.ChecklistItem
	require.NoError(t, json.Unmarshal(submission.Checklist, &items))
	require.Len(t, items, 12)
	require.Equal(t, 9.0, submission.RawScore)
}

func TestSubmitQuizReplayReusesSubmission(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	svc := f.submissionService(nil)
	ctx := context.Background()

	payload := dto.QuizSubmissionRequest{ExternalRef: "quiz-attempt-2", StudentID: f.student.ID, CourseID: f.course.ID, Score: 6, ScoreOutOf: 10}
	first, err := svc.SubmitQuiz(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeSuccess, first.Status)

	payload.Score = 7
	replayed, err := svc.SubmitQuiz(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeInfo, replayed.Status)
	require.Equal(t, first.SubmissionID, replayed.SubmissionID)
	require.Equal(t, *first.AssessmentResultID, *replayed.AssessmentResultID)

	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	submission, err := f.submissions.GetByID(ctx, first.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, 7.0, submission.RawScore)
	require.Equal(t, true, submission.Metadata["replayed"])

	results := f.activeResults(t)
	require.Len(t, results, 1)
	require.Equal(t, 70.0, results[0].TotalScore)
}

func TestSubmitQuizFailedReplayKeepsResultLink(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	svc := f.submissionService(nil)
	ctx := context.Background()

	payload := dto.QuizSubmissionRequest{ExternalRef: "quiz-attempt-5", StudentID: f.student.ID, CourseID: f.course.ID, Score: 4, ScoreOutOf: 5}
	first, err := svc.SubmitQuiz(ctx, payload)
	require.NoError(t, err)
	require.NotNil(t, first.AssessmentResultID)

	payload.CourseID = 9999
	replayed, err := svc.SubmitQuiz(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeError, replayed.Status)
	require.Nil(t, replayed.AssessmentResultID)

	submission, err := f.submissions.GetByID(ctx, first.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeError, submission.Outcome)
	require.NotNil(t, submission.AssessmentResultID)
	require.Equal(t, *first.AssessmentResultID, *submission.AssessmentResultID)
}

func TestSubmitQuizWithExplicitCriterion(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	svc := f.submissionService(nil)

	response, err := svc.SubmitQuiz(context.Background(), dto.QuizSubmissionRequest{
		ExternalRef: "quiz-attempt-3",
		StudentID:   f.student.ID,
		CourseID:    f.course.ID,
		Criterion:   "Oral Quiz",
		Score:       3,
		ScoreOutOf:  4,
	})
	require.NoError(t, err)

	plan, err := f.plans.GetByID(context.Background(), *response.AssessmentPlanID)
	require.NoError(t, err)
	_, _, found := plan.CriterionByName("Oral Quiz")
	require.True(t, found)
}

func TestSubmitQuizRecordsFailedOutcome(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	events := &recordingPublisher{}
	svc := f.submissionService(events)

	response, err := svc.SubmitQuiz(context.Background(), dto.QuizSubmissionRequest{
		ExternalRef: "quiz-attempt-4",
		MemberLogin: "ghost@example.com",
		CourseID:    f.course.ID,
		Score:       3,
		ScoreOutOf:  4,
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeError, response.Status)
	require.Equal(t, KindValidation, response.ErrorKind)
	require.Equal(t, StageReceived, response.Stage)
	require.Contains(t, response.Message, "ghost@example.com")
	require.NotNil(t, response.Annotations)
	require.Empty(t, events.events)

	submission, err := f.submissions.GetByID(context.Background(), response.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionOutcomeError, submission.Outcome)
	require.Nil(t, submission.AssessmentResultID)
}

func TestSubmitQuizValidatesPayload(t *testing.T) {
	f := newEngineFixture(t, config.DefaultGradingConfig())
	svc := f.submissionService(nil)

	_, err := svc.SubmitQuiz(context.Background(), dto.QuizSubmissionRequest{CourseID: f.course.ID, StudentID: f.student.ID})
	require.Error(t, err)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	_, err = svc.SubmitQuiz(context.Background(), dto.QuizSubmissionRequest{ExternalRef: "x", CourseID: f.course.ID})
	require.ErrorAs(t, err, &validationErrors)

	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
}
