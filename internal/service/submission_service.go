package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// SubmissionService records quiz and practical submissions and grades them.
type SubmissionService interface {
	SubmitQuiz(ctx context.Context, payload dto.QuizSubmissionRequest) (dto.IngestResponse, error)
	SubmitPractical(ctx context.Context, payload dto.PracticalSubmissionRequest) (dto.IngestResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	results     repository.AssessmentResultRepository
	ingestor    SubmissionIngestor
	events      ResultEventPublisher
	validator   *validator.Validate
	grading     config.GradingConfig
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. events may be nil.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	results repository.AssessmentResultRepository,
	ingestor SubmissionIngestor,
	events ResultEventPublisher,
	validate *validator.Validate,
	grading config.GradingConfig,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		results:     results,
		ingestor:    ingestor,
		events:      events,
		validator:   validate,
		grading:     grading,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) SubmitQuiz(ctx context.Context, payload dto.QuizSubmissionRequest) (dto.IngestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.IngestResponse{}, err
	}

	criterion, desired := s.criterion(models.SubmissionSourceQuiz, payload.Criterion)
	submission := models.Submission{
		Source:         models.SubmissionSourceQuiz,
		ExternalRef:    strings.TrimSpace(payload.ExternalRef),
		StudentID:      payload.StudentID,
		MemberLogin:    strings.TrimSpace(payload.MemberLogin),
		CourseID:       payload.CourseID,
		StudentGroupID: payload.StudentGroupID,
		Title:          s.sanitizer.Sanitize(strings.TrimSpace(payload.Title)),
		CriterionName:  criterion,
		RawScore:       payload.Score,
		RawMaximum:     payload.ScoreOutOf,
	}

	return s.process(ctx, submission, desired, payload.ScheduleDate)
}

func (s *submissionService) SubmitPractical(ctx context.Context, payload dto.PracticalSubmissionRequest) (dto.IngestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.IngestResponse{}, err
	}

	items := make([]models.ChecklistItem, 0, len(payload.Checklist))
	for _, item := range payload.Checklist {
		items = append(items, models.ChecklistItem{
			Item: s.sanitizer.Sanitize(strings.TrimSpace(item.Item)),
			Mark: item.Mark,
		})
	}
	checklist, err := json.Marshal(items)
	if err != nil {
		return dto.IngestResponse{}, err
	}
	checked, total := models.ChecklistScore(items)

	criterion, desired := s.criterion(models.SubmissionSourcePractical, payload.Criterion)
	submission := models.Submission{
		Source:         models.SubmissionSourcePractical,
		ExternalRef:    strings.TrimSpace(payload.ExternalRef),
		StudentID:      payload.StudentID,
		MemberLogin:    strings.TrimSpace(payload.MemberLogin),
		CourseID:       payload.CourseID,
		StudentGroupID: payload.StudentGroupID,
		Title:          s.sanitizer.Sanitize(strings.TrimSpace(payload.Title)),
		CriterionName:  criterion,
		RawScore:       checked,
		RawMaximum:     total,
		Checklist:      datatypes.JSON(checklist),
	}

	return s.process(ctx, submission, desired, payload.ScheduleDate)
}

// criterion returns the explicit criterion when given, otherwise the
// configured one for the source together with its configured maximum.
func (s *submissionService) criterion(source, explicit string) (string, float64) {
	name, maximum := s.grading.CriterionFor(source)
	if trimmed := strings.TrimSpace(explicit); trimmed != "" && trimmed != name {
		return trimmed, 0
	}
	return name, maximum
}

func (s *submissionService) process(ctx context.Context, incoming models.Submission, desiredMaximum float64, scheduleDate string) (dto.IngestResponse, error) {
	submission, err := s.record(ctx, incoming)
	if err != nil {
		return dto.IngestResponse{}, err
	}

	label := submission.Title
	if label == "" {
		label = sourceLabel(submission.Source)
	}

	outcome := s.ingestor.Ingest(ctx, IngestRequest{
		Source:          submission.Source,
		StudentID:       submission.StudentID,
		MemberLogin:     submission.MemberLogin,
		CourseID:        submission.CourseID,
		StudentGroupID:  submission.StudentGroupID,
		Title:           submission.Title,
		ProvenanceLabel: label,
		CandidateDate:   strings.TrimSpace(scheduleDate),
		Lines: []ScoreLine{{
			CriterionName:  submission.CriterionName,
			RawScore:       submission.RawScore,
			RawMaximum:     submission.RawMaximum,
			DesiredMaximum: desiredMaximum,
		}},
	})

	submission.Outcome = outcome.Status
	submission.OutcomeNote = outcome.Note()
	if outcome.ResultID != nil {
		submission.AssessmentResultID = outcome.ResultID
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to write grading outcome back to submission")
	}

	if outcome.ResultID != nil && s.events != nil {
		if result, err := s.results.GetByID(ctx, *outcome.ResultID); err == nil {
			s.events.Publish(ctx, EventResultUpdated, result)
		} else {
			s.logger.Warn().Err(err).Uint("assessment_result_id", *outcome.ResultID).Msg("failed to load result for event")
		}
	}

	return newIngestResponse(submission.ID, outcome), nil
}

// record stores the submission, reusing the row of a replayed delivery.
func (s *submissionService) record(ctx context.Context, incoming models.Submission) (models.Submission, error) {
	incoming.Outcome = models.SubmissionOutcomePending
	incoming.Metadata = datatypes.JSONMap{"received_at": s.now().UTC().Format(time.RFC3339)}
	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		incoming.Metadata["correlation_id"] = correlationID
	}

	existing, err := s.submissions.FindByExternalRef(ctx, incoming.Source, incoming.ExternalRef)
	if err == nil {
		return s.replay(ctx, existing, incoming)
	}
	if !repository.IsNotFound(err) {
		return models.Submission{}, storeError("lookup submission", err)
	}

	if err := s.submissions.Create(ctx, &incoming); err != nil {
		if !repository.IsDuplicateKey(err) {
			return models.Submission{}, storeError("create submission", err)
		}
		// concurrent delivery of the same submission
		existing, err := s.submissions.FindByExternalRef(ctx, incoming.Source, incoming.ExternalRef)
		if err != nil {
			return models.Submission{}, storeError("reload submission", err)
		}
		incoming.ID = 0
		return s.replay(ctx, existing, incoming)
	}
	return incoming, nil
}

func (s *submissionService) replay(ctx context.Context, existing, incoming models.Submission) (models.Submission, error) {
	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	incoming.AssessmentResultID = existing.AssessmentResultID
	incoming.Metadata["replayed"] = true
	if err := s.submissions.Update(ctx, &incoming); err != nil {
		return models.Submission{}, storeError("update submission", err)
	}
	return incoming, nil
}

func sourceLabel(source string) string {
	switch source {
	case models.SubmissionSourceQuiz:
		return "Quiz"
	case models.SubmissionSourcePractical:
		return "Practical"
	default:
		return "Submission"
	}
}

func newIngestResponse(submissionID uint, outcome Outcome) dto.IngestResponse {
	annotations := outcome.Annotations
	if annotations == nil {
		annotations = []string{}
	}
	return dto.IngestResponse{
		SubmissionID:       submissionID,
		Status:             outcome.Status,
		AssessmentResultID: outcome.ResultID,
		AssessmentPlanID:   outcome.PlanID,
		PlanStatus:         outcome.PlanStatus,
		Stage:              outcome.Stage,
		Message:            outcome.Message,
		Annotations:        annotations,
		ErrorKind:          outcome.ErrorKind(),
	}
}
