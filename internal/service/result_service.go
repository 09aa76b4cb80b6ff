package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// ResultService exposes consolidated results and their finalization.
type ResultService interface {
	Get(ctx context.Context, id uint) (dto.AssessmentResultResponse, error)
	Submit(ctx context.Context, id uint) (dto.AssessmentResultResponse, error)
}

type resultService struct {
	results repository.AssessmentResultRepository
	events  ResultEventPublisher
	logger  zerolog.Logger
	now     func() time.Time
}

// NewResultService constructs the service. events may be nil.
func NewResultService(results repository.AssessmentResultRepository, events ResultEventPublisher, logger zerolog.Logger) ResultService {
	return &resultService{
		results: results,
		events:  events,
		logger:  logger.With().Str("component", "result_service").Logger(),
		now:     time.Now,
	}
}

func (s *resultService) Get(ctx context.Context, id uint) (dto.AssessmentResultResponse, error) {
	result, err := s.load(ctx, id)
	if err != nil {
		return dto.AssessmentResultResponse{}, err
	}
	return dto.NewAssessmentResultResponse(result), nil
}

// Submit finalizes a draft result; afterwards ingestion can no longer change it.
func (s *resultService) Submit(ctx context.Context, id uint) (dto.AssessmentResultResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-assessment/internal/service/result")
	ctx, span := tracer.Start(ctx, "assessment_result.submit")
	span.SetAttributes(attribute.Int64("result.id", int64(id)))
	defer span.End()

	result, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_lookup_failed")
		return dto.AssessmentResultResponse{}, err
	}

	if !result.IsEditable() {
		err := fmt.Errorf("%w: result %d is %s", ErrResultFinalized, result.ID, result.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_finalized")
		return dto.AssessmentResultResponse{}, err
	}
	if len(result.Details) == 0 {
		err := fmt.Errorf("%w: result %d has no scored criteria", ErrSubmissionInvalid, result.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_empty")
		return dto.AssessmentResultResponse{}, err
	}

	submittedAt := s.now().UTC()
	result.Status = models.ResultStatusSubmitted
	result.SubmittedAt = &submittedAt
	if err := s.results.UpdateStatus(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_update_failed")
		return dto.AssessmentResultResponse{}, storeError("submit assessment result", err)
	}

	s.logger.Info().
		Uint("assessment_result_id", result.ID).
		Uint("student_id", result.StudentID).
		Float64("total_score", result.TotalScore).
		Msg("assessment result submitted")

	if s.events != nil {
		s.events.Publish(ctx, EventResultSubmitted, result)
	}

	return dto.NewAssessmentResultResponse(result), nil
}

func (s *resultService) load(ctx context.Context, id uint) (models.AssessmentResult, error) {
	result, err := s.results.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.AssessmentResult{}, ErrResultNotFound
		}
		return models.AssessmentResult{}, storeError("load assessment result", err)
	}
	if result.Status == models.ResultStatusCancelled {
		return models.AssessmentResult{}, ErrResultNotFound
	}
	return result, nil
}
