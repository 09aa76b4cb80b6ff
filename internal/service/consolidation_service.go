package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/observability"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// ConsolidationService merges duplicate active results left by legacy data.
type ConsolidationService interface {
	Consolidate(ctx context.Context, payload dto.ConsolidateRequest) (dto.ConsolidationReport, error)
}

type consolidationService struct {
	results   repository.AssessmentResultRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewConsolidationService constructs the service.
func NewConsolidationService(results repository.AssessmentResultRepository, validate *validator.Validate, logger zerolog.Logger) ConsolidationService {
	return &consolidationService{
		results:   results,
		validator: validate,
		logger:    logger.With().Str("component", "consolidation_service").Logger(),
	}
}

type resultPair struct {
	studentID uint
	planID    uint
}

// Consolidate keeps the oldest result of each (student, plan) pair, folds
// the details of the others into it and cancels them. Pairs that contain a
// submitted result are reported and left alone.
func (s *consolidationService) Consolidate(ctx context.Context, payload dto.ConsolidateRequest) (dto.ConsolidationReport, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConsolidationReport{}, err
	}

	results, err := s.results.ListActive(ctx, payload.AssessmentPlanID)
	if err != nil {
		return dto.ConsolidationReport{}, storeError("list assessment results", err)
	}

	report := dto.ConsolidationReport{ResultsScanned: len(results), Skipped: []dto.ConsolidationSkip{}}

	var order []resultPair
	grouped := make(map[resultPair][]models.AssessmentResult)
	for _, result := range results {
		key := resultPair{studentID: result.StudentID, planID: result.AssessmentPlanID}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], result)
	}

	for _, key := range order {
		set := grouped[key]
		if len(set) < 2 {
			continue
		}
		report.DuplicateSets++

		if submitted := submittedResult(set); submitted != nil {
			report.Skipped = append(report.Skipped, dto.ConsolidationSkip{
				StudentID:        key.studentID,
				AssessmentPlanID: key.planID,
				Reason:           fmt.Sprintf("result %d is already submitted", submitted.ID),
			})
			continue
		}

		keeper := set[0]
		duplicates := set[1:]
		for _, duplicate := range duplicates {
			mergeDetails(&keeper, duplicate.Details)
		}
		keeper.RecomputeTotals()
		keeper.Grade = LetterGrade(keeper.TotalScore, keeper.MaximumScore)

		if err := s.results.ReplaceDuplicates(ctx, &keeper, duplicates); err != nil {
			return report, storeError(fmt.Sprintf("merge results of student %d plan %d", key.studentID, key.planID), err)
		}

		report.ResultsMerged++
		report.ResultsCancelled += len(duplicates)
		observability.ResultsConsolidated().Add(float64(len(duplicates)))

		s.logger.Info().
			Uint("student_id", key.studentID).
			Uint("assessment_plan_id", key.planID).
			Uint("assessment_result_id", keeper.ID).
			Int("cancelled", len(duplicates)).
			Float64("total_score", keeper.TotalScore).
			Msg("duplicate assessment results consolidated")
	}

	return report, nil
}

func submittedResult(set []models.AssessmentResult) *models.AssessmentResult {
	for i := range set {
		if set[i].Status == models.ResultStatusSubmitted {
			return &set[i]
		}
	}
	return nil
}

// mergeDetails replaces the keeper's line for a criterion or appends a new one; later results win.
func mergeDetails(keeper *models.AssessmentResult, details []models.AssessmentResultDetail) {
	for _, detail := range details {
		if detail.MaximumScore <= 0 {
			detail.MaximumScore = DefaultCriterionMaximum
		}
		if idx := keeper.DetailIndex(detail.CriterionName); idx >= 0 {
			keeper.Details[idx].Score = detail.Score
			keeper.Details[idx].MaximumScore = detail.MaximumScore
			keeper.Details[idx].Comment = detail.Comment
			continue
		}
		keeper.Details = append(keeper.Details, models.AssessmentResultDetail{
			CriterionName: detail.CriterionName,
			Score:         detail.Score,
			MaximumScore:  detail.MaximumScore,
			Comment:       detail.Comment,
		})
	}
}
