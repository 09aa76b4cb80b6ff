package service

import (
	"context"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// SettingsService reports the grading configuration the engine runs with.
type SettingsService interface {
	Status(ctx context.Context) (dto.GradingSettingsResponse, error)
}

type settingsService struct {
	references repository.ReferenceDataRepository
	grading    config.GradingConfig
}

// NewSettingsService constructs the service.
func NewSettingsService(references repository.ReferenceDataRepository, grading config.GradingConfig) SettingsService {
	return &settingsService{references: references, grading: grading}
}

func (s *settingsService) Status(ctx context.Context) (dto.GradingSettingsResponse, error) {
	response := dto.GradingSettingsResponse{
		DefaultCriterion:       s.grading.DefaultCriterionName,
		DefaultAssessmentGroup: s.grading.DefaultAssessmentGroup,
		GradingScale:           s.grading.DefaultGradingScale,
		DefaultPlanMaximum:     s.grading.DefaultPlanMaximum,
		AutoCreateReference:    s.grading.AutoCreateReferenceData,
		Ready:                  true,
	}

	for _, source := range []string{models.SubmissionSourceQuiz, models.SubmissionSourcePractical} {
		name, maximum := s.grading.CriterionFor(source)
		exists, err := s.references.CriteriaExists(ctx, name)
		if err != nil {
			return dto.GradingSettingsResponse{}, storeError("lookup assessment criteria", err)
		}
		response.Criteria = append(response.Criteria, dto.GradingCriterionStatus{
			Source:       source,
			Name:         name,
			MaximumScore: maximum,
			Exists:       exists,
		})
		// missing criteria are only fatal when they cannot be created on demand
		if !exists && !s.grading.AutoCreateReferenceData {
			response.Ready = false
		}
	}

	return response, nil
}
