package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// DefaultCriterionMaximum is applied when neither the caller nor the stored criterion carries a usable maximum.
const DefaultCriterionMaximum = 100.0

// CriterionResolver finds or provisions a named criterion inside a plan.
type CriterionResolver interface {
	Resolve(ctx context.Context, plan *models.AssessmentPlan, criterionName string, desiredMaximum float64) (models.AssessmentPlanCriterion, error)
}

type criterionResolver struct {
	plans      repository.AssessmentPlanRepository
	references repository.ReferenceDataRepository
	autoCreate bool
	logger     zerolog.Logger
}

// NewCriterionResolver constructs the resolver.
func NewCriterionResolver(plans repository.AssessmentPlanRepository, references repository.ReferenceDataRepository, grading config.GradingConfig, logger zerolog.Logger) CriterionResolver {
	return &criterionResolver{
		plans:      plans,
		references: references,
		autoCreate: grading.AutoCreateReferenceData,
		logger:     logger.With().Str("component", "criterion_resolver").Logger(),
	}
}

// Resolve re-reads the plan, then returns the criterion with a positive
// maximum. A desiredMaximum of zero keeps whatever maximum is stored.
func (r *criterionResolver) Resolve(ctx context.Context, plan *models.AssessmentPlan, criterionName string, desiredMaximum float64) (models.AssessmentPlanCriterion, error) {
	name := strings.TrimSpace(criterionName)
	if name == "" {
		return models.AssessmentPlanCriterion{}, fmt.Errorf("%w: criterion name is required", ErrSubmissionInvalid)
	}
	if plan == nil || plan.ID == 0 {
		return models.AssessmentPlanCriterion{}, fmt.Errorf("%w: criterion %q has no persisted plan", ErrProvisioningFailed, name)
	}

	fresh, err := r.plans.GetByID(ctx, plan.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.AssessmentPlanCriterion{}, fmt.Errorf("%w: assessment plan %d not found", ErrProvisioningFailed, plan.ID)
		}
		return models.AssessmentPlanCriterion{}, storeError("load assessment plan", err)
	}
	*plan = fresh

	if err := r.ensureMaster(ctx, name); err != nil {
		return models.AssessmentPlanCriterion{}, err
	}

	if criterion, idx, found := plan.CriterionByName(name); found {
		return r.reconcile(ctx, plan, idx, criterion, desiredMaximum)
	}

	criterion := models.AssessmentPlanCriterion{
		AssessmentPlanID: plan.ID,
		Position:         len(plan.Criteria) + 1,
		CriterionName:    name,
		MaximumScore:     positiveMaximum(desiredMaximum),
	}
	if saveErr := r.plans.SaveCriterion(ctx, &criterion); saveErr != nil {
		if !repository.IsDuplicateKey(saveErr) {
			return models.AssessmentPlanCriterion{}, storeError("append criterion", saveErr)
		}

		// another writer appended the same name first
		fresh, err := r.plans.GetByID(ctx, plan.ID)
		if err != nil {
			return models.AssessmentPlanCriterion{}, storeError("reload assessment plan", err)
		}
		*plan = fresh
		existing, idx, found := plan.CriterionByName(name)
		if !found {
			return models.AssessmentPlanCriterion{}, storeError("append criterion", saveErr)
		}
		return r.reconcile(ctx, plan, idx, existing, desiredMaximum)
	}

	plan.Criteria = append(plan.Criteria, criterion)
	r.logger.Info().
		Uint("assessment_plan_id", plan.ID).
		Str("criterion", name).
		Float64("maximum_score", criterion.MaximumScore).
		Msg("criterion added to assessment plan")

	return criterion, nil
}

func (r *criterionResolver) reconcile(ctx context.Context, plan *models.AssessmentPlan, idx int, criterion models.AssessmentPlanCriterion, desiredMaximum float64) (models.AssessmentPlanCriterion, error) {
	target := criterion.MaximumScore
	if desiredMaximum > 0 {
		target = desiredMaximum
	}
	target = positiveMaximum(target)

	if target == criterion.MaximumScore {
		return criterion, nil
	}

	previous := criterion.MaximumScore
	criterion.MaximumScore = target
	if err := r.plans.SaveCriterion(ctx, &criterion); err != nil {
		return models.AssessmentPlanCriterion{}, storeError("update criterion maximum", err)
	}
	plan.Criteria[idx] = criterion

	r.logger.Info().
		Uint("assessment_plan_id", plan.ID).
		Str("criterion", criterion.CriterionName).
		Float64("previous_maximum", previous).
		Float64("maximum_score", target).
		Msg("criterion maximum updated")

	return criterion, nil
}

func (r *criterionResolver) ensureMaster(ctx context.Context, name string) error {
	if r.autoCreate {
		if err := r.references.EnsureCriteria(ctx, name); err != nil {
			return storeError("ensure assessment criteria", err)
		}
		return nil
	}

	exists, err := r.references.CriteriaExists(ctx, name)
	if err != nil {
		return storeError("lookup assessment criteria", err)
	}
	if !exists {
		return fmt.Errorf("%w: assessment criteria %q does not exist", ErrProvisioningFailed, name)
	}
	return nil
}

func positiveMaximum(value float64) float64 {
	if value <= 0 {
		return DefaultCriterionMaximum
	}
	return value
}
