package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/observability"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// Provisioning statuses.
const (
	ProvisionExisting         = "existing"
	ProvisionCreatedFinalized = "created_finalized"
	ProvisionCreatedDraft     = "created_draft"
)

// ProvisionRequest describes the plan a submission needs.
type ProvisionRequest struct {
	GroupID       uint
	CourseID      uint
	TargetMaximum float64
	CriterionName string
	Title         string
	CandidateDate string
}

// ProvisionResult carries the resolved plan and how it was obtained.
type ProvisionResult struct {
	Plan   models.AssessmentPlan
	Status string
	Note   string
}

// PlanProvisioner finds or creates the assessment plan of a (group, course) pair.
type PlanProvisioner interface {
	Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error)
}

type planProvisioner struct {
	plans      repository.AssessmentPlanRepository
	references repository.ReferenceDataRepository
	courses    repository.CourseRepository
	groups     repository.StudentGroupRepository
	schedules  repository.ScheduleRepository
	slots      ScheduleConflictResolver
	grading    config.GradingConfig
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewPlanProvisioner constructs the provisioner.
func NewPlanProvisioner(
	plans repository.AssessmentPlanRepository,
	references repository.ReferenceDataRepository,
	courses repository.CourseRepository,
	groups repository.StudentGroupRepository,
	schedules repository.ScheduleRepository,
	slots ScheduleConflictResolver,
	grading config.GradingConfig,
	logger zerolog.Logger,
) PlanProvisioner {
	return &planProvisioner{
		plans:      plans,
		references: references,
		courses:    courses,
		groups:     groups,
		schedules:  schedules,
		slots:      slots,
		grading:    grading,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "plan_provisioner").Logger(),
		now:        time.Now,
	}
}

func (p *planProvisioner) Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-assessment/internal/service/plan_provisioner")
	ctx, span := tracer.Start(ctx, "assessment_plan.provision")
	span.SetAttributes(
		attribute.Int64("plan.student_group_id", int64(req.GroupID)),
		attribute.Int64("plan.course_id", int64(req.CourseID)),
	)
	defer span.End()

	result, err := p.provision(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning_failed")
		observability.PlanProvisioning().WithLabelValues("failed").Inc()
		return ProvisionResult{}, err
	}

	span.SetAttributes(
		attribute.Int64("plan.id", int64(result.Plan.ID)),
		attribute.String("plan.provision_status", result.Status),
	)
	observability.PlanProvisioning().WithLabelValues(result.Status).Inc()
	return result, nil
}

func (p *planProvisioner) provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	if req.GroupID == 0 || req.CourseID == 0 {
		return ProvisionResult{}, fmt.Errorf("%w: student group and course are required", ErrSubmissionInvalid)
	}

	existing, err := p.plans.FindActive(ctx, req.GroupID, req.CourseID)
	if err == nil {
		return ProvisionResult{Plan: existing, Status: ProvisionExisting}, nil
	}
	if !repository.IsNotFound(err) {
		return ProvisionResult{}, storeError("lookup assessment plan", err)
	}

	plan, err := p.buildPlan(ctx, req)
	if err != nil {
		return ProvisionResult{}, err
	}

	if err := p.plans.Create(ctx, &plan); err != nil {
		if repository.IsDuplicateKey(err) {
			winner, findErr := p.plans.FindActive(ctx, req.GroupID, req.CourseID)
			if findErr != nil {
				return ProvisionResult{}, storeError("reload concurrent assessment plan", findErr)
			}
			return ProvisionResult{Plan: winner, Status: ProvisionExisting}, nil
		}
		return ProvisionResult{}, fmt.Errorf("%w: create assessment plan: %v", ErrProvisioningFailed, err)
	}

	validationErr := p.validateForFinalize(ctx, plan)
	if validationErr == nil {
		plan.Status = models.PlanStatusFinalized
		plan.StatusNote = ""
		if err := p.plans.UpdateStatus(ctx, &plan); err != nil {
			return ProvisionResult{}, fmt.Errorf("%w: finalize assessment plan %d: %v", ErrProvisioningFailed, plan.ID, err)
		}

		p.logger.Info().
			Uint("assessment_plan_id", plan.ID).
			Str("schedule_date", plan.ScheduleDate).
			Str("window", plan.FromTime+"-"+plan.ToTime).
			Msg("assessment plan created and finalized")
		return ProvisionResult{Plan: plan, Status: ProvisionCreatedFinalized}, nil
	}

	if !errors.Is(validationErr, ErrProvisioningConflict) {
		return ProvisionResult{}, validationErr
	}

	note := strings.TrimPrefix(validationErr.Error(), ErrProvisioningConflict.Error()+": ")
	plan.StatusNote = note
	if err := p.plans.UpdateStatus(ctx, &plan); err != nil {
		p.logger.Warn().Err(err).Uint("assessment_plan_id", plan.ID).Msg("failed to record draft note on assessment plan")
		note = fmt.Sprintf("%s (draft note not saved: %v)", note, err)
	}

	p.logger.Warn().
		Uint("assessment_plan_id", plan.ID).
		Str("reason", note).
		Msg("assessment plan kept in draft")
	return ProvisionResult{Plan: plan, Status: ProvisionCreatedDraft, Note: note}, nil
}

func (p *planProvisioner) buildPlan(ctx context.Context, req ProvisionRequest) (models.AssessmentPlan, error) {
	course, err := p.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.AssessmentPlan{}, fmt.Errorf("%w: course %d not found", ErrProvisioningFailed, req.CourseID)
		}
		return models.AssessmentPlan{}, storeError("load course", err)
	}

	group, err := p.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.AssessmentPlan{}, fmt.Errorf("%w: student group %d not found", ErrProvisioningFailed, req.GroupID)
		}
		return models.AssessmentPlan{}, storeError("load student group", err)
	}

	assessmentGroup, err := p.assessmentGroup(ctx)
	if err != nil {
		return models.AssessmentPlan{}, err
	}

	scale, err := p.gradingScale(ctx)
	if err != nil {
		return models.AssessmentPlan{}, err
	}

	criterionName, err := p.criterionName(ctx, req.CriterionName)
	if err != nil {
		return models.AssessmentPlan{}, err
	}

	candidate := strings.TrimSpace(req.CandidateDate)
	if candidate == "" {
		candidate = p.now().Format(models.DateLayout)
	}
	slot, err := p.slots.FindSlot(ctx, group.ID, candidate)
	if err != nil {
		return models.AssessmentPlan{}, err
	}

	maximum := req.TargetMaximum
	if maximum <= 0 {
		maximum = p.grading.DefaultPlanMaximum
	}
	maximum = positiveMaximum(maximum)

	name := strings.TrimSpace(p.sanitizer.Sanitize(req.Title))
	if name == "" {
		name = fmt.Sprintf("%s Assessment", course.Name)
	}

	return models.AssessmentPlan{
		Name:              name,
		StudentGroupID:    group.ID,
		CourseID:          course.ID,
		AssessmentGroupID: assessmentGroup.ID,
		GradingScaleID:    scale.ID,
		ScheduleDate:      slot.Date,
		FromTime:          slot.Start.String(),
		ToTime:            slot.End.String(),
		MaximumScore:      maximum,
		Status:            models.PlanStatusDraft,
		Criteria: []models.AssessmentPlanCriterion{{
			Position:      1,
			CriterionName: criterionName,
			MaximumScore:  maximum,
		}},
	}, nil
}

// validateForFinalize applies the scheduling rules a finalized plan must satisfy.
func (p *planProvisioner) validateForFinalize(ctx context.Context, plan models.AssessmentPlan) error {
	window, err := plan.Window()
	if err != nil {
		return fmt.Errorf("%w: invalid schedule window: %v", ErrProvisioningConflict, err)
	}
	if window.Start >= window.End {
		return fmt.Errorf("%w: from time %s must be before to time %s", ErrProvisioningConflict, window.Start, window.End)
	}

	occupied, err := p.schedules.ListOccupied(ctx, plan.StudentGroupID, plan.ScheduleDate, plan.ID)
	if err != nil {
		return storeError("list occupied windows", err)
	}
	for _, other := range occupied {
		if window.Overlaps(other) {
			return fmt.Errorf("%w: student group is already scheduled on %s during %s", ErrProvisioningConflict, plan.ScheduleDate, other)
		}
	}

	total := roundScore(plan.CriteriaTotal())
	if total != roundScore(plan.MaximumScore) {
		return fmt.Errorf("%w: sum of criteria maximum scores %.2f must equal plan maximum %.2f", ErrProvisioningConflict, total, plan.MaximumScore)
	}

	return nil
}

func (p *planProvisioner) assessmentGroup(ctx context.Context) (models.AssessmentGroup, error) {
	if p.grading.RootAssessmentGroup != "" {
		if _, err := p.ensureAssessmentGroup(ctx, p.grading.RootAssessmentGroup, ""); err != nil {
			return models.AssessmentGroup{}, err
		}
	}
	return p.ensureAssessmentGroup(ctx, p.grading.DefaultAssessmentGroup, p.grading.RootAssessmentGroup)
}

func (p *planProvisioner) ensureAssessmentGroup(ctx context.Context, name, parent string) (models.AssessmentGroup, error) {
	if strings.TrimSpace(name) == "" {
		return models.AssessmentGroup{}, fmt.Errorf("%w: no default assessment group configured", ErrProvisioningFailed)
	}

	group, err := p.references.FindAssessmentGroup(ctx, name)
	if err == nil {
		return group, nil
	}
	if !repository.IsNotFound(err) {
		return models.AssessmentGroup{}, storeError("lookup assessment group", err)
	}
	if !p.grading.AutoCreateReferenceData {
		return models.AssessmentGroup{}, fmt.Errorf("%w: assessment group %q does not exist", ErrProvisioningFailed, name)
	}

	group = models.AssessmentGroup{Name: name, ParentName: parent}
	if err := p.references.CreateAssessmentGroup(ctx, &group); err != nil {
		if repository.IsDuplicateKey(err) {
			return p.references.FindAssessmentGroup(ctx, name)
		}
		return models.AssessmentGroup{}, fmt.Errorf("%w: create assessment group %q: %v", ErrProvisioningFailed, name, err)
	}
	return group, nil
}

func (p *planProvisioner) gradingScale(ctx context.Context) (models.GradingScale, error) {
	name := p.grading.DefaultGradingScale
	if name != "" {
		scale, err := p.references.FindGradingScale(ctx, name)
		if err == nil {
			return scale, nil
		}
		if !repository.IsNotFound(err) {
			return models.GradingScale{}, storeError("lookup grading scale", err)
		}
	}

	scale, err := p.references.FirstGradingScale(ctx)
	if err == nil {
		return scale, nil
	}
	if !repository.IsNotFound(err) {
		return models.GradingScale{}, storeError("lookup grading scale", err)
	}

	if !p.grading.AutoCreateReferenceData || name == "" {
		return models.GradingScale{}, fmt.Errorf("%w: no grading scale available", ErrProvisioningFailed)
	}

	scale = models.GradingScale{Name: name}
	if err := p.references.CreateGradingScale(ctx, &scale); err != nil {
		if repository.IsDuplicateKey(err) {
			return p.references.FindGradingScale(ctx, name)
		}
		return models.GradingScale{}, fmt.Errorf("%w: create grading scale %q: %v", ErrProvisioningFailed, name, err)
	}
	return scale, nil
}

// criterionName prefers the requested name, then existing master names, so
// new plans do not multiply criteria.
func (p *planProvisioner) criterionName(ctx context.Context, requested string) (string, error) {
	name := strings.TrimSpace(requested)
	if name == "" {
		fallback := p.grading.DefaultCriterionName
		exists, err := p.references.CriteriaExists(ctx, fallback)
		if err != nil {
			return "", storeError("lookup assessment criteria", err)
		}
		name = fallback
		if !exists {
			first, err := p.references.FirstCriteriaName(ctx)
			switch {
			case err == nil:
				name = first
			case !repository.IsNotFound(err):
				return "", storeError("lookup assessment criteria", err)
			}
		}
	}

	if p.grading.AutoCreateReferenceData {
		if err := p.references.EnsureCriteria(ctx, name); err != nil {
			return "", fmt.Errorf("%w: create assessment criteria %q: %v", ErrProvisioningFailed, name, err)
		}
		return name, nil
	}

	exists, err := p.references.CriteriaExists(ctx, name)
	if err != nil {
		return "", storeError("lookup assessment criteria", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: assessment criteria %q does not exist", ErrProvisioningFailed, name)
	}
	return name, nil
}
