package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/observability"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// UpsertRequest carries one criterion score for a student within a plan.
type UpsertRequest struct {
	StudentID       uint
	Plan            models.AssessmentPlan
	CriterionName   string
	DesiredMaximum  float64
	RawScore        float64
	RawMaximum      float64
	ProvenanceLabel string
}

// UpsertResult reports the persisted result and whether this call created it.
type UpsertResult struct {
	Result    models.AssessmentResult
	Criterion models.AssessmentPlanCriterion
	Score     float64
	Created   bool
}

// ResultUpserter maintains the single consolidated result per (student, plan).
type ResultUpserter interface {
	Upsert(ctx context.Context, req UpsertRequest) (UpsertResult, error)
}

type resultUpserter struct {
	results   repository.AssessmentResultRepository
	criteria  CriterionResolver
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewResultUpserter constructs the upserter.
func NewResultUpserter(results repository.AssessmentResultRepository, criteria CriterionResolver, logger zerolog.Logger) ResultUpserter {
	return &resultUpserter{
		results:   results,
		criteria:  criteria,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "result_upserter").Logger(),
	}
}

func (u *resultUpserter) Upsert(ctx context.Context, req UpsertRequest) (UpsertResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-assessment/internal/service/result_upserter")
	ctx, span := tracer.Start(ctx, "assessment_result.upsert")
	span.SetAttributes(
		attribute.Int64("result.student_id", int64(req.StudentID)),
		attribute.Int64("result.assessment_plan_id", int64(req.Plan.ID)),
		attribute.String("result.criterion", req.CriterionName),
	)
	defer span.End()

	if err := validateUpsert(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return UpsertResult{}, err
	}

	result, created, err := u.load(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_lookup_failed")
		return UpsertResult{}, err
	}
	if !result.IsEditable() {
		err := fmt.Errorf("%w: result %d is %s", ErrResultFinalized, result.ID, result.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_finalized")
		return UpsertResult{}, err
	}

	plan := req.Plan
	criterion, err := u.criteria.Resolve(ctx, &plan, req.CriterionName, req.DesiredMaximum)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "criterion_resolution_failed")
		return UpsertResult{}, err
	}

	score := ScaleScore(req.RawScore, req.RawMaximum, criterion.MaximumScore)
	comment := u.provenance(req, score, criterion.MaximumScore)
	applyDetail(&result, criterion, score, comment)

	if err := u.results.Save(ctx, &result); err != nil {
		if !created || !repository.IsDuplicateKey(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "result_save_failed")
			return UpsertResult{}, storeError("save assessment result", err)
		}

		// a concurrent ingest created the result first; update the winner
		winner, findErr := u.results.FindActive(ctx, req.StudentID, req.Plan.ID)
		if findErr != nil {
			span.RecordError(findErr)
			span.SetStatus(codes.Error, "result_refetch_failed")
			return UpsertResult{}, storeError("reload assessment result", findErr)
		}
		if !winner.IsEditable() {
			err := fmt.Errorf("%w: result %d is %s", ErrResultFinalized, winner.ID, winner.Status)
			span.RecordError(err)
			span.SetStatus(codes.Error, "result_finalized")
			return UpsertResult{}, err
		}

		result = winner
		created = false
		applyDetail(&result, criterion, score, comment)
		if err := u.results.Save(ctx, &result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "result_save_failed")
			return UpsertResult{}, storeError("save assessment result", err)
		}
	}

	observability.ResultUpserts().WithLabelValues(strconv.FormatBool(created)).Inc()
	span.SetAttributes(
		attribute.Int64("result.id", int64(result.ID)),
		attribute.Bool("result.created", created),
		attribute.Float64("result.total_score", result.TotalScore),
	)

	u.logger.Debug().
		Uint("assessment_result_id", result.ID).
		Str("criterion", criterion.CriterionName).
		Float64("score", score).
		Float64("total_score", result.TotalScore).
		Bool("created", created).
		Msg("assessment result upserted")

	return UpsertResult{Result: result, Criterion: criterion, Score: score, Created: created}, nil
}

func (u *resultUpserter) load(ctx context.Context, req UpsertRequest) (models.AssessmentResult, bool, error) {
	existing, err := u.results.FindActive(ctx, req.StudentID, req.Plan.ID)
	if err == nil {
		return existing, false, nil
	}
	if !repository.IsNotFound(err) {
		return models.AssessmentResult{}, false, storeError("lookup assessment result", err)
	}

	return models.AssessmentResult{
		StudentID:        req.StudentID,
		AssessmentPlanID: req.Plan.ID,
		StudentGroupID:   req.Plan.StudentGroupID,
		Status:           models.ResultStatusDraft,
	}, true, nil
}

func (u *resultUpserter) provenance(req UpsertRequest, score, target float64) string {
	label := strings.TrimSpace(u.sanitizer.Sanitize(req.ProvenanceLabel))
	if label == "" {
		label = "Submission"
	}
	return fmt.Sprintf("%s: %s/%s (scaled to %s/%s)",
		label,
		formatScore(req.RawScore),
		formatScore(req.RawMaximum),
		formatScore(score),
		formatScore(target),
	)
}

// applyDetail replaces the criterion's detail line or appends one, then
// re-derives the aggregates from every line.
func applyDetail(result *models.AssessmentResult, criterion models.AssessmentPlanCriterion, score float64, comment string) {
	if idx := result.DetailIndex(criterion.CriterionName); idx >= 0 {
		result.Details[idx].Score = score
		result.Details[idx].MaximumScore = criterion.MaximumScore
		result.Details[idx].Comment = comment
	} else {
		result.Details = append(result.Details, models.AssessmentResultDetail{
			CriterionName: criterion.CriterionName,
			Score:         score,
			MaximumScore:  criterion.MaximumScore,
			Comment:       comment,
		})
	}

	result.RecomputeTotals()
	result.Grade = LetterGrade(result.TotalScore, result.MaximumScore)
}

func validateUpsert(req UpsertRequest) error {
	switch {
	case req.StudentID == 0:
		return fmt.Errorf("%w: student is required", ErrSubmissionInvalid)
	case req.Plan.ID == 0:
		return fmt.Errorf("%w: assessment plan is required", ErrSubmissionInvalid)
	case strings.TrimSpace(req.CriterionName) == "":
		return fmt.Errorf("%w: criterion name is required", ErrSubmissionInvalid)
	case !finite(req.RawScore, req.RawMaximum, req.DesiredMaximum):
		return fmt.Errorf("%w: scores must be finite numbers", ErrSubmissionInvalid)
	case req.RawScore < 0 || req.RawMaximum < 0:
		return fmt.Errorf("%w: scores must not be negative", ErrSubmissionInvalid)
	}
	return nil
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
