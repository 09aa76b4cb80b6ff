package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/observability"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// ScoreLine is one (criterion, raw score, raw maximum) tuple of a submission.
type ScoreLine struct {
	CriterionName  string  `validate:"required,max=255"`
	RawScore       float64 `validate:"gte=0"`
	RawMaximum     float64 `validate:"gte=0"`
	DesiredMaximum float64 `validate:"gte=0"`
}

// IngestRequest is the engine input derived from a quiz or practical submission.
type IngestRequest struct {
	Source          string      `validate:"required,oneof=quiz practical"`
	StudentID       uint
	MemberLogin     string      `validate:"required_without=StudentID,omitempty,max=255"`
	CourseID        uint        `validate:"required"`
	StudentGroupID  uint
	Title           string      `validate:"max=255"`
	ProvenanceLabel string      `validate:"max=255"`
	CandidateDate   string      `validate:"omitempty,datetime=2006-01-02"`
	Lines           []ScoreLine `validate:"required,min=1,dive"`
}

// Outcome is the structured report of one ingestion.
type Outcome struct {
	Status      string   `json:"status"`
	ResultID    *uint    `json:"result_id"`
	PlanID      *uint    `json:"assessment_plan_id"`
	PlanStatus  string   `json:"plan_status,omitempty"`
	Stage       string   `json:"stage"`
	Message     string   `json:"message"`
	Annotations []string `json:"annotations,omitempty"`
	Err         error    `json:"-"`
}

// Note flattens the message and annotations for the originating record.
func (o Outcome) Note() string {
	if len(o.Annotations) == 0 {
		return o.Message
	}
	return o.Message + " (" + strings.Join(o.Annotations, "; ") + ")"
}

// ErrorKind returns the taxonomy kind of a failed outcome.
func (o Outcome) ErrorKind() string {
	var stageErr *StageError
	if errors.As(o.Err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}

// SubmissionIngestor reconciles a submission into its consolidated result.
type SubmissionIngestor interface {
	Ingest(ctx context.Context, req IngestRequest) Outcome
}

type submissionIngestor struct {
	students    repository.StudentRepository
	courses     repository.CourseRepository
	groups      repository.StudentGroupRepository
	provisioner PlanProvisioner
	upserter    ResultUpserter
	locker      KeyedLocker
	validator   *validator.Validate
	grading     config.GradingConfig
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionIngestor wires the reconciliation pipeline. A nil locker disables cross-instance locking.
func NewSubmissionIngestor(
	students repository.StudentRepository,
	courses repository.CourseRepository,
	groups repository.StudentGroupRepository,
	provisioner PlanProvisioner,
	upserter ResultUpserter,
	locker KeyedLocker,
	validate *validator.Validate,
	grading config.GradingConfig,
	logger zerolog.Logger,
) SubmissionIngestor {
	if locker == nil {
		locker = noopLocker{}
	}
	if validate == nil {
		validate = validator.New()
	}
	return &submissionIngestor{
		students:    students,
		courses:     courses,
		groups:      groups,
		provisioner: provisioner,
		upserter:    upserter,
		locker:      locker,
		validator:   validate,
		grading:     grading,
		logger:      logger.With().Str("component", "submission_ingestor").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment/internal/service/submission_ingestor"),
		now:         time.Now,
	}
}

func (s *submissionIngestor) Ingest(ctx context.Context, req IngestRequest) (outcome Outcome) {
	ctx, span := s.tracer.Start(ctx, "submission.ingest")
	span.SetAttributes(
		attribute.String("ingest.source", req.Source),
		attribute.Int64("ingest.student_id", int64(req.StudentID)),
		attribute.Int64("ingest.course_id", int64(req.CourseID)),
	)
	start := s.now()
	stage := StageReceived

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = s.fail(req, stage, fmt.Errorf("unexpected failure: %v", recovered), outcome.Annotations)
		}

		observability.IngestDuration().WithLabelValues(req.Source).Observe(time.Since(start).Seconds())
		failedStage := ""
		if outcome.Status == models.SubmissionOutcomeError {
			failedStage = outcome.Stage
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, outcome.ErrorKind())
		}
		observability.IngestOutcomes().WithLabelValues(req.Source, outcome.Status, failedStage).Inc()
		span.SetAttributes(
			attribute.String("ingest.status", outcome.Status),
			attribute.String("ingest.stage", outcome.Stage),
		)
		span.End()
	}()

	if err := s.validator.Struct(req); err != nil {
		return s.fail(req, stage, fmt.Errorf("%w: %v", ErrSubmissionInvalid, err), nil)
	}
	for i, line := range req.Lines {
		if !finite(line.RawScore, line.RawMaximum, line.DesiredMaximum) {
			return s.fail(req, stage, fmt.Errorf("%w: line %d carries a non-finite score", ErrSubmissionInvalid, i+1), nil)
		}
	}

	release, err := s.locker.Acquire(ctx, lockKey(req))
	if err != nil {
		return s.fail(req, stage, err, nil)
	}
	defer release()

	var annotations []string

	student, err := s.resolveStudent(ctx, req)
	if err != nil {
		return s.fail(req, stage, err, annotations)
	}

	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return s.fail(req, stage, fmt.Errorf("%w: course %d not found", ErrSubmissionInvalid, req.CourseID), annotations)
		}
		return s.fail(req, stage, storeError("load course", err), annotations)
	}

	group, note, err := s.resolveGroup(ctx, req, course)
	if err != nil {
		return s.fail(req, stage, err, annotations)
	}
	if note != "" {
		annotations = append(annotations, note)
	}

	note, err = s.ensureMembership(ctx, group, student)
	if err != nil {
		return s.fail(req, stage, err, annotations)
	}
	if note != "" {
		annotations = append(annotations, note)
	}

	stage = StagePlanResolved
	primary := req.Lines[0]
	target := primary.DesiredMaximum
	if target <= 0 {
		target = s.grading.DefaultPlanMaximum
	}
	provisioned, err := s.provisioner.Provision(ctx, ProvisionRequest{
		GroupID:       group.ID,
		CourseID:      course.ID,
		TargetMaximum: target,
		CriterionName: primary.CriterionName,
		Title:         req.Title,
		CandidateDate: req.CandidateDate,
	})
	if err != nil {
		return s.fail(req, stage, err, annotations)
	}
	if provisioned.Status == ProvisionCreatedDraft {
		annotations = append(annotations, fmt.Sprintf("assessment plan %d kept in draft: %s", provisioned.Plan.ID, provisioned.Note))
	}
	planID := provisioned.Plan.ID

	stage = StageResultUpserted
	var (
		result  models.AssessmentResult
		created bool
	)
	for i, line := range req.Lines {
		upserted, err := s.upserter.Upsert(ctx, UpsertRequest{
			StudentID:       student.ID,
			Plan:            provisioned.Plan,
			CriterionName:   line.CriterionName,
			DesiredMaximum:  line.DesiredMaximum,
			RawScore:        line.RawScore,
			RawMaximum:      line.RawMaximum,
			ProvenanceLabel: req.ProvenanceLabel,
		})
		if err != nil {
			failed := s.fail(req, stage, err, annotations)
			failed.PlanID = &planID
			failed.PlanStatus = provisioned.Status
			if result.ID != 0 {
				resultID := result.ID
				failed.ResultID = &resultID
			}
			return failed
		}
		if i == 0 {
			created = upserted.Created
		}
		result = upserted.Result
	}

	stage = StageDone
	resultID := result.ID
	outcome = Outcome{
		Status:      models.SubmissionOutcomeSuccess,
		ResultID:    &resultID,
		PlanID:      &planID,
		PlanStatus:  provisioned.Status,
		Stage:       stage,
		Message:     fmt.Sprintf("Assessment result %d created for %s with total score %s/%s", resultID, student.Name, formatScore(result.TotalScore), formatScore(result.MaximumScore)),
		Annotations: annotations,
	}
	if !created {
		outcome.Status = models.SubmissionOutcomeInfo
		outcome.Message = fmt.Sprintf("Assessment result %d updated for %s with total score %s/%s", resultID, student.Name, formatScore(result.TotalScore), formatScore(result.MaximumScore))
	}

	s.logger.Info().
		Str("source", req.Source).
		Uint("student_id", student.ID).
		Uint("assessment_plan_id", planID).
		Uint("assessment_result_id", resultID).
		Str("status", outcome.Status).
		Str("plan_status", provisioned.Status).
		Msg("submission reconciled")

	return outcome
}

func (s *submissionIngestor) resolveStudent(ctx context.Context, req IngestRequest) (models.Student, error) {
	if req.StudentID != 0 {
		student, err := s.students.GetByID(ctx, req.StudentID)
		if err == nil {
			return student, nil
		}
		if !repository.IsNotFound(err) {
			return models.Student{}, storeError("load student", err)
		}
		if strings.TrimSpace(req.MemberLogin) == "" {
			return models.Student{}, fmt.Errorf("%w: student %d not found", ErrSubmissionInvalid, req.StudentID)
		}
	}

	login := strings.TrimSpace(req.MemberLogin)
	student, err := s.students.FindByLogin(ctx, login)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Student{}, fmt.Errorf("%w: no student found for member %q", ErrSubmissionInvalid, login)
		}
		return models.Student{}, storeError("lookup student by login", err)
	}
	return student, nil
}

// resolveGroup uses the requested group, else the course's first enabled
// group, else creates one for the course.
func (s *submissionIngestor) resolveGroup(ctx context.Context, req IngestRequest, course models.Course) (models.StudentGroup, string, error) {
	if req.StudentGroupID != 0 {
		group, err := s.groups.GetByID(ctx, req.StudentGroupID)
		if err != nil {
			if repository.IsNotFound(err) {
				return models.StudentGroup{}, "", fmt.Errorf("%w: student group %d not found", ErrSubmissionInvalid, req.StudentGroupID)
			}
			return models.StudentGroup{}, "", storeError("load student group", err)
		}
		if group.CourseID != course.ID {
			return models.StudentGroup{}, "", fmt.Errorf("%w: student group %d does not belong to course %d", ErrSubmissionInvalid, group.ID, course.ID)
		}
		return group, "", nil
	}

	group, err := s.groups.FindByCourse(ctx, course.ID)
	if err == nil {
		return group, "", nil
	}
	if !repository.IsNotFound(err) {
		return models.StudentGroup{}, "", storeError("lookup student group", err)
	}

	group = models.StudentGroup{Name: "Auto-" + course.Name, CourseID: course.ID}
	if err := s.groups.Create(ctx, &group); err != nil {
		if !repository.IsDuplicateKey(err) {
			return models.StudentGroup{}, "", fmt.Errorf("%w: create student group for course %d: %v", ErrProvisioningFailed, course.ID, err)
		}
		group, err = s.groups.FindByName(ctx, "Auto-"+course.Name)
		if err != nil {
			return models.StudentGroup{}, "", storeError("reload student group", err)
		}
		return group, "", nil
	}

	return group, fmt.Sprintf("created student group %q", group.Name), nil
}

func (s *submissionIngestor) ensureMembership(ctx context.Context, group models.StudentGroup, student models.Student) (string, error) {
	member, err := s.groups.IsMember(ctx, group.ID, student.ID)
	if err != nil {
		return "", storeError("check group membership", err)
	}
	if member {
		return "", nil
	}

	if err := s.groups.AddMember(ctx, group.ID, student.ID); err != nil {
		return "", fmt.Errorf("%w: add student %d to group %d: %v", ErrProvisioningFailed, student.ID, group.ID, err)
	}
	return fmt.Sprintf("added %s to student group %q", student.Name, group.Name), nil
}

func (s *submissionIngestor) fail(req IngestRequest, stage string, err error, annotations []string) Outcome {
	stageErr := newStageError(stage, err)

	s.logger.Error().
		Err(err).
		Str("source", req.Source).
		Uint("student_id", req.StudentID).
		Str("member_login", req.MemberLogin).
		Uint("course_id", req.CourseID).
		Uint("student_group_id", req.StudentGroupID).
		Str("stage", stageErr.Stage).
		Str("kind", stageErr.Kind).
		Msg("submission ingestion failed")

	return Outcome{
		Status:      models.SubmissionOutcomeError,
		Stage:       stageErr.Stage,
		Message:     failureMessage(stageErr),
		Annotations: annotations,
		Err:         stageErr,
	}
}

func failureMessage(err *StageError) string {
	prefix := "Grading failed"
	switch err.Kind {
	case KindValidation:
		prefix = "Submission could not be graded"
	case KindProvisioning:
		prefix = "Assessment plan could not be provisioned"
	case KindRejected:
		prefix = "Assessment result is already submitted"
	case KindStore:
		prefix = "Grading store unavailable"
	}
	if err.Err == nil {
		return prefix
	}
	return prefix + ": " + err.Err.Error()
}

func lockKey(req IngestRequest) string {
	if req.StudentID != 0 {
		return fmt.Sprintf("%d:student:%d", req.CourseID, req.StudentID)
	}
	return fmt.Sprintf("%d:member:%s", req.CourseID, strings.ToLower(strings.TrimSpace(req.MemberLogin)))
}
