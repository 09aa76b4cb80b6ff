package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// QuizSubmissionRequest is posted when a learner completes a quiz.
type QuizSubmissionRequest struct {
	ExternalRef    string  `json:"external_ref" validate:"required,max=255"`
	StudentID      uint    `json:"student_id"`
	MemberLogin    string  `json:"member_login" validate:"required_without=StudentID,omitempty,max=255"`
	CourseID       uint    `json:"course_id" validate:"required,gt=0"`
	StudentGroupID uint    `json:"student_group_id"`
	Title          string  `json:"title" validate:"omitempty,max=255"`
	Score          float64 `json:"score" validate:"gte=0"`
	ScoreOutOf     float64 `json:"score_out_of" validate:"gte=0"`
	Criterion      string  `json:"criterion" validate:"omitempty,max=255"`
	ScheduleDate   string  `json:"schedule_date" validate:"omitempty,datetime=2006-01-02"`
}

// ChecklistItemRequest is one marked checklist line of a practical exercise.
type ChecklistItemRequest struct {
	Item string `json:"item" validate:"required,max=500"`
	Mark bool   `json:"mark"`
}

// PracticalSubmissionRequest is posted when an assessor completes a practical checklist.
type PracticalSubmissionRequest struct {
	ExternalRef    string                 `json:"external_ref" validate:"required,max=255"`
	StudentID      uint                   `json:"student_id"`
	MemberLogin    string                 `json:"member_login" validate:"required_without=StudentID,omitempty,max=255"`
	CourseID       uint                   `json:"course_id" validate:"required,gt=0"`
	StudentGroupID uint                   `json:"student_group_id"`
	Title          string                 `json:"title" validate:"omitempty,max=255"`
	Criterion      string                 `json:"criterion" validate:"omitempty,max=255"`
	ScheduleDate   string                 `json:"schedule_date" validate:"omitempty,datetime=2006-01-02"`
	Checklist      []ChecklistItemRequest `json:"checklist" validate:"required,min=1,dive"`
}

// IngestResponse reports how a submission was reconciled.
type IngestResponse struct {
	SubmissionID       uint     `json:"submission_id"`
	Status             string   `json:"status"`
	AssessmentResultID *uint    `json:"assessment_result_id"`
	AssessmentPlanID   *uint    `json:"assessment_plan_id"`
	PlanStatus         string   `json:"plan_status,omitempty"`
	Stage              string   `json:"stage"`
	Message            string   `json:"message"`
	Annotations        []string `json:"annotations"`
	ErrorKind          string   `json:"error_kind,omitempty"`
}

// AssessmentResultDetailResponse serialises one criterion line.
type AssessmentResultDetailResponse struct {
	CriterionName string  `json:"criterion_name"`
	Score         float64 `json:"score"`
	MaximumScore  float64 `json:"maximum_score"`
	Comment       string  `json:"comment"`
}

// AssessmentResultResponse is returned when viewing a consolidated result.
type AssessmentResultResponse struct {
	ID               uint                             `json:"id"`
	StudentID        uint                             `json:"student_id"`
	AssessmentPlanID uint                             `json:"assessment_plan_id"`
	StudentGroupID   uint                             `json:"student_group_id"`
	TotalScore       float64                          `json:"total_score"`
	MaximumScore     float64                          `json:"maximum_score"`
	Grade            string                           `json:"grade"`
	Status           string                           `json:"status"`
	SubmittedAt      *time.Time                       `json:"submitted_at"`
	Details          []AssessmentResultDetailResponse `json:"details"`
	UpdatedAt        time.Time                        `json:"updated_at"`
}

// NewAssessmentResultResponse converts an AssessmentResult model into a DTO.
func NewAssessmentResultResponse(model models.AssessmentResult) AssessmentResultResponse {
	details := make([]AssessmentResultDetailResponse, 0, len(model.Details))
	for _, detail := range model.Details {
		details = append(details, AssessmentResultDetailResponse{
			CriterionName: detail.CriterionName,
			Score:         detail.Score,
			MaximumScore:  detail.MaximumScore,
			Comment:       detail.Comment,
		})
	}

	return AssessmentResultResponse{
		ID:               model.ID,
		StudentID:        model.StudentID,
		AssessmentPlanID: model.AssessmentPlanID,
		StudentGroupID:   model.StudentGroupID,
		TotalScore:       model.TotalScore,
		MaximumScore:     model.MaximumScore,
		Grade:            model.Grade,
		Status:           model.Status,
		SubmittedAt:      model.SubmittedAt,
		Details:          details,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ConsolidateRequest optionally scopes consolidation to one plan.
type ConsolidateRequest struct {
	AssessmentPlanID *uint `json:"assessment_plan_id" validate:"omitempty,gt=0"`
}

// ConsolidationSkip explains why a duplicate set was left untouched.
type ConsolidationSkip struct {
	StudentID        uint   `json:"student_id"`
	AssessmentPlanID uint   `json:"assessment_plan_id"`
	Reason           string `json:"reason"`
}

// ConsolidationReport summarises a duplicate-merge run.
type ConsolidationReport struct {
	ResultsScanned   int                 `json:"results_scanned"`
	DuplicateSets    int                 `json:"duplicate_sets"`
	ResultsMerged    int                 `json:"results_merged"`
	ResultsCancelled int                 `json:"results_cancelled"`
	Skipped          []ConsolidationSkip `json:"skipped"`
}

// GradingCriterionStatus reports one configured criterion.
type GradingCriterionStatus struct {
	Source       string  `json:"source"`
	Name         string  `json:"name"`
	MaximumScore float64 `json:"maximum_score"`
	Exists       bool    `json:"exists"`
}

// GradingSettingsResponse exposes the injected grading configuration.
type GradingSettingsResponse struct {
	Criteria               []GradingCriterionStatus `json:"criteria"`
	DefaultCriterion       string                   `json:"default_criterion"`
	DefaultAssessmentGroup string                   `json:"default_assessment_group"`
	GradingScale           string                   `json:"grading_scale"`
	DefaultPlanMaximum     float64                  `json:"default_plan_maximum"`
	AutoCreateReference    bool                     `json:"auto_create_reference"`
	Ready                  bool                     `json:"ready"`
}
