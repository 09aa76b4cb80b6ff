package models

import (
	"fmt"
	"time"
)

const (
	// ResultStatusDraft marks a result that can still receive scores.
	ResultStatusDraft = "draft"
	// ResultStatusSubmitted marks a finalized, read-only result.
	ResultStatusSubmitted = "submitted"
	// ResultStatusCancelled marks a result superseded or withdrawn.
	ResultStatusCancelled = "cancelled"
)

// AssessmentResult is the consolidated grade record of a student for a plan.
type AssessmentResult struct {
	ID               uint                     `gorm:"primaryKey" json:"id"`
	StudentID        uint                     `gorm:"not null;index:idx_result_student_plan" json:"student_id"`
	AssessmentPlanID uint                     `gorm:"not null;index:idx_result_student_plan" json:"assessment_plan_id"`
	StudentGroupID   uint                     `gorm:"not null" json:"student_group_id"`
	TotalScore       float64                  `gorm:"not null;default:0" json:"total_score"`
	MaximumScore     float64                  `gorm:"not null;default:0" json:"maximum_score"`
	Grade            string                   `gorm:"size:8" json:"grade"`
	Status           string                   `gorm:"size:32;not null" json:"status"`
	ActiveKey        *string                  `gorm:"size:64;uniqueIndex" json:"-"`
	SubmittedAt      *time.Time               `json:"submitted_at"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
	Details          []AssessmentResultDetail `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"details"`
}

// AssessmentResultDetail is one criterion-scoped score line of a result.
type AssessmentResultDetail struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AssessmentResultID uint      `gorm:"not null;index" json:"assessment_result_id"`
	Position           int       `gorm:"not null" json:"position"`
	CriterionName      string    `gorm:"size:255;not null" json:"criterion_name"`
	Score              float64   `gorm:"not null" json:"score"`
	MaximumScore       float64   `gorm:"not null" json:"maximum_score"`
	Comment            string    `gorm:"type:text" json:"comment"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ResultActiveKey is the uniqueness key of a non-cancelled result.
func ResultActiveKey(studentID, planID uint) string {
	return fmt.Sprintf("%d:%d", studentID, planID)
}

// SyncActiveKey keeps the uniqueness key aligned with the result status.
func (r *AssessmentResult) SyncActiveKey() {
	if r.Status == ResultStatusCancelled {
		r.ActiveKey = nil
		return
	}
	key := ResultActiveKey(r.StudentID, r.AssessmentPlanID)
	r.ActiveKey = &key
}

// IsEditable reports whether scores may still be written to the result.
func (r AssessmentResult) IsEditable() bool {
	return r.Status == ResultStatusDraft || r.Status == ""
}

// DetailIndex returns the index of the detail line for a criterion.
func (r AssessmentResult) DetailIndex(criterionName string) int {
	for i, detail := range r.Details {
		if detail.CriterionName == criterionName {
			return i
		}
	}
	return -1
}

// RecomputeTotals derives the aggregate score and maximum from the details.
func (r *AssessmentResult) RecomputeTotals() {
	var total, maximum float64
	for _, detail := range r.Details {
		total += detail.Score
		maximum += detail.MaximumScore
	}
	r.TotalScore = total
	r.MaximumScore = maximum
}
