package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// SubmissionSourceQuiz identifies quiz submissions.
	SubmissionSourceQuiz = "quiz"
	// SubmissionSourcePractical identifies practical exercise submissions.
	SubmissionSourcePractical = "practical"
)

const (
	// SubmissionOutcomePending indicates the engine has not processed the submission yet.
	SubmissionOutcomePending = "pending"
	// SubmissionOutcomeSuccess indicates a new result was created.
	SubmissionOutcomeSuccess = "success"
	// SubmissionOutcomeInfo indicates an existing result was updated.
	SubmissionOutcomeInfo = "info"
	// SubmissionOutcomeError indicates the engine could not grade the submission.
	SubmissionOutcomeError = "error"
)

// Submission is the originating quiz or practical record fed into the engine.
type Submission struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	Source             string            `gorm:"size:32;not null;uniqueIndex:idx_submission_ref" json:"source"`
	ExternalRef        string            `gorm:"size:255;not null;uniqueIndex:idx_submission_ref" json:"external_ref"`
	StudentID          uint              `gorm:"index" json:"student_id"`
	MemberLogin        string            `gorm:"size:255" json:"member_login"`
	CourseID           uint              `gorm:"index" json:"course_id"`
	StudentGroupID     uint              `json:"student_group_id"`
	Title              string            `gorm:"size:255" json:"title"`
	CriterionName      string            `gorm:"size:255" json:"criterion_name"`
	RawScore           float64           `json:"raw_score"`
	RawMaximum         float64           `json:"raw_maximum"`
	Checklist          datatypes.JSON    `gorm:"type:json" json:"checklist"`
	Outcome            string            `gorm:"size:32;not null" json:"outcome"`
	OutcomeNote        string            `gorm:"type:text" json:"outcome_note"`
	AssessmentResultID *uint             `json:"assessment_result_id"`
	Metadata           datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ChecklistItem is one marked line of a practical exercise.
type ChecklistItem struct {
	Item string `json:"item"`
	Mark bool   `json:"mark"`
}

// ChecklistScore counts the checked items against the total.
func ChecklistScore(items []ChecklistItem) (checked, total float64) {
	for _, item := range items {
		if item.Mark {
			checked++
		}
	}
	return checked, float64(len(items))
}
