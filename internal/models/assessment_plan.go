package models

import (
	"fmt"
	"time"
)

// AssessmentGroup organises plans into a hierarchy.
type AssessmentGroup struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	ParentName string    `gorm:"size:255" json:"parent_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// GradingScale names the scale results are graded against.
type GradingScale struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AssessmentCriteria is the master record of a grading dimension name.
type AssessmentCriteria struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the pluralised default.
func (AssessmentCriteria) TableName() string {
	return "assessment_criteria"
}

const (
	// PlanStatusDraft marks a plan that has not passed scheduling validation.
	PlanStatusDraft = "draft"
	// PlanStatusFinalized marks a validated plan.
	PlanStatusFinalized = "finalized"
	// PlanStatusCancelled marks a withdrawn plan.
	PlanStatusCancelled = "cancelled"
)

// AssessmentPlan is the grading container for a (student group, course) pair.
type AssessmentPlan struct {
	ID                uint                      `gorm:"primaryKey" json:"id"`
	Name              string                    `gorm:"size:255;not null" json:"name"`
	StudentGroupID    uint                      `gorm:"not null;index:idx_plan_group_course" json:"student_group_id"`
	CourseID          uint                      `gorm:"not null;index:idx_plan_group_course" json:"course_id"`
	AssessmentGroupID uint                      `gorm:"not null" json:"assessment_group_id"`
	GradingScaleID    uint                      `gorm:"not null" json:"grading_scale_id"`
	ScheduleDate      string                    `gorm:"size:10;not null;index" json:"schedule_date"`
	FromTime          string                    `gorm:"size:16;not null" json:"from_time"`
	ToTime            string                    `gorm:"size:16;not null" json:"to_time"`
	MaximumScore      float64                   `gorm:"not null" json:"maximum_score"`
	Status            string                    `gorm:"size:32;not null" json:"status"`
	StatusNote        string                    `gorm:"type:text" json:"status_note"`
	ActiveKey         *string                   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Criteria          []AssessmentPlanCriterion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
}

// AssessmentPlanCriterion is one named dimension inside a plan.
type AssessmentPlanCriterion struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AssessmentPlanID uint      `gorm:"not null;uniqueIndex:idx_plan_criterion" json:"assessment_plan_id"`
	Position         int       `gorm:"not null" json:"position"`
	CriterionName    string    `gorm:"size:255;not null;uniqueIndex:idx_plan_criterion" json:"criterion_name"`
	MaximumScore     float64   `gorm:"not null" json:"maximum_score"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PlanActiveKey is the uniqueness key of a non-cancelled plan.
func PlanActiveKey(studentGroupID, courseID uint) string {
	return fmt.Sprintf("%d:%d", studentGroupID, courseID)
}

// SyncActiveKey keeps the uniqueness key aligned with the plan status.
func (p *AssessmentPlan) SyncActiveKey() {
	if p.Status == PlanStatusCancelled {
		p.ActiveKey = nil
		return
	}
	key := PlanActiveKey(p.StudentGroupID, p.CourseID)
	p.ActiveKey = &key
}

// CriterionByName returns the criterion with the exact name and its index.
func (p AssessmentPlan) CriterionByName(name string) (AssessmentPlanCriterion, int, bool) {
	for i, criterion := range p.Criteria {
		if criterion.CriterionName == name {
			return criterion, i, true
		}
	}
	return AssessmentPlanCriterion{}, -1, false
}

// CriteriaTotal sums the maximum scores of every criterion.
func (p AssessmentPlan) CriteriaTotal() float64 {
	var total float64
	for _, criterion := range p.Criteria {
		total += criterion.MaximumScore
	}
	return total
}

// Window parses the plan's scheduled window.
func (p AssessmentPlan) Window() (Window, error) {
	return ParseWindow(p.FromTime, p.ToTime)
}

// IsFinalized reports whether the plan passed validation.
func (p AssessmentPlan) IsFinalized() bool {
	return p.Status == PlanStatusFinalized
}
