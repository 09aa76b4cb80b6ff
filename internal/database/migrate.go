package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Course{},
		&models.StudentGroup{},
		&models.StudentGroupMember{},
		&models.CourseSchedule{},
		&models.AssessmentGroup{},
		&models.GradingScale{},
		&models.AssessmentCriteria{},
		&models.AssessmentPlan{},
		&models.AssessmentPlanCriterion{},
		&models.AssessmentResult{},
		&models.AssessmentResultDetail{},
		&models.Submission{},
	)
}
