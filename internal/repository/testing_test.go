package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}
