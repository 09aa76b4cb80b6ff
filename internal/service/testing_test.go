package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment/internal/config"
	"github.com/noah-isme/gema-assessment/internal/database"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// engineFixture wires the reconciliation pipeline against SQLite with one
// course, one group and one enrolled student.
type engineFixture struct {
	db          *gorm.DB
	grading     config.GradingConfig
	validate    *validator.Validate
	students    repository.StudentRepository
	courses     repository.CourseRepository
	groups      repository.StudentGroupRepository
	schedules   repository.ScheduleRepository
	references  repository.ReferenceDataRepository
	plans       repository.AssessmentPlanRepository
	results     repository.AssessmentResultRepository
	submissions repository.SubmissionRepository
	resolver    CriterionResolver
	provisioner PlanProvisioner
	upserter    ResultUpserter
	ingestor    SubmissionIngestor

	course  models.Course
	group   models.StudentGroup
	student models.Student
}

func newEngineFixture(t *testing.T, grading config.GradingConfig) *engineFixture {
	t.Helper()
	db := newTestDB(t)

	f := &engineFixture{
		db:          db,
		grading:     grading,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		students:    repository.NewStudentRepository(db),
		courses:     repository.NewCourseRepository(db),
		groups:      repository.NewStudentGroupRepository(db),
		schedules:   repository.NewScheduleRepository(db),
		references:  repository.NewReferenceDataRepository(db),
		plans:       repository.NewAssessmentPlanRepository(db),
		results:     repository.NewAssessmentResultRepository(db),
		submissions: repository.NewSubmissionRepository(db),
	}
	f.resolver = NewCriterionResolver(f.plans, f.references, grading, testLogger())
	slots := NewScheduleConflictResolver(f.schedules, testLogger())
	f.provisioner = NewPlanProvisioner(f.plans, f.references, f.courses, f.groups, f.schedules, slots, grading, testLogger())
	f.upserter = NewResultUpserter(f.results, f.resolver, testLogger())
	f.ingestor = NewSubmissionIngestor(f.students, f.courses, f.groups, f.provisioner, f.upserter, nil, f.validate, grading, testLogger())

	f.course = models.Course{Name: "Forklift Safety"}
	require.NoError(t, db.Create(&f.course).Error)
	f.group = models.StudentGroup{Name: "Forklift Safety Batch 1", CourseID: f.course.ID}
	require.NoError(t, db.Create(&f.group).Error)
	f.student = models.Student{Name: "Amina Yusuf", Email: "amina@example.com", UserID: "amina.y"}
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, f.groups.AddMember(context.Background(), f.group.ID, f.student.ID))

	return f
}

func (f *engineFixture) occupy(t *testing.T, date, from, to string) {
	t.Helper()
	schedule := models.CourseSchedule{
		StudentGroupID: f.group.ID,
		CourseID:       f.course.ID,
		ScheduleDate:   date,
		FromTime:       from,
		ToTime:         to,
		Status:         models.CourseScheduleStatusScheduled,
	}
	require.NoError(t, f.db.Create(&schedule).Error)
}

func (f *engineFixture) provision(t *testing.T, criterion string, maximum float64) models.AssessmentPlan {
	t.Helper()
	provisioned, err := f.provisioner.Provision(context.Background(), ProvisionRequest{
		GroupID:       f.group.ID,
		CourseID:      f.course.ID,
		TargetMaximum: maximum,
		CriterionName: criterion,
		CandidateDate: "2026-03-02",
	})
	require.NoError(t, err)
	return provisioned.Plan
}

func (f *engineFixture) activeResults(t *testing.T) []models.AssessmentResult {
	t.Helper()
	results, err := f.results.ListActive(context.Background(), nil)
	require.NoError(t, err)
	return results
}

func quizLine(criterion string, raw, outOf, desired float64) ScoreLine {
	return ScoreLine{CriterionName: criterion, RawScore: raw, RawMaximum: outOf, DesiredMaximum: desired}
}

type recordingPublisher struct {
	events []string
	last   models.AssessmentResult
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, result models.AssessmentResult) {
	p.events = append(p.events, eventType)
	p.last = result
}
