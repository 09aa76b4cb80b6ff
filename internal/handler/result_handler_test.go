package handler_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/handler"
	"github.com/noah-isme/gema-assessment/internal/service"
)

type mockResultService struct {
	result dto.AssessmentResultResponse
	err    error
	lastID uint
}

func (m *mockResultService) Get(_ context.Context, id uint) (dto.AssessmentResultResponse, error) {
	m.lastID = id
	return m.result, m.err
}

func (m *mockResultService) Submit(_ context.Context, id uint) (dto.AssessmentResultResponse, error) {
	m.lastID = id
	return m.result, m.err
}

type mockConsolidationService struct {
	last   dto.ConsolidateRequest
	report dto.ConsolidationReport
}

func (m *mockConsolidationService) Consolidate(_ context.Context, payload dto.ConsolidateRequest) (dto.ConsolidationReport, error) {
	m.last = payload
	return m.report, nil
}

func newResultApp(results *mockResultService, consolidation *mockConsolidationService) *fiber.App {
	app := fiber.New()
	handler.NewResultHandler(results, consolidation, zerolog.New(io.Discard)).Register(app.Group("/api/v1/assessments"))
	return app
}

func TestResultHandler_Get(t *testing.T) {
	svc := &mockResultService{result: dto.AssessmentResultResponse{ID: 12, TotalScore: 80, MaximumScore: 80, Status: "draft"}}
	app := newResultApp(svc, &mockConsolidationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assessments/results/12", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[dto.AssessmentResultResponse]
	decodeResponse(t, resp, &body)
	require.Equal(t, 80.0, body.Data.TotalScore)
	require.Equal(t, uint(12), svc.lastID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/assessments/results/0", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResultHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrResultNotFound, fiber.StatusNotFound},
		{fmt.Errorf("%w: result 12 is submitted", service.ErrResultFinalized), fiber.StatusConflict},
		{fmt.Errorf("%w: result 12 has no scored criteria", service.ErrSubmissionInvalid), fiber.StatusUnprocessableEntity},
		{fmt.Errorf("%w: submit: timeout", service.ErrStoreUnavailable), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		app := newResultApp(&mockResultService{err: tc.err}, &mockConsolidationService{})
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/assessments/results/12/submit", nil))
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
	}
}

func TestResultHandler_Consolidate(t *testing.T) {
	consolidation := &mockConsolidationService{report: dto.ConsolidationReport{ResultsScanned: 4, DuplicateSets: 1, ResultsMerged: 1, ResultsCancelled: 1, Skipped: []dto.ConsolidationSkip{}}}
	app := newResultApp(&mockResultService{}, consolidation)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/assessments/results/consolidate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Nil(t, consolidation.last.AssessmentPlanID)

	var body envelope[dto.ConsolidationReport]
	decodeResponse(t, resp, &body)
	require.Equal(t, 1, body.Data.ResultsCancelled)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/results/consolidate", strings.NewReader(`{"assessment_plan_id":4}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), *consolidation.last.AssessmentPlanID)
}
