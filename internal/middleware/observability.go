package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/observability"
)

const (
	assessmentPrefix  = "/api/v1/assessments"
	ingestStatusLocal = "ingest_status"
	ingestStageLocal  = "ingest_stage"
	ingestKindLocal   = "ingest_error_kind"
	submissionIDLocal = "submission_id"
)

// RecordIngestOutcome tags the active request with the reconciliation outcome
// so that the request log line carries it.
func RecordIngestOutcome(c *fiber.Ctx, submissionID uint, status, stage, errorKind string) {
	c.Locals(submissionIDLocal, submissionID)
	c.Locals(ingestStatusLocal, status)
	c.Locals(ingestStageLocal, stage)
	c.Locals(ingestKindLocal, errorKind)
}

// Observability records request metrics and one structured log line for each
// assessment request. Other routes pass through untouched.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), assessmentPrefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		route := routeTemplate(c)
		method := c.Method()
		status := responseStatus(c, err)
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event = event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed)
		if outcome, ok := c.Locals(ingestStatusLocal).(string); ok {
			event = event.
				Uint("submission_id", localUint(c, submissionIDLocal)).
				Str("ingest_status", outcome).
				Str("ingest_stage", localString(c, ingestStageLocal)).
				Str("ingest_error_kind", localString(c, ingestKindLocal))
		}
		event.Msg("assessment request")

		return err
	}
}

// responseStatus resolves the status an error will be rendered with, since
// the fiber error handler runs after the middleware chain unwinds.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func localString(c *fiber.Ctx, key string) string {
	value, _ := c.Locals(key).(string)
	return value
}

func localUint(c *fiber.Ctx, key string) uint {
	value, _ := c.Locals(key).(uint)
	return value
}
