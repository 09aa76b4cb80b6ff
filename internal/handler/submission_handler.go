package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/middleware"
	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/service"
	"github.com/noah-isme/gema-assessment/internal/utils"
)

// SubmissionHandler accepts quiz and practical submissions for grading.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the submission routes to the router group, behind any
// route-level middlewares given.
func (h *SubmissionHandler) Register(router fiber.Router, middlewares ...fiber.Handler) {
	router.Post("/quiz-submissions", chain(middlewares, h.submitQuiz)...)
	router.Post("/practical-submissions", chain(middlewares, h.submitPractical)...)
}

func (h *SubmissionHandler) submitQuiz(c *fiber.Ctx) error {
	var payload dto.QuizSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	return h.respond(c, func(ctx context.Context) (dto.IngestResponse, error) {
		return h.service.SubmitQuiz(ctx, payload)
	})
}

func (h *SubmissionHandler) submitPractical(c *fiber.Ctx) error {
	var payload dto.PracticalSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	return h.respond(c, func(ctx context.Context) (dto.IngestResponse, error) {
		return h.service.SubmitPractical(ctx, payload)
	})
}

func (h *SubmissionHandler) respond(c *fiber.Ctx, submit func(ctx context.Context) (dto.IngestResponse, error)) error {
	response, err := submit(c.UserContext())
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to record submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to record submission")
	}

	middleware.RecordIngestOutcome(c, response.SubmissionID, response.Status, response.Stage, response.ErrorKind)
	if response.Status == models.SubmissionOutcomeError {
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, response.Message, response)
	}

	return utils.SendSuccess(c, response.Message, response)
}
