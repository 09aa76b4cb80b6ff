package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/dto"
	"github.com/noah-isme/gema-assessment/internal/service"
	"github.com/noah-isme/gema-assessment/internal/utils"
)

// ResultHandler exposes consolidated assessment results.
type ResultHandler struct {
	results       service.ResultService
	consolidation service.ConsolidationService
	logger        zerolog.Logger
}

// NewResultHandler constructs a ResultHandler.
func NewResultHandler(results service.ResultService, consolidation service.ConsolidationService, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results:       results,
		consolidation: consolidation,
		logger:        logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register attaches result routes to the router group.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Post("/results/consolidate", h.consolidate)
	router.Get("/results/:id", h.get)
	router.Post("/results/:id/submit", h.submit)
}

func (h *ResultHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.results.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err, "failed to load assessment result")
	}

	return utils.SendSuccess(c, "assessment result retrieved", result)
}

func (h *ResultHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.results.Submit(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err, "failed to submit assessment result")
	}

	return utils.SendSuccess(c, "assessment result submitted", result)
}

func (h *ResultHandler) consolidate(c *fiber.Ctx) error {
	var payload dto.ConsolidateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	report, err := h.consolidation.Consolidate(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err, "failed to consolidate assessment results")
	}

	return utils.SendSuccess(c, "assessment results consolidated", report)
}

func (h *ResultHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assessment result not found")
	case errors.Is(err, service.ErrResultFinalized):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSubmissionInvalid):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
