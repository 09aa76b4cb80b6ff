package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/service"
	"github.com/noah-isme/gema-assessment/internal/utils"
)

// SettingsHandler reports the grading settings in effect.
type SettingsHandler struct {
	service service.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(service service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches the settings route.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/settings", h.status)
}

func (h *SettingsHandler) status(c *fiber.Ctx) error {
	settings, err := h.service.Status(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load grading settings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load grading settings")
	}

	return utils.SendSuccess(c, "grading settings retrieved", settings)
}
