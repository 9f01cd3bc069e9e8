package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/middleware"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/utils"
)

// TimetableHandler serves per-class timetables.
type TimetableHandler struct {
	service service.TimetableService
	logger  zerolog.Logger
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service service.TimetableService, logger zerolog.Logger) *TimetableHandler {
	return &TimetableHandler{
		service: service,
		logger:  logger.With().Str("component", "timetable_handler").Logger(),
	}
}

// Register binds the timetable routes.
func (h *TimetableHandler) Register(router fiber.Router) {
	router.Get("/:class", h.get)
	router.Put("/:class", middleware.RequireStaff(), h.put)
}

func (h *TimetableHandler) get(c *fiber.Ctx) error {
	if _, ok := viewerFromContext(c); !ok {
		return unauthenticated(c)
	}

	timetable, err := h.service.Get(c.UserContext(), c.Params("class"))
	if err != nil {
		if errors.Is(err, service.ErrTimetableNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "timetable not found")
		}
		h.logger.Error().Err(err).Msg("failed to load timetable")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load timetable")
	}

	return utils.SendSuccess(c, "timetable retrieved", timetable)
}

func (h *TimetableHandler) put(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.TimetablePutRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stored, err := h.service.Put(c.UserContext(), viewer, c.Params("class"), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendValidationError(c, err)
		}
		h.logger.Error().Err(err).Msg("failed to store timetable")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to store timetable")
	}

	return utils.SendSuccess(c, "timetable stored", stored)
}
