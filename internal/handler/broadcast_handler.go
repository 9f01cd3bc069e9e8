package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/middleware"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/utils"
)

// BroadcastHandler exposes the live-class descriptor protocol. Producers
// re-announce themselves on a heartbeat; consumers poll the list. There is
// deliberately no push here.
type BroadcastHandler struct {
	service service.BroadcastService
	logger  zerolog.Logger
}

// NewBroadcastHandler constructs the handler.
func NewBroadcastHandler(service service.BroadcastService, logger zerolog.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		service: service,
		logger:  logger.With().Str("component", "broadcast_handler").Logger(),
	}
}

// Register binds the broadcast routes. Mutations require the teacher role.
func (h *BroadcastHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/join", h.join)
	router.Post("/leave", h.leave)

	teacherOnly := middleware.RequireRole(models.RoleTeacher, models.SenderPrincipal)
	router.Put("/", teacherOnly, h.start)
	router.Patch("/heartbeat", teacherOnly, h.heartbeat)
	router.Delete("/", teacherOnly, h.end)
}

func (h *BroadcastHandler) list(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var broadcasts []dto.BroadcastResponse
	if viewer.Role == models.RoleStudent {
		broadcasts = h.service.ListForViewer(c.UserContext(), viewer)
	} else {
		broadcasts = h.service.ListActive(c.UserContext())
	}

	return utils.SendSuccess(c, "broadcasts retrieved", broadcasts)
}

func (h *BroadcastHandler) start(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.BroadcastStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	started, err := h.service.Start(c.UserContext(), viewer, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendValidationError(c, err)
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "broadcast started", started)
}

func (h *BroadcastHandler) heartbeat(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.BroadcastHeartbeatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	// Heartbeats for ended broadcasts are acknowledged and dropped; the
	// producer learns the session is gone from its own poll.
	h.service.Heartbeat(c.UserContext(), viewer.Email, payload)
	return utils.SendSuccess(c, "heartbeat accepted", nil)
}

func (h *BroadcastHandler) end(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := h.service.End(c.UserContext(), viewer.Email); err != nil {
		if errors.Is(err, service.ErrBroadcastNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "no active broadcast")
		}
		h.logger.Error().Err(err).Msg("failed to end broadcast")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to end broadcast")
	}

	return utils.SendSuccess(c, "broadcast ended", nil)
}

func (h *BroadcastHandler) join(c *fiber.Ctx) error {
	return h.updateViewers(c, h.service.Join, "joined broadcast")
}

func (h *BroadcastHandler) leave(c *fiber.Ctx) error {
	return h.updateViewers(c, h.service.Leave, "left broadcast")
}

func (h *BroadcastHandler) updateViewers(c *fiber.Ctx, mutate func(ctx context.Context, teacherEmail string, viewer models.ViewerContext) error, message string) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload struct {
		TeacherEmail string `json:"teacher_email"`
	}
	if err := c.BodyParser(&payload); err != nil || payload.TeacherEmail == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "teacher_email required")
	}

	if err := mutate(c.UserContext(), payload.TeacherEmail, viewer); err != nil {
		if errors.Is(err, service.ErrBroadcastNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "broadcast not found")
		}
		h.logger.Error().Err(err).Msg("failed to update broadcast viewers")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update broadcast viewers")
	}

	return utils.SendSuccess(c, message, nil)
}
