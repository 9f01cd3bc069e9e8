package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/middleware"
	"github.com/noah-isme/sma-portal-api/internal/repository"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/utils"
)

// RosterHandler exposes the student/teacher roster used to drive the
// addressing pickers on the producer dashboards.
type RosterHandler struct {
	service service.RosterService
	logger  zerolog.Logger
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service service.RosterService, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		service: service,
		logger:  logger.With().Str("component", "roster_handler").Logger(),
	}
}

// Register binds the roster routes.
func (h *RosterHandler) Register(router fiber.Router) {
	staff := middleware.RequireStaff()
	router.Get("/students", staff, h.listStudents)
	router.Get("/teachers", staff, h.listTeachers)
	router.Post("/seed", staff, h.seed)
}

func (h *RosterHandler) listStudents(c *fiber.Ctx) error {
	filter := repository.StudentFilter{
		Class:   c.Query("class"),
		Section: c.Query("section"),
	}

	students, err := h.service.ListStudents(c.UserContext(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}

	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *RosterHandler) listTeachers(c *fiber.Ctx) error {
	teachers, err := h.service.ListTeachers(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list teachers")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list teachers")
	}

	return utils.SendSuccess(c, "teachers retrieved", teachers)
}

func (h *RosterHandler) seed(c *fiber.Ctx) error {
	var payload dto.RosterSeedRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	count, err := h.service.Seed(c.UserContext(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendValidationError(c, err)
		}
		h.logger.Error().Err(err).Msg("failed to seed roster")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to seed roster")
	}

	return utils.SendSuccess(c, "roster seeded", fiber.Map{"upserted": count})
}
