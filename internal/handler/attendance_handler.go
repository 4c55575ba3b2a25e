package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/middleware"
	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/service"
	"github.com/noah-isme/chulseok-go-api/internal/utils"
)

// AttendanceHandler wires attendance HTTP routes.
type AttendanceHandler struct {
	service   service.AttendanceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service service.AttendanceService, validator *validator.Validate, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches attendance endpoints to the router group. The summary
// route must precede the id route so "summary" is not parsed as an id.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(string(models.RoleStudent)), h.submit)
	router.Get("", h.list)
	router.Get("/summary", middleware.RequireRole(string(models.RoleTeacher), string(models.RoleAdmin)), h.summary)
	router.Get("/:id", h.get)
	router.Patch("/:id/approve", middleware.RequireRole(string(models.RoleTeacher)), h.approve)
	router.Patch("/:id/reject", middleware.RequireRole(string(models.RoleTeacher)), h.reject)
}

func (h *AttendanceHandler) submit(c *fiber.Ctx) error {
	var payload dto.AttendanceSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attendance, err := h.service.Submit(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance submitted", attendance)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	classID, err := parseUintQuery(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := service.AttendanceListFilter{
		ClassID: classID,
		Date:    c.Query("date"),
		Status:  c.Query("status"),
	}

	attendances, err := h.service.List(c.Context(), userIDFromContext(c), userRoleFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendances retrieved", attendances)
}

func (h *AttendanceHandler) summary(c *fiber.Ctx) error {
	classID, err := parseUintQuery(c, "class_id")
	if err != nil || classID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "class_id is required")
	}

	date := c.Query("date")
	if date == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "date is required")
	}

	summary, err := h.service.ClassSummary(c.Context(), classID, date)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "summary retrieved", summary)
}

func (h *AttendanceHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attendance, err := h.service.Get(c.Context(), userIDFromContext(c), userRoleFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", attendance)
}

func (h *AttendanceHandler) approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve, "attendance approved")
}

func (h *AttendanceHandler) reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject, "attendance rejected")
}

func (h *AttendanceHandler) decide(c *fiber.Ctx, op func(ctx context.Context, userID uint, id uint) (dto.AttendanceResponse, error), message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attendance, err := op(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, attendance)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrValidation), errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateSubmission), errors.Is(err, service.ErrInvalidState):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAttendanceNotFound), errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
