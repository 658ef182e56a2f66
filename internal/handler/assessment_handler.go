package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/service"
	"github.com/noah-isme/eduva-go-api/internal/utils"
)

// AssessmentHandler wires assessment authoring and listing routes.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// RegisterTeacher attaches the authoring endpoints to the teacher group.
func (h *AssessmentHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.listMine)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// RegisterStudent attaches the listing endpoint to the student group.
func (h *AssessmentHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.listAvailable)
}

func (h *AssessmentHandler) listMine(c *fiber.Ctx) error {
	assessments, err := h.service.ListByTeacher(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *AssessmentHandler) listAvailable(c *fiber.Ctx) error {
	assessments, err := h.service.ListForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *AssessmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assessment, err := h.service.Get(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessment retrieved", assessment)
}

func (h *AssessmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssessmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment created", assessment)
}

func (h *AssessmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssessmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.service.Update(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessment updated", assessment)
}

func (h *AssessmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessment deleted", fiber.Map{"id": id})
}

func (h *AssessmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assessment not found")
	case errors.Is(err, service.ErrTargetMismatch),
		errors.Is(err, service.ErrTimeLimitRequired),
		errors.Is(err, service.ErrScheduleInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *AssessmentHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
