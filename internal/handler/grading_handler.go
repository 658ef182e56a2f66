package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
	"github.com/noah-isme/eduva-go-api/internal/service"
	"github.com/noah-isme/eduva-go-api/internal/utils"
)

// GradingHandler wires the teacher's manual grading routes.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the teacher group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/pending", h.listPending)
	router.Post("/answers/:id", h.grade)
}

func (h *GradingHandler) listPending(c *fiber.Ctx) error {
	filter := repository.PendingAnswerFilter{}

	assessmentID, err := parseUintQuery(c, "assessment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.AssessmentID = assessmentID

	if value := strings.TrimSpace(c.Query("assessment_type")); value != "" {
		assessmentType := models.AssessmentType(value)
		filter.AssessmentType = &assessmentType
	}
	if value := strings.TrimSpace(c.Query("question_type")); value != "" {
		questionType := models.QuestionType(value)
		if !questionType.IsValid() {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid question_type")
		}
		filter.QuestionType = &questionType
	}

	pending, err := h.service.ListPending(c.Context(), userIDFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending answers retrieved", pending)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	graded, err := h.service.Grade(c.Context(), userIDFromContext(c), answerID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer graded", graded)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found")
	case errors.Is(err, service.ErrAnswerNotManual),
		errors.Is(err, service.ErrMarksOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAnswerAlreadyGraded),
		errors.Is(err, service.ErrAttemptNotGradable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
