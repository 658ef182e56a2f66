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

// AttemptHandler wires the student attempt lifecycle routes.
type AttemptHandler struct {
	service service.AttemptService
	logger  zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(service service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		service: service,
		logger:  logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// RegisterAssessmentScoped attaches the start endpoint under an assessment,
// guarded by the supplied rate limiter.
func (h *AttemptHandler) RegisterAssessmentScoped(router fiber.Router, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/:id/attempts", limiter, h.start)
}

// RegisterAttemptScoped attaches the endpoints addressed by attempt id.
func (h *AttemptHandler) RegisterAttemptScoped(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/submit", h.submit)
	router.Get("/:id/result", h.result)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempt, err := h.service.Start(c.Context(), userIDFromContext(c), assessmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", attempt)
}

func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AttemptSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	summary, err := h.service.Submit(c.Context(), userIDFromContext(c), attemptID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt submitted", summary)
}

func (h *AttemptHandler) result(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Result(c.Context(), userIDFromContext(c), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrGradingPending) {
			pending := dto.AttemptPendingResponse{
				AttemptID: attemptID,
				Status:    "submitted",
				Message:   "grading is still pending",
			}
			return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "grading pending", pending)
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt result retrieved", result)
}

func (h *AttemptHandler) list(c *fiber.Ctx) error {
	attempts, err := h.service.ListForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempts retrieved", attempts)
}

func (h *AttemptHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound),
		errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAssessmentNotPublished),
		errors.Is(err, service.ErrAssessmentNotStarted),
		errors.Is(err, service.ErrAssessmentEnded),
		errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrMaxAttemptsReached),
		errors.Is(err, service.ErrAttemptAlreadyActive),
		errors.Is(err, service.ErrAttemptNotInProgress),
		errors.Is(err, service.ErrAttemptExpired),
		errors.Is(err, service.ErrAttemptStillInProgress):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnknownQuestion),
		errors.Is(err, service.ErrOptionMismatch):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
