package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/service"
	"github.com/noah-isme/eduva-go-api/internal/utils"
)

// QuestionHandler wires question and option authoring routes. Question
// create and update accept multipart form data so an image can ride along.
type QuestionHandler struct {
	questions service.QuestionService
	options   service.OptionService
	logger    zerolog.Logger
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(questions service.QuestionService, options service.OptionService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		options:   options,
		logger:    logger.With().Str("component", "question_handler").Logger(),
	}
}

// RegisterAssessmentScoped attaches the endpoints nested under an assessment.
func (h *QuestionHandler) RegisterAssessmentScoped(router fiber.Router) {
	router.Get("/:id/questions", h.list)
	router.Post("/:id/questions", h.create)
	router.Post("/:id/questions/import", h.importBatch)
}

// RegisterQuestionScoped attaches the endpoints addressed by question id.
func (h *QuestionHandler) RegisterQuestionScoped(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/options", h.listOptions)
	router.Post("/:id/options", h.createOption)
}

// RegisterOptionScoped attaches the endpoints addressed by option id.
func (h *QuestionHandler) RegisterOptionScoped(router fiber.Router) {
	router.Patch("/:id", h.updateOption)
	router.Delete("/:id", h.deleteOption)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	questions, err := h.questions.ListByAssessment(c.Context(), userIDFromContext(c), assessmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	question, err := h.questions.Get(c.Context(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question retrieved", question)
}

func (h *QuestionHandler) create(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.QuestionCreateRequest{
		Text:        c.FormValue("question_text"),
		Type:        c.FormValue("question_type"),
		Explanation: c.FormValue("explanation"),
	}
	if mark := c.FormValue("mark"); mark != "" {
		parsed, err := strconv.ParseFloat(mark, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid mark")
		}
		payload.Mark = parsed
	}
	if order, err := parseFormInt(c, "order"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid order")
	} else if order != nil {
		payload.Order = order
	}

	image, err := c.FormFile("image")
	if err != nil {
		image = nil
	}

	question, err := h.questions.Create(c.Context(), userIDFromContext(c), assessmentID, payload, image)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *QuestionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.QuestionUpdateRequest{}
	if text := c.FormValue("question_text"); text != "" {
		payload.Text = &text
	}
	if questionType := c.FormValue("question_type"); questionType != "" {
		payload.Type = &questionType
	}
	if mark := c.FormValue("mark"); mark != "" {
		parsed, err := strconv.ParseFloat(mark, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid mark")
		}
		payload.Mark = &parsed
	}
	if explanation := c.FormValue("explanation"); explanation != "" {
		payload.Explanation = &explanation
	}
	if order, err := parseFormInt(c, "order"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid order")
	} else if order != nil {
		payload.Order = order
	}

	image, err := c.FormFile("image")
	if err != nil {
		image = nil
	}

	question, err := h.questions.Update(c.Context(), userIDFromContext(c), id, payload, image)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *QuestionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.questions.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question deleted", fiber.Map{"id": id})
}

func (h *QuestionHandler) importBatch(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.questions.Import(c.Context(), userIDFromContext(c), assessmentID, c.Body())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "questions imported", result)
}

func (h *QuestionHandler) listOptions(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	options, err := h.options.ListByQuestion(c.Context(), userIDFromContext(c), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "options retrieved", options)
}

func (h *QuestionHandler) createOption(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OptionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	option, err := h.options.Create(c.Context(), userIDFromContext(c), questionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "option created", option)
}

func (h *QuestionHandler) updateOption(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OptionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	option, err := h.options.Update(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "option updated", option)
}

func (h *QuestionHandler) deleteOption(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.options.Delete(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "option deleted", fiber.Map{"id": id})
}

func (h *QuestionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assessment not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrOptionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "option not found")
	case errors.Is(err, service.ErrOptionsNotAllowed),
		errors.Is(err, service.ErrImportInvalid),
		errors.Is(err, service.ErrImageTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseFormInt(c *fiber.Ctx, key string) (*int, error) {
	value := strings.TrimSpace(c.FormValue(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
