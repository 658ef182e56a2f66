package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// ErrOptionNotFound indicates the option does not exist or belongs to a
// question the caller does not own.
var ErrOptionNotFound = errors.New("option not found")

// ErrOptionsNotAllowed indicates an attempt to attach options to a question
// type that is not auto-gradable.
var ErrOptionsNotAllowed = errors.New("options are only allowed on auto-gradable question types")

// OptionService exposes answer option authoring use cases.
type OptionService interface {
	ListByQuestion(ctx context.Context, teacherID, questionID uint) ([]dto.OptionResponse, error)
	Create(ctx context.Context, teacherID, questionID uint, payload dto.OptionCreateRequest) (dto.OptionResponse, error)
	Update(ctx context.Context, teacherID, id uint, payload dto.OptionUpdateRequest) (dto.OptionResponse, error)
	Delete(ctx context.Context, teacherID, id uint) error
}

type optionService struct {
	repo        repository.OptionRepository
	questions   repository.QuestionRepository
	assessments repository.AssessmentRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewOptionService builds a new option service.
func NewOptionService(repo repository.OptionRepository, questions repository.QuestionRepository, assessments repository.AssessmentRepository, validate *validator.Validate, logger zerolog.Logger) OptionService {
	return &optionService{
		repo:        repo,
		questions:   questions,
		assessments: assessments,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "option_service").Logger(),
	}
}

func (s *optionService) ListByQuestion(ctx context.Context, teacherID, questionID uint) ([]dto.OptionResponse, error) {
	if _, err := s.ownedQuestion(ctx, teacherID, questionID); err != nil {
		return nil, err
	}

	options, err := s.repo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.OptionResponse, 0, len(options))
	for _, option := range options {
		responses = append(responses, dto.NewOptionResponse(option))
	}

	return responses, nil
}

func (s *optionService) Create(ctx context.Context, teacherID, questionID uint, payload dto.OptionCreateRequest) (dto.OptionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OptionResponse{}, err
	}

	question, err := s.ownedQuestion(ctx, teacherID, questionID)
	if err != nil {
		return dto.OptionResponse{}, err
	}
	if !question.Type.IsAutoGradable() {
		return dto.OptionResponse{}, ErrOptionsNotAllowed
	}

	option := models.QuestionOption{
		QuestionID: questionID,
		Text:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Text)),
		IsCorrect:  *payload.IsCorrect,
	}

	if err := s.repo.Create(ctx, &option, payload.Order); err != nil {
		return dto.OptionResponse{}, err
	}

	s.logger.Info().
		Uint("option_id", option.ID).
		Uint("question_id", questionID).
		Int("order", option.Order).
		Msg("option created")

	return dto.NewOptionResponse(option), nil
}

func (s *optionService) Update(ctx context.Context, teacherID, id uint, payload dto.OptionUpdateRequest) (dto.OptionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OptionResponse{}, err
	}

	option, err := s.ownedOption(ctx, teacherID, id)
	if err != nil {
		return dto.OptionResponse{}, err
	}

	if payload.Text != nil {
		option.Text = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Text))
	}
	if payload.IsCorrect != nil {
		option.IsCorrect = *payload.IsCorrect
	}

	if err := s.repo.Update(ctx, &option, payload.Order); err != nil {
		return dto.OptionResponse{}, err
	}

	return dto.NewOptionResponse(option), nil
}

func (s *optionService) Delete(ctx context.Context, teacherID, id uint) error {
	if _, err := s.ownedOption(ctx, teacherID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOptionNotFound
		}

		return err
	}

	s.logger.Info().Uint("option_id", id).Msg("option deleted")

	return nil
}

func (s *optionService) ownedQuestion(ctx context.Context, teacherID, questionID uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}

		return models.Question{}, err
	}

	assessment, err := s.assessments.GetByID(ctx, question.AssessmentID)
	if err != nil {
		return models.Question{}, err
	}
	if assessment.TeacherID != teacherID {
		return models.Question{}, ErrQuestionNotFound
	}

	return question, nil
}

func (s *optionService) ownedOption(ctx context.Context, teacherID, id uint) (models.QuestionOption, error) {
	option, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QuestionOption{}, ErrOptionNotFound
		}

		return models.QuestionOption{}, err
	}

	if _, err := s.ownedQuestion(ctx, teacherID, option.QuestionID); err != nil {
		return models.QuestionOption{}, ErrOptionNotFound
	}

	return option, nil
}
