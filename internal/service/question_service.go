package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// ErrQuestionNotFound indicates the question does not exist or belongs to an
// assessment the caller does not own.
var ErrQuestionNotFound = errors.New("question not found")

// ErrImageTypeNotAllowed indicates the uploaded question image is not one of
// the accepted formats.
var ErrImageTypeNotAllowed = errors.New("image type not allowed")

// ErrImageTooLarge indicates the uploaded question image exceeds the limit.
var ErrImageTooLarge = errors.New("image exceeds the size limit")

// ErrImportInvalid indicates the bulk import document failed schema or
// content validation. Nothing is written on a failed import.
var ErrImportInvalid = errors.New("import document is invalid")

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

const maxQuestionImageBytes = 5 << 20

// questionImportSchema validates the bulk import document before anything is
// written. Per-question semantic checks (options on auto-gradable types only)
// happen afterwards.
const questionImportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "maxItems": 200,
      "items": {
        "type": "object",
        "required": ["question_text", "question_type", "mark"],
        "properties": {
          "question_text": {"type": "string", "minLength": 1},
          "question_type": {"enum": ["multiple_choice", "true_false", "short_answer", "essay", "fill_blank"]},
          "mark": {"type": "number", "exclusiveMinimum": 0},
          "explanation": {"type": "string"},
          "options": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["option_text", "is_correct"],
              "properties": {
                "option_text": {"type": "string", "minLength": 1, "maxLength": 500},
                "is_correct": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`

// QuestionService exposes question authoring use cases, bulk import included.
type QuestionService interface {
	ListByAssessment(ctx context.Context, teacherID, assessmentID uint) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, teacherID, id uint) (dto.QuestionResponse, error)
	Create(ctx context.Context, teacherID, assessmentID uint, payload dto.QuestionCreateRequest, image *multipart.FileHeader) (dto.QuestionResponse, error)
	Update(ctx context.Context, teacherID, id uint, payload dto.QuestionUpdateRequest, image *multipart.FileHeader) (dto.QuestionResponse, error)
	Delete(ctx context.Context, teacherID, id uint) error
	Import(ctx context.Context, teacherID, assessmentID uint, document []byte) (dto.QuestionImportResponse, error)
}

type questionService struct {
	repo        repository.QuestionRepository
	assessments repository.AssessmentRepository
	validator   *validator.Validate
	uploader    FileUploader
	audit       AuditRecorder
	sanitizer   *bluemonday.Policy
	schema      *jsonschema.Schema
	logger      zerolog.Logger
}

// NewQuestionService builds a new question service.
func NewQuestionService(repo repository.QuestionRepository, assessments repository.AssessmentRepository, validate *validator.Validate, uploader FileUploader, audit AuditRecorder, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:        repo,
		assessments: assessments,
		validator:   validate,
		uploader:    uploader,
		audit:       audit,
		sanitizer:   bluemonday.StrictPolicy(),
		schema:      jsonschema.MustCompileString("question_import.schema.json", questionImportSchema),
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) ListByAssessment(ctx context.Context, teacherID, assessmentID uint) ([]dto.QuestionResponse, error) {
	if _, err := s.ownedParent(ctx, teacherID, assessmentID); err != nil {
		return nil, err
	}

	questions, err := s.repo.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, teacherID, id uint) (dto.QuestionResponse, error) {
	question, err := s.ownedQuestion(ctx, teacherID, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Create(ctx context.Context, teacherID, assessmentID uint, payload dto.QuestionCreateRequest, image *multipart.FileHeader) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	if _, err := s.ownedParent(ctx, teacherID, assessmentID); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		AssessmentID: assessmentID,
		Text:         strings.TrimSpace(s.sanitizer.Sanitize(payload.Text)),
		Type:         models.QuestionType(payload.Type),
		Mark:         payload.Mark,
		Explanation:  s.sanitizer.Sanitize(payload.Explanation),
	}

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.ImageURL = url
	}

	if err := s.repo.Create(ctx, &question, payload.Order); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().
		Uint("question_id", question.ID).
		Uint("assessment_id", assessmentID).
		Int("order", question.Order).
		Msg("question created")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "question.created",
		EntityType: "question",
		EntityID:   &question.ID,
		Metadata:   map[string]interface{}{"assessment_id": assessmentID},
	})

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, teacherID, id uint, payload dto.QuestionUpdateRequest, image *multipart.FileHeader) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.ownedQuestion(ctx, teacherID, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	if payload.Text != nil {
		question.Text = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Text))
	}
	if payload.Type != nil {
		next := models.QuestionType(*payload.Type)
		if !next.IsAutoGradable() && len(question.Options) > 0 {
			return dto.QuestionResponse{}, ErrOptionsNotAllowed
		}
		question.Type = next
	}
	if payload.Mark != nil {
		question.Mark = *payload.Mark
	}
	if payload.Explanation != nil {
		question.Explanation = s.sanitizer.Sanitize(*payload.Explanation)
	}

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.ImageURL = url
	}

	// Save must not cascade into the option rows.
	options := question.Options
	question.Options = nil

	if err := s.repo.Update(ctx, &question, payload.Order); err != nil {
		return dto.QuestionResponse{}, err
	}
	question.Options = options

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "question.updated",
		EntityType: "question",
		EntityID:   &question.ID,
	})

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, teacherID, id uint) error {
	question, err := s.ownedQuestion(ctx, teacherID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}

		return err
	}

	s.logger.Info().Uint("question_id", id).Msg("question deleted")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "question.deleted",
		EntityType: "question",
		EntityID:   &id,
		Metadata:   map[string]interface{}{"assessment_id": question.AssessmentID},
	})

	return nil
}

// Import validates the whole document first and writes nothing on failure.
// Imported questions are appended after the current last order slot.
func (s *questionService) Import(ctx context.Context, teacherID, assessmentID uint, document []byte) (dto.QuestionImportResponse, error) {
	if _, err := s.ownedParent(ctx, teacherID, assessmentID); err != nil {
		return dto.QuestionImportResponse{}, err
	}

	var raw interface{}
	if err := json.Unmarshal(document, &raw); err != nil {
		return dto.QuestionImportResponse{}, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		return dto.QuestionImportResponse{}, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}

	var request dto.QuestionImportRequest
	if err := json.Unmarshal(document, &request); err != nil {
		return dto.QuestionImportResponse{}, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}

	questions := make([]models.Question, 0, len(request.Questions))
	for i, item := range request.Questions {
		questionType := models.QuestionType(item.Type)
		if questionType.IsAutoGradable() {
			if err := checkImportOptions(item.Options); err != nil {
				return dto.QuestionImportResponse{}, fmt.Errorf("%w: question %d: %v", ErrImportInvalid, i+1, err)
			}
		} else if len(item.Options) > 0 {
			return dto.QuestionImportResponse{}, fmt.Errorf("%w: question %d: options are only allowed on auto-gradable types", ErrImportInvalid, i+1)
		}

		question := models.Question{
			Text:        strings.TrimSpace(s.sanitizer.Sanitize(item.Text)),
			Type:        questionType,
			Mark:        item.Mark,
			Explanation: s.sanitizer.Sanitize(item.Explanation),
		}
		for j, option := range item.Options {
			question.Options = append(question.Options, models.QuestionOption{
				Text:      strings.TrimSpace(s.sanitizer.Sanitize(option.Text)),
				IsCorrect: option.IsCorrect,
				Order:     j + 1,
			})
		}
		questions = append(questions, question)
	}

	if err := s.repo.CreateBatch(ctx, assessmentID, questions); err != nil {
		return dto.QuestionImportResponse{}, err
	}

	s.logger.Info().
		Uint("assessment_id", assessmentID).
		Int("imported", len(questions)).
		Msg("questions imported")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "question.imported",
		EntityType: "assessment",
		EntityID:   &assessmentID,
		Metadata:   map[string]interface{}{"count": len(questions)},
	})

	return dto.QuestionImportResponse{Imported: len(questions)}, nil
}

func checkImportOptions(options []dto.ImportOption) error {
	if len(options) < 2 {
		return errors.New("at least two options are required")
	}
	correct := 0
	for _, option := range options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return errors.New("at least one option must be correct")
	}

	return nil
}

func (s *questionService) uploadImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file.Size > maxQuestionImageBytes {
		return "", ErrImageTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxQuestionImageBytes+1)); err != nil {
		return "", err
	}
	if buf.Len() > maxQuestionImageBytes {
		return "", ErrImageTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	switch mime.String() {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return "", ErrImageTypeNotAllowed
	}

	return s.uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
}

func (s *questionService) ownedParent(ctx context.Context, teacherID, assessmentID uint) (models.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assessment{}, ErrAssessmentNotFound
		}

		return models.Assessment{}, err
	}
	if assessment.TeacherID != teacherID {
		return models.Assessment{}, ErrAssessmentNotFound
	}

	return assessment, nil
}

func (s *questionService) ownedQuestion(ctx context.Context, teacherID, id uint) (models.Question, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}

		return models.Question{}, err
	}

	if _, err := s.ownedParent(ctx, teacherID, question.AssessmentID); err != nil {
		return models.Question{}, ErrQuestionNotFound
	}

	return question, nil
}
