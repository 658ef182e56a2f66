package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// ErrAssessmentNotFound indicates the requested assessment does not exist or
// is not visible to the caller.
var ErrAssessmentNotFound = errors.New("assessment not found")

// ErrTargetMismatch indicates the target reference does not match the
// assessment type, or the wrong number of references was supplied.
var ErrTargetMismatch = errors.New("assessment target must match its type")

// ErrTimeLimitRequired indicates a timed assessment without a time limit.
var ErrTimeLimitRequired = errors.New("timed assessments require a time limit")

// ErrScheduleInvalid indicates available_until is not after available_from.
var ErrScheduleInvalid = errors.New("availability window must end after it starts")

// AssessmentService exposes assessment authoring and listing use cases.
// Ownership checks treat foreign assessments as absent; a teacher reading
// another teacher's assessment gets ErrAssessmentNotFound, not a 403.
type AssessmentService interface {
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssessmentResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.AssessmentResponse, error)
	Get(ctx context.Context, teacherID, id uint) (dto.AssessmentResponse, error)
	Create(ctx context.Context, teacherID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error)
	Update(ctx context.Context, teacherID, id uint, payload dto.AssessmentUpdateRequest) (dto.AssessmentResponse, error)
	Delete(ctx context.Context, teacherID, id uint) error
}

type assessmentService struct {
	repo      repository.AssessmentRepository
	catalog   repository.CatalogRepository
	validator *validator.Validate
	audit     AuditRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssessmentService builds a new assessment service.
func NewAssessmentService(repo repository.AssessmentRepository, catalog repository.CatalogRepository, validate *validator.Validate, audit AuditRecorder, logger zerolog.Logger) AssessmentService {
	return &assessmentService{
		repo:      repo,
		catalog:   catalog,
		validator: validate,
		audit:     audit,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "assessment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assessmentService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssessmentResponse, error) {
	assessments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssessmentResponseSlice(assessments, s.now()), nil
}

func (s *assessmentService) ListForStudent(ctx context.Context, studentID uint) ([]dto.AssessmentResponse, error) {
	assessments, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssessmentResponseSlice(assessments, s.now()), nil
}

func (s *assessmentService) Get(ctx context.Context, teacherID, id uint) (dto.AssessmentResponse, error) {
	assessment, err := s.ownedAssessment(ctx, teacherID, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	return dto.NewAssessmentResponse(assessment, s.now()), nil
}

func (s *assessmentService) Create(ctx context.Context, teacherID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}

	availableFrom, err := time.Parse(time.RFC3339, payload.AvailableFrom)
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("invalid available_from: %w", err)
	}

	assessment := models.Assessment{
		Title:            strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description:      s.sanitizer.Sanitize(payload.Description),
		Type:             models.AssessmentType(payload.Type),
		TeacherID:        teacherID,
		LessonID:         payload.LessonID,
		ModuleID:         payload.ModuleID,
		CourseID:         payload.CourseID,
		IsPublished:      payload.IsPublished,
		IsTimed:          payload.IsTimed,
		TimeLimitMinutes: payload.TimeLimitMinutes,
		MaxAttempts:      payload.MaxAttempts,
		PassingScore:     payload.PassingScore,
		AvailableFrom:    availableFrom,
	}

	if payload.AvailableUntil != nil {
		until, err := time.Parse(time.RFC3339, *payload.AvailableUntil)
		if err != nil {
			return dto.AssessmentResponse{}, fmt.Errorf("invalid available_until: %w", err)
		}
		assessment.AvailableUntil = &until
	}

	if err := s.checkInvariants(assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	// Targets belonging to another teacher are indistinguishable from
	// missing ones.
	kind, targetID, _ := assessment.Target()
	owner, err := s.catalog.OwningTeacher(ctx, kind, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssessmentResponse{}, ErrTargetMismatch
		}

		return dto.AssessmentResponse{}, err
	}
	if owner != teacherID {
		return dto.AssessmentResponse{}, ErrTargetMismatch
	}

	if err := s.repo.Create(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.logger.Info().
		Uint("assessment_id", assessment.ID).
		Str("type", string(assessment.Type)).
		Uint("teacher_id", teacherID).
		Msg("assessment created")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "assessment.created",
		EntityType: "assessment",
		EntityID:   &assessment.ID,
		Metadata: map[string]interface{}{
			"type":   string(assessment.Type),
			"target": fmt.Sprintf("%s:%d", kind, targetID),
		},
	})

	return dto.NewAssessmentResponse(assessment, s.now()), nil
}

func (s *assessmentService) Update(ctx context.Context, teacherID, id uint, payload dto.AssessmentUpdateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}

	assessment, err := s.ownedAssessment(ctx, teacherID, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	if payload.Title != nil {
		assessment.Title = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
	}
	if payload.Description != nil {
		assessment.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.IsPublished != nil {
		assessment.IsPublished = *payload.IsPublished
	}
	if payload.IsTimed != nil {
		assessment.IsTimed = *payload.IsTimed
	}
	if payload.TimeLimitMinutes != nil {
		assessment.TimeLimitMinutes = payload.TimeLimitMinutes
	}
	if payload.MaxAttempts != nil {
		assessment.MaxAttempts = *payload.MaxAttempts
	}
	if payload.PassingScore != nil {
		assessment.PassingScore = *payload.PassingScore
	}
	if payload.AvailableFrom != nil {
		from, err := time.Parse(time.RFC3339, *payload.AvailableFrom)
		if err != nil {
			return dto.AssessmentResponse{}, fmt.Errorf("invalid available_from: %w", err)
		}
		assessment.AvailableFrom = from
	}
	if payload.AvailableUntil != nil {
		until, err := time.Parse(time.RFC3339, *payload.AvailableUntil)
		if err != nil {
			return dto.AssessmentResponse{}, fmt.Errorf("invalid available_until: %w", err)
		}
		assessment.AvailableUntil = &until
	}

	// Switching a timed assessment off clears its limit.
	if !assessment.IsTimed {
		assessment.TimeLimitMinutes = nil
	}

	if err := s.checkInvariants(assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	if err := s.repo.Update(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "assessment.updated",
		EntityType: "assessment",
		EntityID:   &assessment.ID,
	})

	return dto.NewAssessmentResponse(assessment, s.now()), nil
}

func (s *assessmentService) Delete(ctx context.Context, teacherID, id uint) error {
	if _, err := s.ownedAssessment(ctx, teacherID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssessmentNotFound
		}

		return err
	}

	s.logger.Info().Uint("assessment_id", id).Msg("assessment deleted")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "assessment.deleted",
		EntityType: "assessment",
		EntityID:   &id,
	})

	return nil
}

func (s *assessmentService) ownedAssessment(ctx context.Context, teacherID, id uint) (models.Assessment, error) {
	assessment, err := s.repo.GetByID(ctx, id)
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

func (s *assessmentService) checkInvariants(assessment models.Assessment) error {
	if !assessment.TargetMatchesType() {
		return ErrTargetMismatch
	}
	if assessment.IsTimed && (assessment.TimeLimitMinutes == nil || *assessment.TimeLimitMinutes <= 0) {
		return ErrTimeLimitRequired
	}
	if assessment.AvailableUntil != nil && !assessment.AvailableUntil.After(assessment.AvailableFrom) {
		return ErrScheduleInvalid
	}

	return nil
}
