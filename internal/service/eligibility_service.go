package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// ErrAssessmentNotPublished indicates the assessment is not visible to students yet.
var ErrAssessmentNotPublished = errors.New("assessment is not published")

// ErrAssessmentNotStarted indicates the availability window has not opened.
var ErrAssessmentNotStarted = errors.New("assessment has not started yet")

// ErrAssessmentEnded indicates the availability window has closed.
var ErrAssessmentEnded = errors.New("assessment has already ended")

// ErrNotEnrolled indicates the student has no active enrollment covering the
// assessment's target.
var ErrNotEnrolled = errors.New("not enrolled in the related course or module")

// EligibilityService decides whether a student may access an assessment at a
// given instant. Denial reasons are distinct so callers can surface them.
type EligibilityService interface {
	CanAccess(ctx context.Context, studentID uint, assessment models.Assessment, now time.Time) error
}

type eligibilityService struct {
	catalog repository.CatalogRepository
	logger  zerolog.Logger
}

// NewEligibilityService constructs the access gate.
func NewEligibilityService(catalog repository.CatalogRepository, logger zerolog.Logger) EligibilityService {
	return &eligibilityService{
		catalog: catalog,
		logger:  logger.With().Str("component", "eligibility_service").Logger(),
	}
}

func (s *eligibilityService) CanAccess(ctx context.Context, studentID uint, assessment models.Assessment, now time.Time) error {
	if !assessment.IsPublished {
		return ErrAssessmentNotPublished
	}
	if now.Before(assessment.AvailableFrom) {
		return ErrAssessmentNotStarted
	}
	if assessment.AvailableUntil != nil && now.After(*assessment.AvailableUntil) {
		return ErrAssessmentEnded
	}

	kind, targetID, ok := assessment.Target()
	if !ok {
		return fmt.Errorf("assessment %d has no target reference", assessment.ID)
	}

	enrolled, err := s.isEnrolled(ctx, studentID, kind, targetID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	return nil
}

// Course exams need a full course enrollment; assignments a module
// enrollment; quizzes resolve through their lesson's module.
func (s *eligibilityService) isEnrolled(ctx context.Context, studentID uint, kind models.TargetKind, targetID uint) (bool, error) {
	switch kind {
	case models.TargetCourse:
		return s.catalog.IsCourseEnrolled(ctx, studentID, targetID)
	case models.TargetModule:
		return s.catalog.IsModuleEnrolled(ctx, studentID, targetID)
	case models.TargetLesson:
		moduleID, err := s.catalog.ModuleIDForLesson(ctx, targetID)
		if err != nil {
			return false, err
		}
		return s.catalog.IsModuleEnrolled(ctx, studentID, moduleID)
	default:
		return false, fmt.Errorf("unknown target kind %q", kind)
	}
}
