package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/observability"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// ErrAnswerNotFound indicates the answer does not exist or belongs to an
// assessment the teacher does not own.
var ErrAnswerNotFound = errors.New("answer not found")

// ErrAnswerNotManual indicates a manual grade against an auto-gradable
// answer.
var ErrAnswerNotManual = errors.New("answer is auto-graded and cannot be graded manually")

// ErrAnswerAlreadyGraded indicates the answer already carries a manual grade.
var ErrAnswerAlreadyGraded = errors.New("answer has already been graded")

// ErrMarksOutOfRange indicates awarded marks exceed the question's mark.
var ErrMarksOutOfRange = errors.New("marks exceed the question's maximum")

// ErrAttemptNotGradable indicates the attempt is not waiting for grades.
var ErrAttemptNotGradable = errors.New("attempt is not awaiting grading")

// GradingService reconciles auto and manual grading into the attempt's final
// score. It also feeds the teacher's manual-grading queue.
type GradingService interface {
	FinalScorer
	ListPending(ctx context.Context, teacherID uint, filter repository.PendingAnswerFilter) ([]dto.PendingAnswerResponse, error)
	Grade(ctx context.Context, teacherID, answerID uint, payload dto.GradeAnswerRequest) (dto.GradedAnswerResponse, error)
}

type gradingService struct {
	answers   repository.AnswerRepository
	attempts  repository.AttemptRepository
	validator *validator.Validate
	audit     AuditRecorder
	publisher EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(answers repository.AnswerRepository, attempts repository.AttemptRepository, validate *validator.Validate, audit AuditRecorder, publisher EventPublisher, logger zerolog.Logger) GradingService {
	return &gradingService{
		answers:   answers,
		attempts:  attempts,
		validator: validate,
		audit:     audit,
		publisher: publisher,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

// autoGradeAnswer settles a choice answer from its selected option. No
// selection counts as a wrong answer worth zero marks. The answer's Question
// and its Options must be loaded.
func autoGradeAnswer(answer *models.StudentAnswer) {
	answer.AutoGraded = true
	answer.IsCorrect = false
	answer.MarksAwarded = 0

	if answer.SelectedOptionID == nil {
		return
	}
	option, ok := answer.Question.OptionByID(*answer.SelectedOptionID)
	if !ok {
		return
	}
	if option.IsCorrect {
		answer.IsCorrect = true
		answer.MarksAwarded = answer.Question.Mark
	}
}

func (s *gradingService) ListPending(ctx context.Context, teacherID uint, filter repository.PendingAnswerFilter) ([]dto.PendingAnswerResponse, error) {
	answers, err := s.answers.ListPendingManual(ctx, teacherID, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewPendingAnswerResponseSlice(answers), nil
}

func (s *gradingService) Grade(ctx context.Context, teacherID, answerID uint, payload dto.GradeAnswerRequest) (dto.GradedAnswerResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/eduva-go-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.manual")
	span.SetAttributes(
		attribute.Int64("grading.answer_id", int64(answerID)),
		attribute.Int64("grading.teacher_id", int64(teacherID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradedAnswerResponse{}, err
	}

	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "answer_not_found")
			return dto.GradedAnswerResponse{}, ErrAnswerNotFound
		}
		span.RecordError(err)
		return dto.GradedAnswerResponse{}, err
	}

	attempt, err := s.attempts.GetByID(ctx, answer.AttemptID)
	if err != nil {
		span.RecordError(err)
		return dto.GradedAnswerResponse{}, err
	}

	// Foreign answers look absent, not forbidden.
	if attempt.Assessment.TeacherID != teacherID {
		span.SetStatus(codes.Error, "answer_not_found")
		return dto.GradedAnswerResponse{}, ErrAnswerNotFound
	}

	if answer.Question.Type.IsAutoGradable() {
		observability.ManualGrades().WithLabelValues("rejected_auto").Inc()
		span.SetStatus(codes.Error, "answer_not_manual")
		return dto.GradedAnswerResponse{}, ErrAnswerNotManual
	}
	if answer.ManualGraded {
		observability.ManualGrades().WithLabelValues("rejected_regrade").Inc()
		span.SetStatus(codes.Error, "already_graded")
		return dto.GradedAnswerResponse{}, ErrAnswerAlreadyGraded
	}
	if attempt.Status != models.AttemptSubmitted {
		span.SetStatus(codes.Error, "not_gradable")
		return dto.GradedAnswerResponse{}, ErrAttemptNotGradable
	}

	marks := *payload.MarksAwarded
	if marks > answer.Question.Mark {
		observability.ManualGrades().WithLabelValues("rejected_range").Inc()
		span.SetStatus(codes.Error, "marks_out_of_range")
		return dto.GradedAnswerResponse{}, ErrMarksOutOfRange
	}

	answer.MarksAwarded = marks
	answer.IsCorrect = marks == answer.Question.Mark
	answer.ManualGraded = true
	answer.TeacherFeedback = strings.TrimSpace(payload.Feedback)

	if err := s.answers.Update(ctx, &answer); err != nil {
		span.RecordError(err)
		return dto.GradedAnswerResponse{}, err
	}

	observability.ManualGrades().WithLabelValues("graded").Inc()

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    teacherID,
		ActorRole:  "teacher",
		Action:     "answer.graded",
		EntityType: "answer",
		EntityID:   &answer.ID,
		Metadata: map[string]interface{}{
			"attempt_id":    answer.AttemptID,
			"marks_awarded": marks,
		},
	})

	if err := s.finalize(ctx, answer.AttemptID, &teacherID); err != nil {
		span.RecordError(err)
		return dto.GradedAnswerResponse{}, err
	}

	final, err := s.attempts.GetByID(ctx, answer.AttemptID)
	if err != nil {
		span.RecordError(err)
		return dto.GradedAnswerResponse{}, err
	}

	span.SetStatus(codes.Ok, string(final.Status))

	s.logger.Info().
		Uint("answer_id", answer.ID).
		Uint("attempt_id", final.ID).
		Float64("marks_awarded", marks).
		Str("attempt_status", string(final.Status)).
		Msg("answer graded")

	response := dto.GradedAnswerResponse{
		AnswerID:        answer.ID,
		AttemptID:       final.ID,
		MarksAwarded:    answer.MarksAwarded,
		TeacherFeedback: answer.TeacherFeedback,
		AttemptStatus:   string(final.Status),
	}
	if final.Status == models.AttemptGraded {
		score := final.Score
		response.AttemptScore = &score
	}

	return response, nil
}

// CalculateFinalScore recomputes the attempt aggregate from the full answer
// set. While any answer is still ungraded the attempt stays submitted;
// otherwise it transitions to graded. Idempotent.
func (s *gradingService) CalculateFinalScore(ctx context.Context, attemptID uint) error {
	return s.finalize(ctx, attemptID, nil)
}

func (s *gradingService) finalize(ctx context.Context, attemptID uint, gradedBy *uint) error {
	var event *AttemptGradedEvent

	err := s.attempts.Finalize(ctx, attemptID, func(attempt *models.StudentAssessmentAttempt, answers []models.StudentAnswer) error {
		if attempt.Status != models.AttemptSubmitted && attempt.Status != models.AttemptGraded {
			return nil
		}

		score := 0.0
		allAuto := true
		for _, answer := range answers {
			// Answers whose question was deleted after the attempt
			// started no longer count.
			if answer.Question.ID == 0 {
				continue
			}
			if !answer.IsGraded() {
				attempt.AutoGraded = false
				attempt.Status = models.AttemptSubmitted
				return nil
			}
			if !answer.Question.Type.IsAutoGradable() {
				allAuto = false
			}
			score += answer.MarksAwarded
		}

		total := attempt.Assessment.TotalMarks
		percentage := 0.0
		if total > 0 {
			percentage = round2(score / total * 100)
		}

		now := s.now()
		attempt.Score = round2(score)
		attempt.Percentage = percentage
		attempt.IsPassed = percentage >= attempt.Assessment.PassingScore
		attempt.AutoGraded = allAuto
		attempt.GradedAt = &now
		if gradedBy != nil {
			attempt.GradedBy = gradedBy
		}
		attempt.Status = models.AttemptGraded

		event = &AttemptGradedEvent{
			AttemptID:    attempt.ID,
			AssessmentID: attempt.AssessmentID,
			StudentID:    attempt.StudentID,
			Score:        attempt.Score,
			Percentage:   attempt.Percentage,
			IsPassed:     attempt.IsPassed,
			AutoGraded:   attempt.AutoGraded,
			GradedAt:     now,
		}

		return nil
	})
	if err != nil {
		return err
	}

	if event != nil {
		observability.AttemptTransitions().WithLabelValues("graded").Inc()
		publishGraded(ctx, s.publisher, *event)
	}

	return nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
