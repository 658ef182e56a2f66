package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
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

// ErrAttemptNotFound indicates the attempt does not exist or belongs to
// another student.
var ErrAttemptNotFound = errors.New("attempt not found")

// ErrMaxAttemptsReached indicates the student has used up every allowed
// attempt for the assessment.
var ErrMaxAttemptsReached = errors.New("maximum attempts reached")

// ErrAttemptAlreadyActive indicates an in-progress attempt already exists for
// the same student and assessment.
var ErrAttemptAlreadyActive = errors.New("an attempt is already in progress")

// ErrAttemptNotInProgress indicates a submit against an attempt that already
// left the in-progress state.
var ErrAttemptNotInProgress = errors.New("attempt is not in progress")

// ErrAttemptExpired indicates the attempt ran out of time before the submit
// arrived. The attempt is moved to expired as a side effect.
var ErrAttemptExpired = errors.New("attempt has expired")

// ErrAttemptStillInProgress indicates a result request for an attempt that
// has not been submitted yet.
var ErrAttemptStillInProgress = errors.New("attempt is still in progress")

// ErrGradingPending indicates the attempt is submitted but manual grading is
// still outstanding.
var ErrGradingPending = errors.New("grading is still pending")

// ErrUnknownQuestion indicates a submitted answer references a question that
// is not part of the attempt.
var ErrUnknownQuestion = errors.New("answer references an unknown question")

// ErrOptionMismatch indicates a selected option that does not belong to its
// question.
var ErrOptionMismatch = errors.New("selected option does not belong to the question")

// FinalScorer recomputes an attempt's aggregate score from its current answer
// set. Implemented by the grading service.
type FinalScorer interface {
	CalculateFinalScore(ctx context.Context, attemptID uint) error
}

// AttemptService drives the attempt lifecycle from start through submit to
// result retrieval, plus the expiry sweep.
type AttemptService interface {
	Start(ctx context.Context, studentID, assessmentID uint) (dto.AttemptStartResponse, error)
	Submit(ctx context.Context, studentID, attemptID uint, payload dto.AttemptSubmitRequest) (dto.AttemptSummaryResponse, error)
	Result(ctx context.Context, studentID, attemptID uint) (dto.AttemptResultResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.AttemptSummaryResponse, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

type attemptService struct {
	repo        repository.AttemptRepository
	assessments repository.AssessmentRepository
	eligibility EligibilityService
	scorer      FinalScorer
	validator   *validator.Validate
	cache       *redis.Client
	lockTTL     time.Duration
	audit       AuditRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAttemptService builds a new attempt service. The cache client is
// optional; without it the in-transaction row lock remains the only guard
// against concurrent starts.
func NewAttemptService(repo repository.AttemptRepository, assessments repository.AssessmentRepository, eligibility EligibilityService, scorer FinalScorer, validate *validator.Validate, cache *redis.Client, lockTTL time.Duration, audit AuditRecorder, logger zerolog.Logger) AttemptService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &attemptService{
		repo:        repo,
		assessments: assessments,
		eligibility: eligibility,
		scorer:      scorer,
		validator:   validate,
		cache:       cache,
		lockTTL:     lockTTL,
		audit:       audit,
		logger:      logger.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

func (s *attemptService) Start(ctx context.Context, studentID, assessmentID uint) (dto.AttemptStartResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/eduva-go-api/internal/service/attempt")
	ctx, span := tracer.Start(ctx, "attempt.start")
	span.SetAttributes(
		attribute.Int64("attempt.student_id", int64(studentID)),
		attribute.Int64("attempt.assessment_id", int64(assessmentID)),
	)
	defer span.End()

	now := s.now()

	assessment, err := s.assessments.GetByIDWithQuestions(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "assessment_not_found")
			return dto.AttemptStartResponse{}, ErrAssessmentNotFound
		}
		span.RecordError(err)
		return dto.AttemptStartResponse{}, err
	}

	if err := s.eligibility.CanAccess(ctx, studentID, assessment, now); err != nil {
		span.SetStatus(codes.Error, "access_denied")
		return dto.AttemptStartResponse{}, err
	}

	used, err := s.repo.CountByStudentAndAssessment(ctx, studentID, assessmentID)
	if err != nil {
		span.RecordError(err)
		return dto.AttemptStartResponse{}, err
	}
	if used >= int64(assessment.MaxAttempts) {
		span.SetStatus(codes.Error, "max_attempts_reached")
		return dto.AttemptStartResponse{}, ErrMaxAttemptsReached
	}

	// Best-effort fast path; the row lock inside CreateWithAnswers stays
	// authoritative.
	if s.cache != nil {
		key := startLockKey(studentID, assessmentID)
		acquired, err := s.cache.SetNX(ctx, key, "1", s.lockTTL).Result()
		if err == nil && !acquired {
			span.SetStatus(codes.Error, "attempt_already_active")
			return dto.AttemptStartResponse{}, ErrAttemptAlreadyActive
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("start lock unavailable, relying on row lock")
		} else {
			defer s.cache.Del(context.WithoutCancel(ctx), key)
		}
	}

	attempt := models.StudentAssessmentAttempt{
		StudentID:     studentID,
		AssessmentID:  assessmentID,
		AttemptNumber: int(used) + 1,
		Status:        models.AttemptInProgress,
		StartedAt:     now,
	}

	questionIDs := make([]uint, 0, len(assessment.Questions))
	for _, question := range assessment.Questions {
		questionIDs = append(questionIDs, question.ID)
	}

	if err := s.repo.CreateWithAnswers(ctx, &attempt, questionIDs); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			span.SetStatus(codes.Error, "attempt_already_active")
			return dto.AttemptStartResponse{}, ErrAttemptAlreadyActive
		}
		span.RecordError(err)
		return dto.AttemptStartResponse{}, err
	}

	observability.AttemptTransitions().WithLabelValues("started").Inc()
	span.SetAttributes(attribute.Int64("attempt.id", int64(attempt.ID)))
	span.SetStatus(codes.Ok, "started")

	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Uint("student_id", studentID).
		Uint("assessment_id", assessmentID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("attempt started")

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    studentID,
		ActorRole:  "student",
		Action:     "attempt.started",
		EntityType: "attempt",
		EntityID:   &attempt.ID,
		Metadata:   map[string]interface{}{"assessment_id": assessmentID, "attempt_number": attempt.AttemptNumber},
	})

	response := dto.AttemptStartResponse{
		AttemptID:        attempt.ID,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		TimeLimitMinutes: assessment.TimeLimitMinutes,
		TotalQuestions:   assessment.TotalQuestions,
		AvailableUntil:   assessment.AvailableUntil,
		Questions:        make([]dto.AttemptQuestion, 0, len(assessment.Questions)),
	}
	for _, question := range assessment.Questions {
		response.Questions = append(response.Questions, dto.NewAttemptQuestion(question))
	}

	return response, nil
}

func (s *attemptService) Submit(ctx context.Context, studentID, attemptID uint, payload dto.AttemptSubmitRequest) (dto.AttemptSummaryResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/eduva-go-api/internal/service/attempt")
	ctx, span := tracer.Start(ctx, "attempt.submit")
	span.SetAttributes(attribute.Int64("attempt.id", int64(attemptID)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AttemptSummaryResponse{}, err
	}

	now := s.now()

	attempt, err := s.ownedAttemptWithAnswers(ctx, studentID, attemptID)
	if err != nil {
		span.SetStatus(codes.Error, "attempt_not_found")
		return dto.AttemptSummaryResponse{}, err
	}

	if attempt.Status != models.AttemptInProgress {
		span.SetStatus(codes.Error, "not_in_progress")
		return dto.AttemptSummaryResponse{}, ErrAttemptNotInProgress
	}

	if attempt.IsExpired(now) {
		if err := s.expireAttempt(ctx, &attempt, now); err != nil {
			return dto.AttemptSummaryResponse{}, err
		}
		span.SetStatus(codes.Error, "expired")
		return dto.AttemptSummaryResponse{}, ErrAttemptExpired
	}

	byQuestion := make(map[uint]*models.StudentAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		byQuestion[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}

	for _, submitted := range payload.Answers {
		answer, ok := byQuestion[submitted.QuestionID]
		if !ok {
			span.SetStatus(codes.Error, "unknown_question")
			return dto.AttemptSummaryResponse{}, ErrUnknownQuestion
		}

		if answer.Question.Type.IsAutoGradable() {
			if submitted.SelectedOptionID != nil {
				if _, ok := answer.Question.OptionByID(*submitted.SelectedOptionID); !ok {
					span.SetStatus(codes.Error, "option_mismatch")
					return dto.AttemptSummaryResponse{}, ErrOptionMismatch
				}
			}
			answer.SelectedOptionID = submitted.SelectedOptionID
			answer.TextAnswer = nil
		} else {
			answer.TextAnswer = submitted.TextAnswer
			answer.SelectedOptionID = nil
		}
	}

	// Every choice answer is auto-graded at submit time, unanswered ones
	// included, so the aggregate sees them as settled at zero marks.
	answers := make([]*models.StudentAnswer, 0, len(attempt.Answers))
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		if answer.Question.Type.IsAutoGradable() {
			autoGradeAnswer(answer)
		}
		answers = append(answers, answer)
	}

	elapsed := attempt.Elapsed(now)
	attempt.Status = models.AttemptSubmitted
	attempt.EndedAt = &now
	attempt.TimeTakenSeconds = &elapsed

	if err := s.repo.SaveSubmission(ctx, &attempt, answers); err != nil {
		span.RecordError(err)
		return dto.AttemptSummaryResponse{}, err
	}

	observability.AttemptTransitions().WithLabelValues("submitted").Inc()

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    studentID,
		ActorRole:  "student",
		Action:     "attempt.submitted",
		EntityType: "attempt",
		EntityID:   &attempt.ID,
	})

	if err := s.scorer.CalculateFinalScore(ctx, attempt.ID); err != nil {
		span.RecordError(err)
		return dto.AttemptSummaryResponse{}, err
	}

	final, err := s.repo.GetByID(ctx, attempt.ID)
	if err != nil {
		span.RecordError(err)
		return dto.AttemptSummaryResponse{}, err
	}

	span.SetStatus(codes.Ok, string(final.Status))

	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Str("status", string(final.Status)).
		Int("time_taken_seconds", elapsed).
		Msg("attempt submitted")

	return dto.NewAttemptSummaryResponse(final), nil
}

// Result serves the graded outcome. Submitted attempts that still wait on
// manual grading yield ErrGradingPending so the transport can answer 202.
func (s *attemptService) Result(ctx context.Context, studentID, attemptID uint) (dto.AttemptResultResponse, error) {
	attempt, err := s.ownedAttemptWithAnswers(ctx, studentID, attemptID)
	if err != nil {
		return dto.AttemptResultResponse{}, err
	}

	switch attempt.Status {
	case models.AttemptInProgress:
		return dto.AttemptResultResponse{}, ErrAttemptStillInProgress
	case models.AttemptSubmitted:
		return dto.AttemptResultResponse{}, ErrGradingPending
	}

	return dto.NewAttemptResultResponse(attempt), nil
}

func (s *attemptService) ListForStudent(ctx context.Context, studentID uint) ([]dto.AttemptSummaryResponse, error) {
	attempts, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttemptSummaryResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, dto.NewAttemptSummaryResponse(attempt))
	}

	return responses, nil
}

// ExpireOverdue moves every overdue in-progress attempt to expired and
// returns how many were swept. Driven by the cron schedule in main.
func (s *attemptService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()

	attempts, err := s.repo.ListInProgress(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range attempts {
		if !attempts[i].IsExpired(now) {
			continue
		}
		if err := s.expireAttempt(ctx, &attempts[i], now); err != nil {
			s.logger.Error().Err(err).Uint("attempt_id", attempts[i].ID).Msg("failed to expire attempt")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info().Int("expired", swept).Msg("expiry sweep finished")
	}

	return swept, nil
}

func (s *attemptService) expireAttempt(ctx context.Context, attempt *models.StudentAssessmentAttempt, now time.Time) error {
	elapsed := attempt.Elapsed(now)
	attempt.Status = models.AttemptExpired
	attempt.EndedAt = &now
	attempt.TimeTakenSeconds = &elapsed

	if err := s.repo.Update(ctx, attempt); err != nil {
		return err
	}

	observability.AttemptTransitions().WithLabelValues("expired").Inc()

	recordAudit(ctx, s.audit, AuditEntry{
		ActorID:    attempt.StudentID,
		ActorRole:  "student",
		Action:     "attempt.expired",
		EntityType: "attempt",
		EntityID:   &attempt.ID,
	})

	return nil
}

func (s *attemptService) ownedAttemptWithAnswers(ctx context.Context, studentID, attemptID uint) (models.StudentAssessmentAttempt, error) {
	attempt, err := s.repo.GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentAssessmentAttempt{}, ErrAttemptNotFound
		}

		return models.StudentAssessmentAttempt{}, err
	}
	if attempt.StudentID != studentID {
		return models.StudentAssessmentAttempt{}, ErrAttemptNotFound
	}

	return attempt, nil
}

func startLockKey(studentID, assessmentID uint) string {
	return fmt.Sprintf("eduva:attempt:start:%d:%d", studentID, assessmentID)
}
