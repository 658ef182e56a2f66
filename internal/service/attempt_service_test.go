package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

type attemptTestEnv struct {
	db      *gorm.DB
	fixture catalogFixture
	svc     *attemptService
	grading GradingService
}

func newAttemptTestEnv(t *testing.T, cache *redis.Client) attemptTestEnv {
	t.Helper()

	db := setupServiceDB(t)
	fixture := seedCatalog(t, db)
	logger := testLogger()
	validate := validator.New(validator.WithRequiredStructEnabled())

	attempts := repository.NewAttemptRepository(db)
	assessments := repository.NewAssessmentRepository(db)
	answers := repository.NewAnswerRepository(db)
	catalog := repository.NewCatalogRepository(db)

	eligibility := NewEligibilityService(catalog, logger)
	grading := NewGradingService(answers, attempts, validate, nil, nil, logger)
	svc := NewAttemptService(attempts, assessments, eligibility, grading, validate, cache, 0, nil, logger).(*attemptService)

	return attemptTestEnv{db: db, fixture: fixture, svc: svc, grading: grading}
}

func TestAttemptStart(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	seedChoiceQuestion(t, env.db, assessment.ID, 2, 3)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)
	require.Equal(t, 1, started.AttemptNumber)
	require.Equal(t, 2, started.TotalQuestions)
	require.Len(t, started.Questions, 2)

	// One answer slot per question exists up front.
	var count int64
	require.NoError(t, env.db.Model(&models.StudentAnswer{}).
		Where("attempt_id = ?", started.AttemptID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAttemptStartRejectsSecondActive(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	refreshTotals(t, env.db, assessment.ID)

	_, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	_, err = env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.ErrorIs(t, err, ErrAttemptAlreadyActive)
}

func TestAttemptStartCacheGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	env := newAttemptTestEnv(t, cache)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	refreshTotals(t, env.db, assessment.ID)

	// Another request already holds the start lock.
	require.NoError(t, mr.Set(startLockKey(env.fixture.StudentID, assessment.ID), "1"))

	_, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.ErrorIs(t, err, ErrAttemptAlreadyActive)

	mr.Del(startLockKey(env.fixture.StudentID, assessment.ID))
	_, err = env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)
}

func TestAttemptStartMaxAttempts(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	refreshTotals(t, env.db, assessment.ID)

	for n := 1; n <= assessment.MaxAttempts; n++ {
		ended := time.Now().Add(-time.Duration(n) * time.Hour)
		require.NoError(t, env.db.Create(&models.StudentAssessmentAttempt{
			StudentID:     env.fixture.StudentID,
			AssessmentID:  assessment.ID,
			AttemptNumber: n,
			Status:        models.AttemptGraded,
			StartedAt:     ended.Add(-10 * time.Minute),
			EndedAt:       &ended,
		}).Error)
	}

	_, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.ErrorIs(t, err, ErrMaxAttemptsReached)
}

func TestAttemptStartEligibilityDenied(t *testing.T) {
	env := newAttemptTestEnv(t, nil)

	unpublished := seedQuizAssessment(t, env.db, env.fixture, false)
	_, err := env.svc.Start(context.Background(), env.fixture.StudentID, unpublished.ID)
	require.ErrorIs(t, err, ErrAssessmentNotPublished)

	published := seedQuizAssessment(t, env.db, env.fixture, true)
	_, err = env.svc.Start(context.Background(), 999, published.ID)
	require.ErrorIs(t, err, ErrNotEnrolled)

	_, err = env.svc.Start(context.Background(), env.fixture.StudentID, 12345)
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAttemptSubmitAllAutoGradesImmediately(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	q1 := seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	q2 := seedChoiceQuestion(t, env.db, assessment.ID, 2, 3)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	summary, err := env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{
			{QuestionID: q1.ID, SelectedOptionID: &q1.Options[0].ID},
			{QuestionID: q2.ID, SelectedOptionID: &q2.Options[1].ID},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AttemptGraded), summary.Status)
	require.InDelta(t, 2.0, summary.Score, 0.001)
	require.InDelta(t, 40.0, summary.Percentage, 0.001)
	require.False(t, summary.IsPassed)

	var graded models.StudentAssessmentAttempt
	require.NoError(t, env.db.First(&graded, started.AttemptID).Error)
	require.True(t, graded.AutoGraded)
	require.Nil(t, graded.GradedBy)
	require.NotNil(t, graded.GradedAt)
}

func TestAttemptSubmitUnansweredChoiceScoresZero(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	q1 := seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	seedChoiceQuestion(t, env.db, assessment.ID, 2, 3)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	// Only the first question is answered; the second still settles.
	summary, err := env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{
			{QuestionID: q1.ID, SelectedOptionID: &q1.Options[0].ID},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AttemptGraded), summary.Status)
	require.InDelta(t, 2.0, summary.Score, 0.001)

	var answers []models.StudentAnswer
	require.NoError(t, env.db.Where("attempt_id = ?", started.AttemptID).Find(&answers).Error)
	for _, answer := range answers {
		require.True(t, answer.AutoGraded)
	}
}

func TestAttemptSubmitRejectsForeignQuestionAndOption(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	q1 := seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	q2 := seedChoiceQuestion(t, env.db, assessment.ID, 2, 3)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{{QuestionID: 9999, SelectedOptionID: &q1.Options[0].ID}},
	})
	require.ErrorIs(t, err, ErrUnknownQuestion)

	_, err = env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{{QuestionID: q1.ID, SelectedOptionID: &q2.Options[0].ID}},
	})
	require.ErrorIs(t, err, ErrOptionMismatch)
}

func TestAttemptSubmitExpiredTimedAttempt(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	limit := 30
	assessment.IsTimed = true
	assessment.TimeLimitMinutes = &limit
	require.NoError(t, env.db.Save(&assessment).Error)
	q1 := seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	env.svc.now = func() time.Time { return started.StartedAt.Add(31 * time.Minute) }

	_, err = env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{{QuestionID: q1.ID, SelectedOptionID: &q1.Options[0].ID}},
	})
	require.ErrorIs(t, err, ErrAttemptExpired)

	var expired models.StudentAssessmentAttempt
	require.NoError(t, env.db.First(&expired, started.AttemptID).Error)
	require.Equal(t, models.AttemptExpired, expired.Status)
	require.NotNil(t, expired.EndedAt)

	// Terminal states stay terminal.
	_, err = env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{{QuestionID: q1.ID, SelectedOptionID: &q1.Options[0].ID}},
	})
	require.ErrorIs(t, err, ErrAttemptNotInProgress)
}

func TestAttemptResult(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	q1 := seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	essay := seedEssayQuestion(t, env.db, assessment.ID, 2, 5)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	_, err = env.svc.Result(context.Background(), env.fixture.StudentID, started.AttemptID)
	require.ErrorIs(t, err, ErrAttemptStillInProgress)

	text := "a written answer"
	summary, err := env.svc.Submit(context.Background(), env.fixture.StudentID, started.AttemptID, dto.AttemptSubmitRequest{
		Answers: []dto.AnswerSubmit{
			{QuestionID: q1.ID, SelectedOptionID: &q1.Options[0].ID},
			{QuestionID: essay.ID, TextAnswer: &text},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AttemptSubmitted), summary.Status)

	_, err = env.svc.Result(context.Background(), env.fixture.StudentID, started.AttemptID)
	require.ErrorIs(t, err, ErrGradingPending)

	// A stranger sees nothing at all.
	_, err = env.svc.Result(context.Background(), 999, started.AttemptID)
	require.ErrorIs(t, err, ErrAttemptNotFound)

	var answer models.StudentAnswer
	require.NoError(t, env.db.Where("attempt_id = ? AND question_id = ?", started.AttemptID, essay.ID).First(&answer).Error)
	marks := 4.0
	_, err = env.grading.Grade(context.Background(), env.fixture.TeacherID, answer.ID, dto.GradeAnswerRequest{MarksAwarded: &marks})
	require.NoError(t, err)

	result, err := env.svc.Result(context.Background(), env.fixture.StudentID, started.AttemptID)
	require.NoError(t, err)
	require.Equal(t, string(models.AttemptGraded), result.Status)
	require.InDelta(t, 6.0, result.Score, 0.001)
	require.InDelta(t, 7.0, result.TotalMarks, 0.001)
	require.Len(t, result.Answers, 2)
}

func TestExpireOverdue(t *testing.T) {
	env := newAttemptTestEnv(t, nil)
	assessment := seedQuizAssessment(t, env.db, env.fixture, true)
	limit := 10
	assessment.IsTimed = true
	assessment.TimeLimitMinutes = &limit
	require.NoError(t, env.db.Save(&assessment).Error)
	seedChoiceQuestion(t, env.db, assessment.ID, 1, 2)
	refreshTotals(t, env.db, assessment.ID)

	started, err := env.svc.Start(context.Background(), env.fixture.StudentID, assessment.ID)
	require.NoError(t, err)

	swept, err := env.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Zero(t, swept)

	env.svc.now = func() time.Time { return started.StartedAt.Add(time.Hour) }

	swept, err = env.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	var attempt models.StudentAssessmentAttempt
	require.NoError(t, env.db.First(&attempt, started.AttemptID).Error)
	require.Equal(t, models.AttemptExpired, attempt.Status)
}
