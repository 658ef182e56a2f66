package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

func TestAttemptCreateWithAnswers(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	questions := NewQuestionRepository(db)
	created := createQuestions(t, questions, assessment.ID, 3)
	repo := NewAttemptRepository(db)

	questionIDs := []uint{created[0].ID, created[1].ID, created[2].ID}
	attempt := models.StudentAssessmentAttempt{
		StudentID:     100,
		AssessmentID:  assessment.ID,
		AttemptNumber: 1,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now(),
	}
	require.NoError(t, repo.CreateWithAnswers(context.Background(), &attempt, questionIDs))
	require.NotZero(t, attempt.ID)

	loaded, err := repo.GetByIDWithAnswers(context.Background(), attempt.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Answers, 3)
	for _, answer := range loaded.Answers {
		require.Nil(t, answer.SelectedOptionID)
		require.Nil(t, answer.TextAnswer)
		require.False(t, answer.AutoGraded)
	}

	// A second in-progress attempt for the same pair is refused inside the
	// transaction.
	second := models.StudentAssessmentAttempt{
		StudentID:     100,
		AssessmentID:  assessment.ID,
		AttemptNumber: 2,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now(),
	}
	err = repo.CreateWithAnswers(context.Background(), &second, questionIDs)
	require.ErrorIs(t, err, ErrActiveAttemptExists)

	// Another student is unaffected.
	other := models.StudentAssessmentAttempt{
		StudentID:     200,
		AssessmentID:  assessment.ID,
		AttemptNumber: 1,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now(),
	}
	require.NoError(t, repo.CreateWithAnswers(context.Background(), &other, questionIDs))

	count, err := repo.CountByStudentAndAssessment(context.Background(), 100, assessment.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestAttemptCreateWithAnswersRequiresAssessment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttemptRepository(db)

	attempt := models.StudentAssessmentAttempt{
		StudentID:     100,
		AssessmentID:  9999,
		AttemptNumber: 1,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now(),
	}
	err := repo.CreateWithAnswers(context.Background(), &attempt, nil)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// The start guard must lock a plain row select; postgres rejects FOR UPDATE
// on an aggregate. Rendered against the postgres dialector without a
// connection.
func TestStartGuardRendersValidPostgresLocking(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=eduva dbname=eduva sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var locked models.Assessment
	lockSQL := lockForUpdate(db).Select("id").Take(&locked, uint(1)).Statement.SQL.String()
	require.Contains(t, lockSQL, "FOR UPDATE")
	require.NotContains(t, lockSQL, "count(*)")

	var active int64
	countSQL := db.Model(&models.StudentAssessmentAttempt{}).
		Where("student_id = ? AND assessment_id = ? AND status = ?", uint(100), uint(1), models.AttemptInProgress).
		Count(&active).Statement.SQL.String()
	require.Contains(t, countSQL, "count(*)")
	require.NotContains(t, countSQL, "FOR UPDATE")
}

func TestAttemptSaveSubmission(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	created := createQuestions(t, NewQuestionRepository(db), assessment.ID, 2)
	repo := NewAttemptRepository(db)

	attempt := models.StudentAssessmentAttempt{
		StudentID:     100,
		AssessmentID:  assessment.ID,
		AttemptNumber: 1,
		Status:        models.AttemptInProgress,
		StartedAt:     time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, repo.CreateWithAnswers(context.Background(), &attempt, []uint{created[0].ID, created[1].ID}))

	loaded, err := repo.GetByIDWithAnswers(context.Background(), attempt.ID)
	require.NoError(t, err)

	text := "written answer"
	answers := make([]*models.StudentAnswer, 0, len(loaded.Answers))
	for i := range loaded.Answers {
		loaded.Answers[i].TextAnswer = &text
		answers = append(answers, &loaded.Answers[i])
	}

	now := time.Now()
	elapsed := 600
	loaded.Status = models.AttemptSubmitted
	loaded.EndedAt = &now
	loaded.TimeTakenSeconds = &elapsed
	require.NoError(t, repo.SaveSubmission(context.Background(), &loaded, answers))

	reloaded, err := repo.GetByIDWithAnswers(context.Background(), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptSubmitted, reloaded.Status)
	require.NotNil(t, reloaded.EndedAt)
	require.NotNil(t, reloaded.TimeTakenSeconds)
	require.Equal(t, 600, *reloaded.TimeTakenSeconds)
	for _, answer := range reloaded.Answers {
		require.NotNil(t, answer.TextAnswer)
		require.Equal(t, text, *answer.TextAnswer)
	}
}

func TestAttemptFinalizePersistsScore(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	created := createQuestions(t, NewQuestionRepository(db), assessment.ID, 2)
	repo := NewAttemptRepository(db)

	attempt := models.StudentAssessmentAttempt{
		StudentID:     100,
		AssessmentID:  assessment.ID,
		AttemptNumber: 1,
		Status:        models.AttemptSubmitted,
		StartedAt:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateWithAnswers(context.Background(), &attempt, []uint{created[0].ID, created[1].ID}))

	err := repo.Finalize(context.Background(), attempt.ID, func(locked *models.StudentAssessmentAttempt, answers []models.StudentAnswer) error {
		require.Len(t, answers, 2)
		for _, answer := range answers {
			require.NotZero(t, answer.Question.ID)
		}
		locked.Status = models.AttemptGraded
		locked.Score = 3.5
		locked.Percentage = 87.5
		locked.IsPassed = true
		return nil
	})
	require.NoError(t, err)

	final, err := repo.GetByID(context.Background(), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptGraded, final.Status)
	require.InDelta(t, 3.5, final.Score, 0.001)
	require.InDelta(t, 87.5, final.Percentage, 0.001)
	require.True(t, final.IsPassed)
}

func TestAttemptListInProgress(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	repo := NewAttemptRepository(db)

	for i, status := range []models.AttemptStatus{models.AttemptInProgress, models.AttemptGraded, models.AttemptExpired} {
		require.NoError(t, db.Create(&models.StudentAssessmentAttempt{
			StudentID:     uint(100 + i),
			AssessmentID:  assessment.ID,
			AttemptNumber: 1,
			Status:        status,
			StartedAt:     time.Now(),
		}).Error)
	}

	attempts, err := repo.ListInProgress(context.Background())
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, models.AttemptInProgress, attempts[0].Status)
	require.Equal(t, assessment.ID, attempts[0].Assessment.ID)
}
