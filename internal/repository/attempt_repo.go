package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// ErrActiveAttemptExists signals that the student already has an in-progress
// attempt for the assessment. Returned from inside the create transaction so
// two concurrent starts cannot both succeed.
var ErrActiveAttemptExists = errors.New("an in-progress attempt already exists")

// AttemptRepository defines data operations for attempts and their pre-created
// answer rows.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.StudentAssessmentAttempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (models.StudentAssessmentAttempt, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.StudentAssessmentAttempt, error)
	ListInProgress(ctx context.Context) ([]models.StudentAssessmentAttempt, error)
	CountByStudentAndAssessment(ctx context.Context, studentID, assessmentID uint) (int64, error)
	CreateWithAnswers(ctx context.Context, attempt *models.StudentAssessmentAttempt, questionIDs []uint) error
	Update(ctx context.Context, attempt *models.StudentAssessmentAttempt) error
	SaveSubmission(ctx context.Context, attempt *models.StudentAssessmentAttempt, answers []*models.StudentAnswer) error
	Finalize(ctx context.Context, attemptID uint, score func(attempt *models.StudentAssessmentAttempt, answers []models.StudentAnswer) error) error
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

// lockForUpdate applies a row lock where the dialect supports it. The sqlite
// driver used in tests has no FOR UPDATE; its writes serialize on the file
// lock instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.StudentAssessmentAttempt, error) {
	var attempt models.StudentAssessmentAttempt
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		First(&attempt, id).Error
	if err != nil {
		return models.StudentAssessmentAttempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) GetByIDWithAnswers(ctx context.Context, id uint) (models.StudentAssessmentAttempt, error) {
	var attempt models.StudentAssessmentAttempt
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("Answers.Question.Options").
		Preload("Answers.SelectedOption").
		First(&attempt, id).Error
	if err != nil {
		return models.StudentAssessmentAttempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.StudentAssessmentAttempt, error) {
	var attempts []models.StudentAssessmentAttempt
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Where("student_id = ?", studentID).
		Order("started_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) ListInProgress(ctx context.Context) ([]models.StudentAssessmentAttempt, error) {
	var attempts []models.StudentAssessmentAttempt
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Where("status = ?", models.AttemptInProgress).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) CountByStudentAndAssessment(ctx context.Context, studentID, assessmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StudentAssessmentAttempt{}).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		Count(&count).Error

	return count, err
}

// CreateWithAnswers creates the attempt plus one empty answer row per
// question in a single transaction. Concurrent starts serialize on a row lock
// held on the parent assessment, so the in-progress re-check below it is the
// authoritative guard against two starts for the same (student, assessment)
// pair. The lock must sit on a plain row select; FOR UPDATE is not valid on
// an aggregate.
func (r *attemptRepository) CreateWithAnswers(ctx context.Context, attempt *models.StudentAssessmentAttempt, questionIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Assessment
		err := lockForUpdate(tx).
			Select("id").
			Take(&locked, attempt.AssessmentID).Error
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.StudentAssessmentAttempt{}).
			Where("student_id = ? AND assessment_id = ? AND status = ?",
				attempt.StudentID, attempt.AssessmentID, models.AttemptInProgress).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveAttemptExists
		}

		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		if len(questionIDs) == 0 {
			return nil
		}

		answers := make([]models.StudentAnswer, 0, len(questionIDs))
		for _, questionID := range questionIDs {
			answers = append(answers, models.StudentAnswer{
				AttemptID:  attempt.ID,
				QuestionID: questionID,
			})
		}

		return tx.Create(&answers).Error
	})
}

func (r *attemptRepository) Update(ctx context.Context, attempt *models.StudentAssessmentAttempt) error {
	return r.db.WithContext(ctx).Omit("Assessment", "Answers").Save(attempt).Error
}

// SaveSubmission persists the submitted attempt together with its populated
// answers as one atomic unit.
func (r *attemptRepository) SaveSubmission(ctx context.Context, attempt *models.StudentAssessmentAttempt, answers []*models.StudentAnswer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, answer := range answers {
			err := tx.Model(&models.StudentAnswer{}).
				Where("id = ?", answer.ID).
				Updates(map[string]interface{}{
					"selected_option_id": answer.SelectedOptionID,
					"text_answer":        answer.TextAnswer,
					"marks_awarded":      answer.MarksAwarded,
					"is_correct":         answer.IsCorrect,
					"auto_graded":        answer.AutoGraded,
				}).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(&models.StudentAssessmentAttempt{}).
			Where("id = ?", attempt.ID).
			Updates(map[string]interface{}{
				"status":             attempt.Status,
				"ended_at":           attempt.EndedAt,
				"time_taken_seconds": attempt.TimeTakenSeconds,
			}).Error
	})
}

// Finalize loads the attempt and its answers under a row lock, lets the
// caller recompute the aggregate score, and writes the attempt back, all in
// one transaction. Safe to invoke concurrently from multiple grading calls;
// the last writer recomputes from the full current answer set.
func (r *attemptRepository) Finalize(ctx context.Context, attemptID uint, score func(attempt *models.StudentAssessmentAttempt, answers []models.StudentAnswer) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attempt models.StudentAssessmentAttempt
		err := lockForUpdate(tx).
			Preload("Assessment").
			First(&attempt, attemptID).Error
		if err != nil {
			return err
		}

		var answers []models.StudentAnswer
		err = tx.Preload("Question").
			Where("attempt_id = ?", attemptID).
			Find(&answers).Error
		if err != nil {
			return err
		}

		if err := score(&attempt, answers); err != nil {
			return err
		}

		return tx.Omit("Assessment", "Answers").Save(&attempt).Error
	})
}
