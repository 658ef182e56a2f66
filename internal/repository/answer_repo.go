package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// PendingAnswerFilter narrows the manual-grading queue.
type PendingAnswerFilter struct {
	AssessmentID   *uint
	AssessmentType *models.AssessmentType
	QuestionType   *models.QuestionType
}

// AnswerRepository defines data operations for student answers.
type AnswerRepository interface {
	GetByID(ctx context.Context, id uint) (models.StudentAnswer, error)
	ListByAttempt(ctx context.Context, attemptID uint) ([]models.StudentAnswer, error)
	ListPendingManual(ctx context.Context, teacherID uint, filter PendingAnswerFilter) ([]models.StudentAnswer, error)
	Update(ctx context.Context, answer *models.StudentAnswer) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates the repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (models.StudentAnswer, error) {
	var answer models.StudentAnswer
	err := r.db.WithContext(ctx).
		Preload("Question").
		First(&answer, id).Error
	if err != nil {
		return models.StudentAnswer{}, err
	}

	return answer, nil
}

func (r *answerRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]models.StudentAnswer, error) {
	var answers []models.StudentAnswer
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("SelectedOption").
		Where("attempt_id = ?", attemptID).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}

	return answers, nil
}

// ListPendingManual returns answers of manual question types still awaiting a
// teacher grade, on submitted attempts of assessments the teacher owns,
// oldest submission first.
func (r *answerRepository) ListPendingManual(ctx context.Context, teacherID uint, filter PendingAnswerFilter) ([]models.StudentAnswer, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Preload("Question").
		Joins("JOIN questions ON questions.id = student_answers.question_id").
		Joins("JOIN assessments ON assessments.id = questions.assessment_id").
		Joins("JOIN student_assessment_attempts ON student_assessment_attempts.id = student_answers.attempt_id").
		Where("assessments.teacher_id = ?", teacherID).
		Where("questions.question_type IN ?", []models.QuestionType{
			models.QuestionShortAnswer,
			models.QuestionEssay,
			models.QuestionFillBlank,
		}).
		Where("student_answers.manual_graded = ?", false).
		Where("student_assessment_attempts.status = ?", models.AttemptSubmitted)

	if filter.AssessmentID != nil {
		query = query.Where("assessments.id = ?", *filter.AssessmentID)
	}
	if filter.AssessmentType != nil {
		query = query.Where("assessments.assessment_type = ?", *filter.AssessmentType)
	}
	if filter.QuestionType != nil {
		query = query.Where("questions.question_type = ?", *filter.QuestionType)
	}

	var answers []models.StudentAnswer
	err := query.Order("student_assessment_attempts.ended_at ASC").Find(&answers).Error
	if err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) Update(ctx context.Context, answer *models.StudentAnswer) error {
	return r.db.WithContext(ctx).Omit("Question", "SelectedOption").Save(answer).Error
}
