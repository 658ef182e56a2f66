package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// QuestionRepository defines data operations for questions. Creation, moves
// and deletion run in one transaction together with the order maintenance and
// the parent assessment's totals recompute.
type QuestionRepository interface {
	ListByAssessment(ctx context.Context, assessmentID uint) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question, requestedOrder *int) error
	CreateBatch(ctx context.Context, assessmentID uint, questions []models.Question) error
	Update(ctx context.Context, question *models.Question, requestedOrder *int) error
	Delete(ctx context.Context, id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) ListByAssessment(ctx context.Context, assessmentID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("assessment_id = ?", assessmentID).
		Order("display_order ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&question, id).Error
	if err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question, requestedOrder *int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := placeOrder(tx, "questions", "assessment_id", question.AssessmentID, requestedOrder)
		if err != nil {
			return err
		}
		question.Order = order

		if err := tx.Create(question).Error; err != nil {
			return err
		}

		return recomputeAssessmentTotals(tx, question.AssessmentID)
	})
}

// CreateBatch appends imported questions after the current last slot,
// preserving their given sequence, in a single transaction.
func (r *questionRepository) CreateBatch(ctx context.Context, assessmentID uint, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := placeOrder(tx, "questions", "assessment_id", assessmentID, nil)
		if err != nil {
			return err
		}

		for i := range questions {
			questions[i].AssessmentID = assessmentID
			questions[i].Order = next + i
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}

		return recomputeAssessmentTotals(tx, assessmentID)
	})
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question, requestedOrder *int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if requestedOrder != nil && *requestedOrder != question.Order {
			err := moveOrder(tx, "questions", "assessment_id", question.AssessmentID, question.Order, *requestedOrder)
			if err != nil {
				return err
			}
			question.Order = *requestedOrder
		}

		if err := tx.Save(question).Error; err != nil {
			return err
		}

		return recomputeAssessmentTotals(tx, question.AssessmentID)
	})
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := tx.First(&question, id).Error; err != nil {
			return err
		}

		if err := tx.Select("Options").Delete(&question).Error; err != nil {
			return err
		}

		return recomputeAssessmentTotals(tx, question.AssessmentID)
	})
}
