package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// OptionRepository defines data operations for question options. Order
// maintenance runs in the same transaction as the write, scoped to the
// owning question.
type OptionRepository interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]models.QuestionOption, error)
	GetByID(ctx context.Context, id uint) (models.QuestionOption, error)
	Create(ctx context.Context, option *models.QuestionOption, requestedOrder *int) error
	Update(ctx context.Context, option *models.QuestionOption, requestedOrder *int) error
	Delete(ctx context.Context, id uint) error
}

type optionRepository struct {
	db *gorm.DB
}

// NewOptionRepository instantiates the repository.
func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.QuestionOption, error) {
	var options []models.QuestionOption
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("display_order ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}

	return options, nil
}

func (r *optionRepository) GetByID(ctx context.Context, id uint) (models.QuestionOption, error) {
	var option models.QuestionOption
	if err := r.db.WithContext(ctx).First(&option, id).Error; err != nil {
		return models.QuestionOption{}, err
	}

	return option, nil
}

func (r *optionRepository) Create(ctx context.Context, option *models.QuestionOption, requestedOrder *int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := placeOrder(tx, "question_options", "question_id", option.QuestionID, requestedOrder)
		if err != nil {
			return err
		}
		option.Order = order

		return tx.Create(option).Error
	})
}

func (r *optionRepository) Update(ctx context.Context, option *models.QuestionOption, requestedOrder *int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if requestedOrder != nil && *requestedOrder != option.Order {
			err := moveOrder(tx, "question_options", "question_id", option.QuestionID, option.Order, *requestedOrder)
			if err != nil {
				return err
			}
			option.Order = *requestedOrder
		}

		return tx.Save(option).Error
	})
}

func (r *optionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.QuestionOption{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
