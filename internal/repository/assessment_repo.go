package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// AssessmentRepository defines data operations for assessments.
type AssessmentRepository interface {
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assessment, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Assessment, error)
	GetByID(ctx context.Context, id uint) (models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id uint) error
	RecomputeTotals(ctx context.Context, id uint) error
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}

	return assessments, nil
}

// ListForStudent returns published assessments whose target course or module
// the student is actively enrolled in. Quizzes resolve through their lesson's
// module enrollment.
func (r *assessmentRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Assessment, error) {
	courseIDs := r.db.Model(&models.CourseEnrollment{}).
		Select("course_id").
		Where("student_id = ? AND is_active = ?", studentID, true)
	moduleIDs := r.db.Model(&models.ModuleEnrollment{}).
		Select("module_id").
		Where("student_id = ? AND is_active = ?", studentID, true)
	lessonIDs := r.db.Model(&models.Lesson{}).
		Select("id").
		Where("module_id IN (?)", moduleIDs)

	var assessments []models.Assessment
	err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Where(
			r.db.Where("course_id IN (?)", courseIDs).
				Or("module_id IN (?)", moduleIDs).
				Or("lesson_id IN (?)", lessonIDs),
		).
		Order("created_at DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}

	return assessments, nil
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		return models.Assessment{}, err
	}

	return assessment, nil
}

func (r *assessmentRepository) GetByIDWithQuestions(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&assessment, id).Error
	if err != nil {
		return models.Assessment{}, err
	}

	return assessment, nil
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Save(assessment).Error
}

func (r *assessmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assessment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *assessmentRepository) RecomputeTotals(ctx context.Context, id uint) error {
	return recomputeAssessmentTotals(r.db.WithContext(ctx), id)
}

// recomputeAssessmentTotals refreshes the derived question count and mark sum
// from the current question set. Callers on the write path invoke it inside
// the same transaction as the question mutation.
func recomputeAssessmentTotals(tx *gorm.DB, assessmentID uint) error {
	type totals struct {
		Count int
		Marks *float64
	}

	var t totals
	err := tx.Model(&models.Question{}).
		Select("COUNT(id) AS count, SUM(mark) AS marks").
		Where("assessment_id = ?", assessmentID).
		Scan(&t).Error
	if err != nil {
		return err
	}

	marks := 0.0
	if t.Marks != nil {
		marks = *t.Marks
	}

	return tx.Model(&models.Assessment{}).
		Where("id = ?", assessmentID).
		Updates(map[string]interface{}{
			"total_questions": t.Count,
			"total_marks":     marks,
		}).Error
}
