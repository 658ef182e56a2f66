package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// CatalogRepository is the read-only boundary to the course catalog. The
// assessment engine needs two facts from it: who owns a target, and whether a
// student is enrolled in it.
type CatalogRepository interface {
	OwningTeacher(ctx context.Context, kind models.TargetKind, id uint) (uint, error)
	IsCourseEnrolled(ctx context.Context, studentID, courseID uint) (bool, error)
	IsModuleEnrolled(ctx context.Context, studentID, moduleID uint) (bool, error)
	ModuleIDForLesson(ctx context.Context, lessonID uint) (uint, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository instantiates the repository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) OwningTeacher(ctx context.Context, kind models.TargetKind, id uint) (uint, error) {
	var teacherID uint
	var err error

	switch kind {
	case models.TargetCourse:
		err = r.db.WithContext(ctx).
			Model(&models.Course{}).
			Where("id = ?", id).
			Select("teacher_id").
			Scan(&teacherID).Error
	case models.TargetModule:
		err = r.db.WithContext(ctx).
			Model(&models.CourseModule{}).
			Joins("JOIN courses ON courses.id = course_modules.course_id").
			Where("course_modules.id = ?", id).
			Select("courses.teacher_id").
			Scan(&teacherID).Error
	case models.TargetLesson:
		err = r.db.WithContext(ctx).
			Model(&models.Lesson{}).
			Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
			Joins("JOIN courses ON courses.id = course_modules.course_id").
			Where("lessons.id = ?", id).
			Select("courses.teacher_id").
			Scan(&teacherID).Error
	default:
		return 0, fmt.Errorf("unknown target kind %q", kind)
	}

	if err != nil {
		return 0, err
	}
	if teacherID == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	return teacherID, nil
}

func (r *catalogRepository) IsCourseEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		Count(&count).Error

	return count > 0, err
}

func (r *catalogRepository) IsModuleEnrolled(ctx context.Context, studentID, moduleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ModuleEnrollment{}).
		Where("student_id = ? AND module_id = ? AND is_active = ?", studentID, moduleID, true).
		Count(&count).Error

	return count > 0, err
}

func (r *catalogRepository) ModuleIDForLesson(ctx context.Context, lessonID uint) (uint, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, lessonID).Error; err != nil {
		return 0, err
	}

	return lesson.ModuleID, nil
}
