package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

func TestCatalogOwningTeacher(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 7)
	repo := NewCatalogRepository(db)

	var lesson models.Lesson
	require.NoError(t, db.First(&lesson, *assessment.LessonID).Error)

	owner, err := repo.OwningTeacher(context.Background(), models.TargetLesson, lesson.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, owner)

	owner, err = repo.OwningTeacher(context.Background(), models.TargetModule, lesson.ModuleID)
	require.NoError(t, err)
	require.EqualValues(t, 7, owner)

	var module models.CourseModule
	require.NoError(t, db.First(&module, lesson.ModuleID).Error)
	owner, err = repo.OwningTeacher(context.Background(), models.TargetCourse, module.CourseID)
	require.NoError(t, err)
	require.EqualValues(t, 7, owner)

	_, err = repo.OwningTeacher(context.Background(), models.TargetLesson, 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.OwningTeacher(context.Background(), "book", 1)
	require.Error(t, err)
}

func TestCatalogEnrollmentChecks(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	repo := NewCatalogRepository(db)

	var lesson models.Lesson
	require.NoError(t, db.First(&lesson, *assessment.LessonID).Error)
	var module models.CourseModule
	require.NoError(t, db.First(&module, lesson.ModuleID).Error)

	require.NoError(t, db.Create(&models.CourseEnrollment{StudentID: 100, CourseID: module.CourseID, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.ModuleEnrollment{StudentID: 100, ModuleID: module.ID, IsActive: false}).Error)

	enrolled, err := repo.IsCourseEnrolled(context.Background(), 100, module.CourseID)
	require.NoError(t, err)
	require.True(t, enrolled)

	// Inactive enrollments do not count.
	enrolled, err = repo.IsModuleEnrolled(context.Background(), 100, module.ID)
	require.NoError(t, err)
	require.False(t, enrolled)

	moduleID, err := repo.ModuleIDForLesson(context.Background(), lesson.ID)
	require.NoError(t, err)
	require.Equal(t, module.ID, moduleID)

	_, err = repo.ModuleIDForLesson(context.Background(), 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
