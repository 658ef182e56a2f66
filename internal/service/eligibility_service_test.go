package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

func TestEligibility(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedCatalog(t, db)
	svc := NewEligibilityService(repository.NewCatalogRepository(db), testLogger())

	now := time.Now()
	base := models.Assessment{
		Type:          models.AssessmentQuiz,
		TeacherID:     fixture.TeacherID,
		LessonID:      &fixture.Lesson.ID,
		IsPublished:   true,
		AvailableFrom: now.Add(-time.Hour),
	}

	t.Run("allows enrolled student in window", func(t *testing.T) {
		require.NoError(t, svc.CanAccess(context.Background(), fixture.StudentID, base, now))
	})

	t.Run("rejects unpublished", func(t *testing.T) {
		assessment := base
		assessment.IsPublished = false
		err := svc.CanAccess(context.Background(), fixture.StudentID, assessment, now)
		require.ErrorIs(t, err, ErrAssessmentNotPublished)
	})

	t.Run("rejects before window opens", func(t *testing.T) {
		assessment := base
		assessment.AvailableFrom = now.Add(time.Hour)
		err := svc.CanAccess(context.Background(), fixture.StudentID, assessment, now)
		require.ErrorIs(t, err, ErrAssessmentNotStarted)
	})

	t.Run("rejects after window closes", func(t *testing.T) {
		assessment := base
		until := now.Add(-time.Minute)
		assessment.AvailableUntil = &until
		err := svc.CanAccess(context.Background(), fixture.StudentID, assessment, now)
		require.ErrorIs(t, err, ErrAssessmentEnded)
	})

	t.Run("rejects student without enrollment", func(t *testing.T) {
		err := svc.CanAccess(context.Background(), 999, base, now)
		require.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("quiz access resolves through the lesson's module", func(t *testing.T) {
		// Enrolled in the course but not the module: quizzes need the
		// module enrollment.
		require.NoError(t, db.Create(&models.CourseEnrollment{StudentID: 200, CourseID: fixture.Course.ID, IsActive: true}).Error)
		err := svc.CanAccess(context.Background(), 200, base, now)
		require.ErrorIs(t, err, ErrNotEnrolled)

		require.NoError(t, db.Create(&models.ModuleEnrollment{StudentID: 200, ModuleID: fixture.Module.ID, IsActive: true}).Error)
		require.NoError(t, svc.CanAccess(context.Background(), 200, base, now))
	})

	t.Run("assignment needs module enrollment", func(t *testing.T) {
		assessment := base
		assessment.Type = models.AssessmentAssignment
		assessment.LessonID = nil
		assessment.ModuleID = &fixture.Module.ID
		require.NoError(t, svc.CanAccess(context.Background(), fixture.StudentID, assessment, now))
	})

	t.Run("course exam needs course enrollment", func(t *testing.T) {
		assessment := base
		assessment.Type = models.AssessmentCourseExam
		assessment.LessonID = nil
		assessment.CourseID = &fixture.Course.ID
		require.NoError(t, svc.CanAccess(context.Background(), fixture.StudentID, assessment, now))

		require.NoError(t, db.Model(&models.CourseEnrollment{}).
			Where("student_id = ? AND course_id = ?", fixture.StudentID, fixture.Course.ID).
			Update("is_active", false).Error)
		err := svc.CanAccess(context.Background(), fixture.StudentID, assessment, now)
		require.ErrorIs(t, err, ErrNotEnrolled)
	})
}
