package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.CourseEnrollment{},
		&models.ModuleEnrollment{},
		&models.Assessment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.StudentAssessmentAttempt{},
		&models.StudentAnswer{},
		&models.AuditEvent{},
	))
	return db
}

type catalogFixture struct {
	TeacherID uint
	StudentID uint
	Course    models.Course
	Module    models.CourseModule
	Lesson    models.Lesson
}

// seedCatalog creates a course with one module and lesson owned by teacher 1
// and enrolls student 100 in both the course and the module.
func seedCatalog(t *testing.T, db *gorm.DB) catalogFixture {
	t.Helper()

	course := models.Course{Title: "Algebra", TeacherID: 1}
	require.NoError(t, db.Create(&course).Error)

	module := models.CourseModule{CourseID: course.ID, Title: "Linear Equations"}
	require.NoError(t, db.Create(&module).Error)

	lesson := models.Lesson{ModuleID: module.ID, Title: "Slope"}
	require.NoError(t, db.Create(&lesson).Error)

	require.NoError(t, db.Create(&models.CourseEnrollment{StudentID: 100, CourseID: course.ID, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.ModuleEnrollment{StudentID: 100, ModuleID: module.ID, IsActive: true}).Error)

	return catalogFixture{
		TeacherID: 1,
		StudentID: 100,
		Course:    course,
		Module:    module,
		Lesson:    lesson,
	}
}

func seedQuizAssessment(t *testing.T, db *gorm.DB, fixture catalogFixture, published bool) models.Assessment {
	t.Helper()

	assessment := models.Assessment{
		Title:         "Slope Quiz",
		Type:          models.AssessmentQuiz,
		TeacherID:     fixture.TeacherID,
		LessonID:      &fixture.Lesson.ID,
		IsPublished:   published,
		MaxAttempts:   2,
		PassingScore:  60,
		AvailableFrom: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&assessment).Error)
	return assessment
}

func seedChoiceQuestion(t *testing.T, db *gorm.DB, assessmentID uint, order int, mark float64) models.Question {
	t.Helper()

	question := models.Question{
		AssessmentID: assessmentID,
		Text:         fmt.Sprintf("Question %d", order),
		Type:         models.QuestionMultipleChoice,
		Mark:         mark,
		Order:        order,
	}
	require.NoError(t, db.Create(&question).Error)

	correct := models.QuestionOption{QuestionID: question.ID, Text: "right", IsCorrect: true, Order: 1}
	wrong := models.QuestionOption{QuestionID: question.ID, Text: "wrong", IsCorrect: false, Order: 2}
	require.NoError(t, db.Create(&correct).Error)
	require.NoError(t, db.Create(&wrong).Error)

	question.Options = []models.QuestionOption{correct, wrong}
	return question
}

func seedEssayQuestion(t *testing.T, db *gorm.DB, assessmentID uint, order int, mark float64) models.Question {
	t.Helper()

	question := models.Question{
		AssessmentID: assessmentID,
		Text:         fmt.Sprintf("Essay %d", order),
		Type:         models.QuestionEssay,
		Mark:         mark,
		Order:        order,
	}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func refreshTotals(t *testing.T, db *gorm.DB, assessmentID uint) {
	t.Helper()
	repo := repository.NewAssessmentRepository(db)
	require.NoError(t, repo.RecomputeTotals(context.Background(), assessmentID))
}
