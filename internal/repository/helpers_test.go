package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func createAssessment(t *testing.T, db *gorm.DB, teacherID uint) models.Assessment {
	t.Helper()

	course := models.Course{Title: "Course", TeacherID: teacherID}
	require.NoError(t, db.Create(&course).Error)
	module := models.CourseModule{CourseID: course.ID, Title: "Module"}
	require.NoError(t, db.Create(&module).Error)
	lesson := models.Lesson{ModuleID: module.ID, Title: "Lesson"}
	require.NoError(t, db.Create(&lesson).Error)

	assessment := models.Assessment{
		Title:       "Assessment",
		Type:        models.AssessmentQuiz,
		TeacherID:   teacherID,
		LessonID:    &lesson.ID,
		MaxAttempts: 3,
	}
	require.NoError(t, db.Create(&assessment).Error)
	return assessment
}

func questionOrders(t *testing.T, db *gorm.DB, assessmentID uint) map[uint]int {
	t.Helper()
	var questions []models.Question
	require.NoError(t, db.Where("assessment_id = ?", assessmentID).Find(&questions).Error)
	orders := make(map[uint]int, len(questions))
	for _, question := range questions {
		orders[question.ID] = question.Order
	}
	return orders
}
