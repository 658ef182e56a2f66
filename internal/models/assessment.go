package models

import "time"

// AssessmentType distinguishes what a question set is attached to.
type AssessmentType string

const (
	// AssessmentQuiz is bound to a single lesson.
	AssessmentQuiz AssessmentType = "quiz"
	// AssessmentAssignment is bound to a single module.
	AssessmentAssignment AssessmentType = "assignment"
	// AssessmentCourseExam is bound to a whole course.
	AssessmentCourseExam AssessmentType = "course_exam"
)

// TargetKind names the catalog entity an assessment is attached to.
type TargetKind string

const (
	TargetLesson TargetKind = "lesson"
	TargetModule TargetKind = "module"
	TargetCourse TargetKind = "course"
)

// TargetFor returns the catalog entity kind the assessment type must point at.
func (t AssessmentType) TargetFor() (TargetKind, bool) {
	switch t {
	case AssessmentQuiz:
		return TargetLesson, true
	case AssessmentAssignment:
		return TargetModule, true
	case AssessmentCourseExam:
		return TargetCourse, true
	default:
		return "", false
	}
}

// Assessment is a question container bound to exactly one of lesson, module
// or course, matching its type. Totals are a derived cache recomputed after
// every question create or delete.
type Assessment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        AssessmentType `gorm:"column:assessment_type;size:20;not null" json:"assessment_type"`

	TeacherID uint  `gorm:"not null;index" json:"teacher_id"`
	LessonID  *uint `gorm:"index" json:"lesson_id"`
	ModuleID  *uint `gorm:"index" json:"module_id"`
	CourseID  *uint `gorm:"index" json:"course_id"`

	IsPublished      bool    `gorm:"not null;default:false" json:"is_published"`
	IsTimed          bool    `gorm:"not null;default:false" json:"is_timed"`
	TimeLimitMinutes *int    `json:"time_limit_minutes"`
	MaxAttempts      int     `gorm:"not null;default:1" json:"max_attempts"`
	PassingScore     float64 `gorm:"not null;default:60" json:"passing_score"`

	AvailableFrom  time.Time  `gorm:"not null" json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`

	TotalQuestions int     `gorm:"not null;default:0" json:"total_questions"`
	TotalMarks     float64 `gorm:"not null;default:0" json:"total_marks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lesson    *Lesson       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lesson,omitempty"`
	Module    *CourseModule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"module,omitempty"`
	Course    *Course       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course,omitempty"`
	Questions []Question    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// IsAvailable reports whether the assessment can be attempted at the given
// instant. Pure; publication plus the scheduling window.
func (a Assessment) IsAvailable(now time.Time) bool {
	if !a.IsPublished {
		return false
	}
	if now.Before(a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && now.After(*a.AvailableUntil) {
		return false
	}
	return true
}

// Target returns the catalog entity this assessment is bound to. The second
// return is false when no target reference is set.
func (a Assessment) Target() (TargetKind, uint, bool) {
	switch {
	case a.LessonID != nil:
		return TargetLesson, *a.LessonID, true
	case a.ModuleID != nil:
		return TargetModule, *a.ModuleID, true
	case a.CourseID != nil:
		return TargetCourse, *a.CourseID, true
	default:
		return "", 0, false
	}
}

// TargetMatchesType reports whether exactly the reference matching the
// assessment type is set and the other two are empty.
func (a Assessment) TargetMatchesType() bool {
	want, ok := a.Type.TargetFor()
	if !ok {
		return false
	}
	set := 0
	if a.LessonID != nil {
		set++
	}
	if a.ModuleID != nil {
		set++
	}
	if a.CourseID != nil {
		set++
	}
	if set != 1 {
		return false
	}
	kind, _, _ := a.Target()
	return kind == want
}
