package models

import "time"

// AttemptStatus is the attempt lifecycle state. in_progress → submitted →
// graded, with in_progress → expired as the alternate terminal path. Nothing
// leaves graded or expired.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
)

// StudentAssessmentAttempt is one student's run at an assessment. The
// (student, assessment, attempt_number) triple is unique; score, percentage
// and is_passed are only meaningful once status is graded.
type StudentAssessmentAttempt struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	StudentID     uint          `gorm:"not null;index;uniqueIndex:idx_attempt_number" json:"student_id"`
	AssessmentID  uint          `gorm:"not null;index;uniqueIndex:idx_attempt_number" json:"assessment_id"`
	AttemptNumber int           `gorm:"not null;default:1;uniqueIndex:idx_attempt_number" json:"attempt_number"`
	Status        AttemptStatus `gorm:"size:20;not null;index" json:"status"`

	StartedAt        time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	TimeTakenSeconds *int       `json:"time_taken_seconds"`

	Score      float64 `gorm:"not null;default:0" json:"score"`
	Percentage float64 `gorm:"not null;default:0" json:"percentage"`
	IsPassed   bool    `gorm:"not null;default:false" json:"is_passed"`

	AutoGraded      bool       `gorm:"not null;default:false" json:"auto_graded"`
	GradedAt        *time.Time `json:"graded_at"`
	GradedBy        *uint      `json:"graded_by"`
	TeacherFeedback string     `gorm:"type:text" json:"teacher_feedback"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assessment Assessment      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
	Answers    []StudentAnswer `gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers,omitempty"`
}

// IsExpired reports whether an in-progress attempt has run out of time,
// either because the assessment window closed or the timed limit elapsed.
// Requires Assessment to be loaded. Pure.
func (a StudentAssessmentAttempt) IsExpired(now time.Time) bool {
	if a.Status != AttemptInProgress {
		return false
	}
	if a.Assessment.AvailableUntil != nil && now.After(*a.Assessment.AvailableUntil) {
		return true
	}
	if a.Assessment.IsTimed && a.Assessment.TimeLimitMinutes != nil {
		limit := time.Duration(*a.Assessment.TimeLimitMinutes) * time.Minute
		if now.Sub(a.StartedAt) > limit {
			return true
		}
	}
	return false
}

// Elapsed returns whole seconds since the attempt started.
func (a StudentAssessmentAttempt) Elapsed(now time.Time) int {
	return int(now.Sub(a.StartedAt).Seconds())
}
