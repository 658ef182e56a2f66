package models

import "time"

// StudentAnswer is the pre-allocated answer slot for one question of one
// attempt. Exactly the field matching the question type is populated:
// selected_option_id for choice questions, text_answer for the rest.
type StudentAnswer struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	AttemptID  uint `gorm:"not null;index;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID uint `gorm:"not null;index;uniqueIndex:idx_attempt_question" json:"question_id"`

	SelectedOptionID *uint   `json:"selected_option_id"`
	TextAnswer       *string `gorm:"type:text" json:"text_answer"`

	MarksAwarded    float64 `gorm:"not null;default:0" json:"marks_awarded"`
	IsCorrect       bool    `gorm:"not null;default:false" json:"is_correct"`
	AutoGraded      bool    `gorm:"not null;default:false" json:"auto_graded"`
	ManualGraded    bool    `gorm:"not null;default:false" json:"manual_graded"`
	TeacherFeedback string  `gorm:"type:text" json:"teacher_feedback"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question       Question        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
	SelectedOption *QuestionOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"selected_option,omitempty"`
}

// IsGraded reports whether this answer has received its final marks, through
// whichever grading path its question type requires.
func (a StudentAnswer) IsGraded() bool {
	if a.Question.Type.IsAutoGradable() {
		return a.AutoGraded
	}
	return a.ManualGraded
}
