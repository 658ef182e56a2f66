package models

import "time"

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionFillBlank      QuestionType = "fill_blank"
)

// IsValid reports whether the value is one of the known question types.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionEssay, QuestionFillBlank:
		return true
	default:
		return false
	}
}

// IsAutoGradable reports whether correctness is mechanically determined from
// the selected option. Everything else needs a teacher.
func (t QuestionType) IsAutoGradable() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// Question belongs to one assessment and holds a dense display order unique
// within it.
type Question struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AssessmentID uint         `gorm:"not null;index" json:"assessment_id"`
	Text         string       `gorm:"column:question_text;type:text;not null" json:"question_text"`
	Type         QuestionType `gorm:"column:question_type;size:20;not null" json:"question_type"`
	Mark         float64      `gorm:"not null;default:1" json:"mark"`
	Order        int          `gorm:"column:display_order;not null" json:"order"`
	Explanation  string       `gorm:"type:text" json:"explanation"`
	ImageURL     string       `gorm:"size:512" json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []QuestionOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options,omitempty"`
}

// OptionByID looks up one of the question's own options.
func (q Question) OptionByID(id uint) (QuestionOption, bool) {
	for _, option := range q.Options {
		if option.ID == id {
			return option, true
		}
	}
	return QuestionOption{}, false
}

// QuestionOption is one selectable choice. Only meaningful for multiple
// choice and true/false questions; the authoring boundary enforces that.
type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"column:option_text;size:500;not null" json:"option_text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
	Order      int    `gorm:"column:display_order;not null" json:"order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
