package dto

import (
	"time"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// QuestionCreateRequest describes the payload for adding a question to an
// assessment. A nil order appends after the current last question.
type QuestionCreateRequest struct {
	Text        string  `form:"question_text" json:"question_text" validate:"required,min=1"`
	Type        string  `form:"question_type" json:"question_type" validate:"required,oneof=multiple_choice true_false short_answer essay fill_blank"`
	Mark        float64 `form:"mark" json:"mark" validate:"required,gt=0"`
	Order       *int    `form:"order" json:"order" validate:"omitempty,min=1"`
	Explanation string  `form:"explanation" json:"explanation"`
}

// QuestionUpdateRequest describes a partial question update.
type QuestionUpdateRequest struct {
	Text        *string  `form:"question_text" json:"question_text" validate:"omitempty,min=1"`
	Type        *string  `form:"question_type" json:"question_type" validate:"omitempty,oneof=multiple_choice true_false short_answer essay fill_blank"`
	Mark        *float64 `form:"mark" json:"mark" validate:"omitempty,gt=0"`
	Order       *int     `form:"order" json:"order" validate:"omitempty,min=1"`
	Explanation *string  `form:"explanation" json:"explanation"`
}

// OptionCreateRequest describes the payload for adding an option.
type OptionCreateRequest struct {
	Text      string `json:"option_text" validate:"required,min=1,max=500"`
	IsCorrect *bool  `json:"is_correct" validate:"required"`
	Order     *int   `json:"order" validate:"omitempty,min=1"`
}

// OptionUpdateRequest describes a partial option update.
type OptionUpdateRequest struct {
	Text      *string `json:"option_text" validate:"omitempty,min=1,max=500"`
	IsCorrect *bool   `json:"is_correct"`
	Order     *int    `json:"order" validate:"omitempty,min=1"`
}

// OptionResponse is the teacher-facing option view, correctness included.
type OptionResponse struct {
	ID        uint   `json:"id"`
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// QuestionResponse is the teacher-facing question view.
type QuestionResponse struct {
	ID          uint             `json:"id"`
	Text        string           `json:"question_text"`
	Type        string           `json:"question_type"`
	Mark        float64          `json:"mark"`
	Order       int              `json:"order"`
	Explanation string           `json:"explanation"`
	ImageURL    string           `json:"image_url"`
	Options     []OptionResponse `json:"options,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewOptionResponse converts a model into a DTO.
func NewOptionResponse(model models.QuestionOption) OptionResponse {
	return OptionResponse{
		ID:        model.ID,
		Text:      model.Text,
		IsCorrect: model.IsCorrect,
		Order:     model.Order,
	}
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	response := QuestionResponse{
		ID:          model.ID,
		Text:        model.Text,
		Type:        string(model.Type),
		Mark:        model.Mark,
		Order:       model.Order,
		Explanation: model.Explanation,
		ImageURL:    model.ImageURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	for _, option := range model.Options {
		response.Options = append(response.Options, NewOptionResponse(option))
	}

	return response
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}

// ImportOption is one option inside a bulk question import document.
type ImportOption struct {
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
}

// ImportQuestion is one question inside a bulk import document.
type ImportQuestion struct {
	Text        string         `json:"question_text"`
	Type        string         `json:"question_type"`
	Mark        float64        `json:"mark"`
	Explanation string         `json:"explanation"`
	Options     []ImportOption `json:"options"`
}

// QuestionImportRequest is the bulk import document, schema-validated before
// any write happens.
type QuestionImportRequest struct {
	Questions []ImportQuestion `json:"questions"`
}

// QuestionImportResponse reports how many questions were created.
type QuestionImportResponse struct {
	Imported int `json:"imported"`
}
