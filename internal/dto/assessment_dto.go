package dto

import (
	"time"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// AssessmentCreateRequest describes the payload for creating an assessment.
// Exactly one of lesson_id/module_id/course_id must be set, matching the
// assessment type; the service enforces that beyond the tag-level checks.
type AssessmentCreateRequest struct {
	Title            string   `json:"title" validate:"required,min=3,max=200"`
	Description      string   `json:"description"`
	Type             string   `json:"assessment_type" validate:"required,oneof=quiz assignment course_exam"`
	LessonID         *uint    `json:"lesson_id"`
	ModuleID         *uint    `json:"module_id"`
	CourseID         *uint    `json:"course_id"`
	IsPublished      bool     `json:"is_published"`
	IsTimed          bool     `json:"is_timed"`
	TimeLimitMinutes *int     `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	MaxAttempts      int      `json:"max_attempts" validate:"required,min=1"`
	PassingScore     float64  `json:"passing_score" validate:"gte=0,lte=100"`
	AvailableFrom    string   `json:"available_from" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	AvailableUntil   *string  `json:"available_until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssessmentUpdateRequest describes a partial assessment update. Target
// references are immutable after creation.
type AssessmentUpdateRequest struct {
	Title            *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description      *string  `json:"description"`
	IsPublished      *bool    `json:"is_published"`
	IsTimed          *bool    `json:"is_timed"`
	TimeLimitMinutes *int     `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	MaxAttempts      *int     `json:"max_attempts" validate:"omitempty,min=1"`
	PassingScore     *float64 `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	AvailableFrom    *string  `json:"available_from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	AvailableUntil   *string  `json:"available_until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssessmentTargetResponse names the catalog entity an assessment is bound to.
type AssessmentTargetResponse struct {
	Kind string `json:"kind"`
	ID   uint   `json:"id"`
}

// AssessmentResponse is the serialized representation returned to clients.
type AssessmentResponse struct {
	ID               uint                      `json:"id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	Type             string                    `json:"assessment_type"`
	Target           *AssessmentTargetResponse `json:"target,omitempty"`
	IsPublished      bool                      `json:"is_published"`
	IsTimed          bool                      `json:"is_timed"`
	TimeLimitMinutes *int                      `json:"time_limit_minutes"`
	MaxAttempts      int                       `json:"max_attempts"`
	PassingScore     float64                   `json:"passing_score"`
	AvailableFrom    time.Time                 `json:"available_from"`
	AvailableUntil   *time.Time                `json:"available_until"`
	TotalQuestions   int                       `json:"total_questions"`
	TotalMarks       float64                   `json:"total_marks"`
	IsAvailable      bool                      `json:"is_available"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// NewAssessmentResponse converts a model into a DTO, evaluating availability
// at the supplied instant.
func NewAssessmentResponse(model models.Assessment, now time.Time) AssessmentResponse {
	response := AssessmentResponse{
		ID:               model.ID,
		Title:            model.Title,
		Description:      model.Description,
		Type:             string(model.Type),
		IsPublished:      model.IsPublished,
		IsTimed:          model.IsTimed,
		TimeLimitMinutes: model.TimeLimitMinutes,
		MaxAttempts:      model.MaxAttempts,
		PassingScore:     model.PassingScore,
		AvailableFrom:    model.AvailableFrom,
		AvailableUntil:   model.AvailableUntil,
		TotalQuestions:   model.TotalQuestions,
		TotalMarks:       model.TotalMarks,
		IsAvailable:      model.IsAvailable(now),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}

	if kind, id, ok := model.Target(); ok {
		response.Target = &AssessmentTargetResponse{Kind: string(kind), ID: id}
	}

	return response
}

// NewAssessmentResponseSlice converts a slice of models into DTOs.
func NewAssessmentResponseSlice(assessments []models.Assessment, now time.Time) []AssessmentResponse {
	responses := make([]AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, NewAssessmentResponse(assessment, now))
	}

	return responses
}
