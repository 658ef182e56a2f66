package dto

import (
	"time"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// GradeAnswerRequest is the teacher's grading payload for one manual answer.
type GradeAnswerRequest struct {
	MarksAwarded *float64 `json:"marks_awarded" validate:"required,gte=0"`
	Feedback     string   `json:"feedback"`
}

// PendingAnswerResponse is one entry in the manual-grading queue.
type PendingAnswerResponse struct {
	AnswerID     uint    `json:"answer_id"`
	AttemptID    uint    `json:"attempt_id"`
	QuestionID   uint    `json:"question_id"`
	QuestionText string  `json:"question_text"`
	QuestionType string  `json:"question_type"`
	QuestionMark float64 `json:"question_mark"`
	TextAnswer   *string `json:"text_answer"`
}

// NewPendingAnswerResponse converts a model into the queue view.
func NewPendingAnswerResponse(model models.StudentAnswer) PendingAnswerResponse {
	return PendingAnswerResponse{
		AnswerID:     model.ID,
		AttemptID:    model.AttemptID,
		QuestionID:   model.QuestionID,
		QuestionText: model.Question.Text,
		QuestionType: string(model.Question.Type),
		QuestionMark: model.Question.Mark,
		TextAnswer:   model.TextAnswer,
	}
}

// NewPendingAnswerResponseSlice converts a slice of models into queue views.
func NewPendingAnswerResponseSlice(answers []models.StudentAnswer) []PendingAnswerResponse {
	responses := make([]PendingAnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, NewPendingAnswerResponse(answer))
	}

	return responses
}

// GradedAnswerResponse is returned after a manual grade has been recorded.
type GradedAnswerResponse struct {
	AnswerID        uint     `json:"answer_id"`
	AttemptID       uint     `json:"attempt_id"`
	MarksAwarded    float64  `json:"marks_awarded"`
	TeacherFeedback string   `json:"teacher_feedback,omitempty"`
	AttemptStatus   string   `json:"attempt_status"`
	AttemptScore    *float64 `json:"attempt_score,omitempty"`
}

// AuditEventResponse is the serialized audit trail entry.
type AuditEventResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewAuditEventResponse converts a model into a DTO.
func NewAuditEventResponse(model models.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:         model.ID,
		ActorID:    model.ActorID,
		ActorRole:  model.ActorRole,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   model.Metadata,
		CreatedAt:  model.CreatedAt,
	}
}
