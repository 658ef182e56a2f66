package dto

import (
	"time"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// AttemptOption is the student-facing option view. Correctness is never
// exposed on this path.
type AttemptOption struct {
	ID    uint   `json:"id"`
	Text  string `json:"option_text"`
	Order int    `json:"order"`
}

// AttemptQuestion is the student-facing question view served at attempt
// start.
type AttemptQuestion struct {
	ID       uint            `json:"id"`
	Text     string          `json:"question_text"`
	Type     string          `json:"question_type"`
	Mark     float64         `json:"mark"`
	Order    int             `json:"order"`
	ImageURL string          `json:"image_url,omitempty"`
	Options  []AttemptOption `json:"options,omitempty"`
}

// AttemptStartResponse is returned when a student successfully starts an
// attempt.
type AttemptStartResponse struct {
	AttemptID        uint              `json:"attempt_id"`
	AttemptNumber    int               `json:"attempt_number"`
	StartedAt        time.Time         `json:"started_at"`
	TimeLimitMinutes *int              `json:"time_limit_minutes"`
	TotalQuestions   int               `json:"total_questions"`
	AvailableUntil   *time.Time        `json:"available_until"`
	Questions        []AttemptQuestion `json:"questions"`
}

// NewAttemptQuestion converts a question into its student-facing view.
func NewAttemptQuestion(model models.Question) AttemptQuestion {
	question := AttemptQuestion{
		ID:       model.ID,
		Text:     model.Text,
		Type:     string(model.Type),
		Mark:     model.Mark,
		Order:    model.Order,
		ImageURL: model.ImageURL,
	}

	for _, option := range model.Options {
		question.Options = append(question.Options, AttemptOption{
			ID:    option.ID,
			Text:  option.Text,
			Order: option.Order,
		})
	}

	return question
}

// AnswerSubmit is one answer inside a submit payload. Choice questions take
// selected_option_id, text questions take text_answer; the other field is
// discarded.
type AnswerSubmit struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	TextAnswer       *string `json:"text_answer"`
}

// AttemptSubmitRequest is the submit payload for an in-progress attempt.
type AttemptSubmitRequest struct {
	Answers []AnswerSubmit `json:"answers" validate:"required,min=1,dive"`
}

// AttemptSummaryResponse is the list view of a student's attempts.
type AttemptSummaryResponse struct {
	ID               uint       `json:"id"`
	AssessmentID     uint       `json:"assessment_id"`
	AssessmentTitle  string     `json:"assessment_title"`
	AssessmentType   string     `json:"assessment_type"`
	AttemptNumber    int        `json:"attempt_number"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	TimeTakenSeconds *int       `json:"time_taken_seconds"`
	Score            float64    `json:"score"`
	Percentage       float64    `json:"percentage"`
	IsPassed         bool       `json:"is_passed"`
}

// NewAttemptSummaryResponse converts a model into the list view.
func NewAttemptSummaryResponse(model models.StudentAssessmentAttempt) AttemptSummaryResponse {
	return AttemptSummaryResponse{
		ID:               model.ID,
		AssessmentID:     model.AssessmentID,
		AssessmentTitle:  model.Assessment.Title,
		AssessmentType:   string(model.Assessment.Type),
		AttemptNumber:    model.AttemptNumber,
		Status:           string(model.Status),
		StartedAt:        model.StartedAt,
		EndedAt:          model.EndedAt,
		TimeTakenSeconds: model.TimeTakenSeconds,
		Score:            model.Score,
		Percentage:       model.Percentage,
		IsPassed:         model.IsPassed,
	}
}

// AnswerResultResponse is one graded answer inside an attempt result.
type AnswerResultResponse struct {
	ID              uint    `json:"id"`
	QuestionText    string  `json:"question_text"`
	QuestionType    string  `json:"question_type"`
	QuestionMark    float64 `json:"question_mark"`
	SelectedOption  *string `json:"selected_option,omitempty"`
	TextAnswer      *string `json:"text_answer,omitempty"`
	MarksAwarded    float64 `json:"marks_awarded"`
	IsCorrect       bool    `json:"is_correct"`
	AutoGraded      bool    `json:"auto_graded"`
	TeacherFeedback string  `json:"teacher_feedback,omitempty"`
	Explanation     string  `json:"explanation,omitempty"`
}

// AttemptResultResponse is the full result of a graded attempt.
type AttemptResultResponse struct {
	ID               uint                   `json:"id"`
	AssessmentTitle  string                 `json:"assessment_title"`
	AttemptNumber    int                    `json:"attempt_number"`
	Status           string                 `json:"status"`
	StartedAt        time.Time              `json:"started_at"`
	EndedAt          *time.Time             `json:"ended_at"`
	TimeTakenSeconds *int                   `json:"time_taken_seconds"`
	Score            float64                `json:"score"`
	TotalMarks       float64                `json:"total_marks"`
	Percentage       float64                `json:"percentage"`
	IsPassed         bool                   `json:"is_passed"`
	GradedAt         *time.Time             `json:"graded_at"`
	TeacherFeedback  string                 `json:"teacher_feedback,omitempty"`
	Answers          []AnswerResultResponse `json:"answers"`
}

// NewAttemptResultResponse converts a fully loaded attempt into the result
// view.
func NewAttemptResultResponse(model models.StudentAssessmentAttempt) AttemptResultResponse {
	response := AttemptResultResponse{
		ID:               model.ID,
		AssessmentTitle:  model.Assessment.Title,
		AttemptNumber:    model.AttemptNumber,
		Status:           string(model.Status),
		StartedAt:        model.StartedAt,
		EndedAt:          model.EndedAt,
		TimeTakenSeconds: model.TimeTakenSeconds,
		Score:            model.Score,
		TotalMarks:       model.Assessment.TotalMarks,
		Percentage:       model.Percentage,
		IsPassed:         model.IsPassed,
		GradedAt:         model.GradedAt,
		TeacherFeedback:  model.TeacherFeedback,
	}

	for _, answer := range model.Answers {
		result := AnswerResultResponse{
			ID:              answer.ID,
			QuestionText:    answer.Question.Text,
			QuestionType:    string(answer.Question.Type),
			QuestionMark:    answer.Question.Mark,
			TextAnswer:      answer.TextAnswer,
			MarksAwarded:    answer.MarksAwarded,
			IsCorrect:       answer.IsCorrect,
			AutoGraded:      answer.AutoGraded,
			TeacherFeedback: answer.TeacherFeedback,
			Explanation:     answer.Question.Explanation,
		}
		if answer.SelectedOption != nil {
			text := answer.SelectedOption.Text
			result.SelectedOption = &text
		}
		response.Answers = append(response.Answers, result)
	}

	return response
}

// AttemptPendingResponse is the 202-style signal returned while manual
// grading is still outstanding.
type AttemptPendingResponse struct {
	AttemptID uint   `json:"attempt_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
