package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

type fakeUploader struct {
	uploads int
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	f.uploads++
	return "https://cdn.example.com/" + name, nil
}

type questionTestEnv struct {
	db         *gorm.DB
	fixture    catalogFixture
	assessment models.Assessment
	svc        QuestionService
	uploader   *fakeUploader
}

func newQuestionTestEnv(t *testing.T) questionTestEnv {
	t.Helper()

	db := setupServiceDB(t)
	fixture := seedCatalog(t, db)
	assessment := seedQuizAssessment(t, db, fixture, false)
	validate := validator.New(validator.WithRequiredStructEnabled())
	uploader := &fakeUploader{}

	svc := NewQuestionService(
		repository.NewQuestionRepository(db),
		repository.NewAssessmentRepository(db),
		validate,
		uploader,
		nil,
		testLogger(),
	)

	return questionTestEnv{db: db, fixture: fixture, assessment: assessment, svc: svc, uploader: uploader}
}

// makeFileHeader builds a real multipart file header from in-memory content.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["image"][0]
}

func pngBytes() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
}

func TestQuestionCreate(t *testing.T) {
	env := newQuestionTestEnv(t)

	first, err := env.svc.Create(context.Background(), env.fixture.TeacherID, env.assessment.ID, dto.QuestionCreateRequest{
		Text: "What is <i>slope</i>?",
		Type: string(models.QuestionShortAnswer),
		Mark: 2,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, first.Order)
	require.Equal(t, "What is slope?", first.Text)

	second, err := env.svc.Create(context.Background(), env.fixture.TeacherID, env.assessment.ID, dto.QuestionCreateRequest{
		Text: "Second question",
		Type: string(models.QuestionEssay),
		Mark: 5,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, second.Order)

	// Totals follow the question set.
	var assessment models.Assessment
	require.NoError(t, env.db.First(&assessment, env.assessment.ID).Error)
	require.Equal(t, 2, assessment.TotalQuestions)
	require.InDelta(t, 7.0, assessment.TotalMarks, 0.001)

	_, err = env.svc.Create(context.Background(), 42, env.assessment.ID, dto.QuestionCreateRequest{
		Text: "Not yours",
		Type: string(models.QuestionEssay),
		Mark: 1,
	}, nil)
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestQuestionCreateWithImage(t *testing.T) {
	env := newQuestionTestEnv(t)

	created, err := env.svc.Create(context.Background(), env.fixture.TeacherID, env.assessment.ID, dto.QuestionCreateRequest{
		Text: "Identify the graph",
		Type: string(models.QuestionMultipleChoice),
		Mark: 2,
	}, makeFileHeader(t, "graph.png", pngBytes()))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/graph.png", created.ImageURL)
	require.Equal(t, 1, env.uploader.uploads)
}

func TestQuestionImageRejections(t *testing.T) {
	env := newQuestionTestEnv(t)

	request := dto.QuestionCreateRequest{
		Text: "Identify the graph",
		Type: string(models.QuestionMultipleChoice),
		Mark: 2,
	}

	_, err := env.svc.Create(context.Background(), env.fixture.TeacherID, env.assessment.ID, request,
		makeFileHeader(t, "notes.txt", []byte("plain text, not an image")))
	require.ErrorIs(t, err, ErrImageTypeNotAllowed)

	oversized := append(pngBytes(), make([]byte, maxQuestionImageBytes)...)
	_, err = env.svc.Create(context.Background(), env.fixture.TeacherID, env.assessment.ID, request,
		makeFileHeader(t, "huge.png", oversized))
	require.ErrorIs(t, err, ErrImageTooLarge)

	require.Zero(t, env.uploader.uploads)
}

func TestQuestionUpdateKeepsOptionsConsistent(t *testing.T) {
	env := newQuestionTestEnv(t)
	question := seedChoiceQuestion(t, env.db, env.assessment.ID, 1, 2)

	essay := string(models.QuestionEssay)
	_, err := env.svc.Update(context.Background(), env.fixture.TeacherID, question.ID, dto.QuestionUpdateRequest{Type: &essay}, nil)
	require.ErrorIs(t, err, ErrOptionsNotAllowed)

	trueFalse := string(models.QuestionTrueFalse)
	updated, err := env.svc.Update(context.Background(), env.fixture.TeacherID, question.ID, dto.QuestionUpdateRequest{Type: &trueFalse}, nil)
	require.NoError(t, err)
	require.Equal(t, trueFalse, updated.Type)

	// The update never touches the option rows.
	var count int64
	require.NoError(t, env.db.Model(&models.QuestionOption{}).Where("question_id = ?", question.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestQuestionImport(t *testing.T) {
	env := newQuestionTestEnv(t)
	seedEssayQuestion(t, env.db, env.assessment.ID, 1, 5)
	refreshTotals(t, env.db, env.assessment.ID)

	document := []byte(`{
	  "questions": [
	    {
	      "question_text": "Pick the right one",
	      "question_type": "multiple_choice",
	      "mark": 2,
	      "options": [
	        {"option_text": "yes", "is_correct": true},
	        {"option_text": "no", "is_correct": false}
	      ]
	    },
	    {"question_text": "Explain your pick", "question_type": "essay", "mark": 3}
	  ]
	}`)

	result, err := env.svc.Import(context.Background(), env.fixture.TeacherID, env.assessment.ID, document)
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)

	questions, err := env.svc.ListByAssessment(context.Background(), env.fixture.TeacherID, env.assessment.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	// Imported questions append after the existing last slot.
	for i, question := range questions {
		require.Equal(t, i+1, question.Order)
	}
	require.Len(t, questions[1].Options, 2)

	var assessment models.Assessment
	require.NoError(t, env.db.First(&assessment, env.assessment.ID).Error)
	require.Equal(t, 3, assessment.TotalQuestions)
	require.InDelta(t, 10.0, assessment.TotalMarks, 0.001)
}

func TestQuestionImportRejectsInvalidDocuments(t *testing.T) {
	env := newQuestionTestEnv(t)

	cases := []struct {
		name     string
		document string
	}{
		{"not json", `{"questions": [`},
		{"missing mark", `{"questions": [{"question_text": "q", "question_type": "essay"}]}`},
		{"unknown type", `{"questions": [{"question_text": "q", "question_type": "matching", "mark": 1}]}`},
		{"empty set", `{"questions": []}`},
		{"options on essay", `{"questions": [{"question_text": "q", "question_type": "essay", "mark": 1,
			"options": [{"option_text": "a", "is_correct": true}, {"option_text": "b", "is_correct": false}]}]}`},
		{"single option", `{"questions": [{"question_text": "q", "question_type": "multiple_choice", "mark": 1,
			"options": [{"option_text": "a", "is_correct": true}]}]}`},
		{"no correct option", `{"questions": [{"question_text": "q", "question_type": "multiple_choice", "mark": 1,
			"options": [{"option_text": "a", "is_correct": false}, {"option_text": "b", "is_correct": false}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Import(context.Background(), env.fixture.TeacherID, env.assessment.ID, []byte(tc.document))
			require.ErrorIs(t, err, ErrImportInvalid)
		})
	}

	// A failed import writes nothing.
	var count int64
	require.NoError(t, env.db.Model(&models.Question{}).Where("assessment_id = ?", env.assessment.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestQuestionDelete(t *testing.T) {
	env := newQuestionTestEnv(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, env.db.Create(&models.Question{
			AssessmentID: env.assessment.ID,
			Text:         fmt.Sprintf("q%d", i),
			Type:         models.QuestionEssay,
			Mark:         2,
			Order:        i,
		}).Error)
	}
	refreshTotals(t, env.db, env.assessment.ID)

	questions, err := env.svc.ListByAssessment(context.Background(), env.fixture.TeacherID, env.assessment.ID)
	require.NoError(t, err)

	require.ErrorIs(t, env.svc.Delete(context.Background(), 42, questions[1].ID), ErrQuestionNotFound)
	require.NoError(t, env.svc.Delete(context.Background(), env.fixture.TeacherID, questions[1].ID))

	var assessment models.Assessment
	require.NoError(t, env.db.First(&assessment, env.assessment.ID).Error)
	require.Equal(t, 2, assessment.TotalQuestions)
	require.InDelta(t, 4.0, assessment.TotalMarks, 0.001)
}
