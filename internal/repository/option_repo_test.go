package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

func TestOptionOrderingSharesQuestionSemantics(t *testing.T) {
	db := setupTestDB(t)
	assessment := createAssessment(t, db, 1)
	question := models.Question{
		AssessmentID: assessment.ID,
		Text:         "pick one",
		Type:         models.QuestionMultipleChoice,
		Mark:         2,
		Order:        1,
	}
	require.NoError(t, db.Create(&question).Error)

	repo := NewOptionRepository(db)

	options := make([]models.QuestionOption, 0, 3)
	for i := 0; i < 3; i++ {
		option := models.QuestionOption{
			QuestionID: question.ID,
			Text:       fmt.Sprintf("option %d", i+1),
			IsCorrect:  i == 0,
		}
		require.NoError(t, repo.Create(context.Background(), &option, nil))
		require.Equal(t, i+1, option.Order)
		options = append(options, option)
	}

	// Inserting into an occupied slot shifts the tail up.
	slot := 1
	inserted := models.QuestionOption{QuestionID: question.ID, Text: "first now"}
	require.NoError(t, repo.Create(context.Background(), &inserted, &slot))

	listed, err := repo.ListByQuestion(context.Background(), question.ID)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	require.Equal(t, inserted.ID, listed[0].ID)
	require.Equal(t, options[0].ID, listed[1].ID)
	require.Equal(t, options[2].ID, listed[3].ID)

	// Moving re-indexes only the affected range.
	slot = 4
	require.NoError(t, repo.Update(context.Background(), &inserted, &slot))

	listed, err = repo.ListByQuestion(context.Background(), question.ID)
	require.NoError(t, err)
	require.Equal(t, options[0].ID, listed[0].ID)
	require.Equal(t, inserted.ID, listed[3].ID)

	require.NoError(t, repo.Delete(context.Background(), options[1].ID))
	listed, err = repo.ListByQuestion(context.Background(), question.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
}
