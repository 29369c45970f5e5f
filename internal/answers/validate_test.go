package answers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/models"
)

func mcQuestion() *models.Question {
	q := &models.Question{ID: uuid.New(), Type: models.QuestionTypeMultipleChoice}
	q.Choices = []models.Choice{{ID: uuid.New(), QuestionID: q.ID, Title: "Yes"}, {ID: uuid.New(), QuestionID: q.ID, Title: "No"}}
	return q
}

func TestBuild_MultipleChoice(t *testing.T) {
	q := mcQuestion()
	user := uuid.New()

	a, err := Build(q, user, q.Choices[1].ID.String(), "")
	require.NoError(t, err)
	require.NotNil(t, a.ChoiceID)
	assert.Equal(t, q.Choices[1].ID, *a.ChoiceID)
	assert.Nil(t, a.TextAnswer)

	_, err = Build(q, user, q.Choices[0].ID.String(), "also text")
	assert.ErrorIs(t, err, ErrTextOnChoice)

	_, err = Build(q, user, "", "")
	assert.ErrorIs(t, err, ErrAnswerRequired)

	_, err = Build(q, user, uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrUnknownChoice)

	_, err = Build(q, user, "not-a-uuid", "")
	assert.ErrorIs(t, err, ErrUnknownChoice)
}

func TestBuild_Text(t *testing.T) {
	q := &models.Question{ID: uuid.New(), Type: models.QuestionTypeText}
	user := uuid.New()

	a, err := Build(q, user, "", "  Blue  ")
	require.NoError(t, err)
	require.NotNil(t, a.TextAnswer)
	assert.Equal(t, "Blue", *a.TextAnswer)
	assert.Nil(t, a.ChoiceID)

	_, err = Build(q, user, uuid.NewString(), "Blue")
	assert.ErrorIs(t, err, ErrChoiceOnText)

	_, err = Build(q, user, "", "   ")
	assert.ErrorIs(t, err, ErrAnswerRequired)
}

func TestCheck(t *testing.T) {
	q := mcQuestion()
	text := "x"
	choice := q.Choices[0].ID
	assert.ErrorIs(t, Check(q, models.Answer{QuestionID: q.ID, ChoiceID: &choice, TextAnswer: &text}), ErrTextOnChoice)
	assert.NoError(t, Check(q, models.Answer{QuestionID: q.ID, ChoiceID: &choice}))
	assert.ErrorIs(t, Check(q, models.Answer{QuestionID: uuid.New(), ChoiceID: &choice}), ErrQuestionMismatch)
}
