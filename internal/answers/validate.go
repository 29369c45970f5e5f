package answers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/survey-studio/backend/internal/models"
)

// MaxTextAnswer bounds free text answers in characters.
const MaxTextAnswer = 10000

var (
	ErrAnswerRequired   = errors.New("answer required")
	ErrTextOnChoice     = errors.New("text given for a multiple choice question")
	ErrChoiceOnText     = errors.New("choice given for a text question")
	ErrUnknownChoice    = errors.New("choice does not belong to the question")
	ErrTextTooLong      = errors.New("text answer too long")
	ErrQuestionMismatch = errors.New("answer does not belong to the question")
)

var messages = map[error]string{
	ErrAnswerRequired: "This field is required.",
	ErrTextOnChoice:   "This question takes a choice, not text.",
	ErrChoiceOnText:   "This question takes a text answer, not a choice.",
	ErrUnknownChoice:  "Select a valid choice. That choice is not one of the available choices.",
	ErrTextTooLong:    "Ensure this answer has at most 10000 characters.",
}

// Message returns the form message for a validation error.
func Message(err error) string {
	for e, msg := range messages {
		if errors.Is(err, e) {
			return msg
		}
	}
	return "Enter a valid answer."
}

// Build validates the raw posted choice and text of one question and
// returns the answer to store. Exactly one of choice and text must be set,
// matching the question type.
func Build(q *models.Question, userID uuid.UUID, choice, text string) (models.Answer, error) {
	choice = strings.TrimSpace(choice)
	text = strings.TrimSpace(text)
	a := models.Answer{UserID: userID, QuestionID: q.ID}

	if q.IsMultipleChoice() {
		if text != "" {
			return a, ErrTextOnChoice
		}
		if choice == "" {
			return a, ErrAnswerRequired
		}
		id, err := uuid.Parse(choice)
		if err != nil || !q.HasChoice(id) {
			return a, ErrUnknownChoice
		}
		a.ChoiceID = &id
		return a, nil
	}

	if choice != "" {
		return a, ErrChoiceOnText
	}
	if text == "" {
		return a, ErrAnswerRequired
	}
	if utf8.RuneCountInString(text) > MaxTextAnswer {
		return a, ErrTextTooLong
	}
	a.TextAnswer = &text
	return a, nil
}

// Check re-validates a stored-shape answer against its question.
func Check(q *models.Question, a models.Answer) error {
	if a.QuestionID != q.ID {
		return ErrQuestionMismatch
	}
	choice, text := "", ""
	if a.ChoiceID != nil {
		choice = a.ChoiceID.String()
	}
	if a.TextAnswer != nil {
		text = *a.TextAnswer
	}
	_, err := Build(q, a.UserID, choice, text)
	return err
}
