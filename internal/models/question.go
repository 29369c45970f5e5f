package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType tags how a question is answered.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeText           QuestionType = "text"
)

// QuestionTypes lists the valid types in display order.
var QuestionTypes = []QuestionType{QuestionTypeMultipleChoice, QuestionTypeText}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeText
}

// Label is the human-readable name.
func (t QuestionType) Label() string {
	switch t {
	case QuestionTypeMultipleChoice:
		return "Multiple Choice"
	case QuestionTypeText:
		return "Text"
	default:
		return string(t)
	}
}

// Question is a prompt within a survey.
type Question struct {
	ID        uuid.UUID    `json:"id"`
	SurveyID  uuid.UUID    `json:"survey_id"`
	Title     string       `json:"title"`
	Type      QuestionType `json:"question_type"`
	Position  int          `json:"position"`
	CreatedAt time.Time    `json:"created_at"`
	Choices   []Choice     `json:"choices,omitempty"`
}

// IsMultipleChoice reports whether the question takes a choice answer.
func (q *Question) IsMultipleChoice() bool {
	return q.Type == QuestionTypeMultipleChoice
}

// HasChoice reports whether choiceID belongs to the question.
func (q *Question) HasChoice(choiceID uuid.UUID) bool {
	for _, ch := range q.Choices {
		if ch.ID == choiceID {
			return true
		}
	}
	return false
}

// Choice is a selectable option of a multiple_choice question.
type Choice struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Title      string    `json:"title"`
	Position   int       `json:"position"`
}
