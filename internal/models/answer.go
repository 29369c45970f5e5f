package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one user's response to one question: a choice for
// multiple_choice questions, free text for text questions, never both.
type Answer struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	QuestionID uuid.UUID  `json:"question_id"`
	ChoiceID   *uuid.UUID `json:"choice_id,omitempty"`
	TextAnswer *string    `json:"text_answer,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
