package models

import (
	"time"

	"github.com/google/uuid"
)

// Survey is the top-level container of questions, addressed by slug.
type Survey struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	Created     time.Time  `json:"created"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions,omitempty"`
}

// OwnedBy reports whether userID owns the survey.
func (s *Survey) OwnedBy(userID uuid.UUID) bool {
	return s.UserID == userID
}

// SurveyListing is a survey with its owner's username, for admin listings.
type SurveyListing struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	QuestionCount int       `json:"question_count"`
	Created       time.Time `json:"created"`
}
