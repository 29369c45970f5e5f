package analytics

import (
	"github.com/google/uuid"

	"github.com/survey-studio/backend/internal/models"
)

// Results is the JSON summary of a survey's answers.
type Results struct {
	SurveyID    uuid.UUID        `json:"survey_id"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Respondents int              `json:"respondents"`
	Questions   []QuestionResult `json:"questions"`
}

// QuestionResult summarises one question.
type QuestionResult struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Type        models.QuestionType `json:"question_type"`
	Answers     int                 `json:"answers"`
	Choices     []ChoiceCount       `json:"choices,omitempty"`
	TextAnswers int                 `json:"text_answers"`
}

// ChoiceCount is the number of answers that picked one choice.
type ChoiceCount struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Count int       `json:"count"`
}

// Counts are the raw aggregates Summarize combines with the questions.
type Counts struct {
	Respondents int
	Choices     map[uuid.UUID]int // choice id -> answers
	Text        map[uuid.UUID]int // question id -> text answers
}

// Summarize builds Results in question order. Choices nobody picked are
// listed with a zero count.
func Summarize(s *models.Survey, questions []models.Question, counts Counts) Results {
	res := Results{
		SurveyID:    s.ID,
		Title:       s.Title,
		Slug:        s.Slug,
		Respondents: counts.Respondents,
		Questions:   make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		qr := QuestionResult{ID: q.ID, Title: q.Title, Type: q.Type}
		if q.IsMultipleChoice() {
			qr.Choices = make([]ChoiceCount, 0, len(q.Choices))
			for _, ch := range q.Choices {
				n := counts.Choices[ch.ID]
				qr.Choices = append(qr.Choices, ChoiceCount{ID: ch.ID, Title: ch.Title, Count: n})
				qr.Answers += n
			}
		} else {
			qr.TextAnswers = counts.Text[q.ID]
			qr.Answers = qr.TextAnswers
		}
		res.Questions = append(res.Questions, qr)
	}
	return res
}
