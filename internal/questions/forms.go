package questions

import (
	"strings"

	"github.com/google/uuid"

	"github.com/survey-studio/backend/internal/models"
)

// QuestionForm is the question half of the editor; choices are bound
// separately through a forms.ChoiceFormSet.
type QuestionForm struct {
	Title string `form:"title" binding:"required,max=255"`
	Type  string `form:"question_type" binding:"required,oneof=multiple_choice text"`
}

func (f *QuestionForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Type = strings.TrimSpace(f.Type)
}

// QuestionType returns the posted type.
func (f *QuestionForm) QuestionType() models.QuestionType {
	return models.QuestionType(f.Type)
}

func formFrom(q *models.Question) QuestionForm {
	return QuestionForm{Title: q.Title, Type: string(q.Type)}
}

// ChoicePrefix is the formset prefix of an existing question's choices.
func ChoicePrefix(questionID uuid.UUID) string {
	return "choices-" + questionID.String()
}

// newChoicePrefix builds the per-session prefix of the create form.
func newChoicePrefix(token string) string {
	return "choices-new-" + token
}

// withPostedType returns a copy of q with the posted type applied when valid.
func withPostedType(q *models.Question, posted string) *models.Question {
	if q == nil {
		return nil
	}
	cp := *q
	if t := models.QuestionType(strings.TrimSpace(posted)); t.Valid() {
		cp.Type = t
	}
	return &cp
}

// extraRows is the number of blank rows offered with existing choices.
func extraRows(existing int) int {
	if n := 2 - existing; n > 1 {
		return n
	}
	return 1
}
