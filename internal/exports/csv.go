package exports

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/survey-studio/backend/internal/models"
)

// Header is the first line of every export.
var Header = []string{"question", "question_type", "respondent", "answer", "answered_at"}

// Row is one answer as it appears in the CSV.
type Row struct {
	Question   string
	Type       models.QuestionType
	Respondent string
	Answer     string
	AnsweredAt time.Time
}

// WriteCSV renders rows after the header. Timestamps are RFC 3339 in UTC.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Question, string(r.Type), r.Respondent, r.Answer, r.AnsweredAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
