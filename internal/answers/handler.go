package answers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/surveys"
	"github.com/survey-studio/backend/internal/web"
	"github.com/survey-studio/backend/pkg/response"
)

// Posted field name prefixes; the question id follows.
const (
	ChoicePrefix = "choice-"
	TextPrefix   = "text-"
)

// EventAnswerRecorded is published to the survey's live room after a submission.
const EventAnswerRecorded = "answer_recorded"

// Store persists answers.
type Store interface {
	Submit(ctx context.Context, list []models.Answer) error
	ForUser(ctx context.Context, surveyID, userID uuid.UUID) (map[uuid.UUID]models.Answer, error)
}

// QuestionLister loads a survey's questions with their choices.
type QuestionLister interface {
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error)
}

// Publisher pushes live events to a survey's viewers.
type Publisher interface {
	Publish(surveyID uuid.UUID, event string, payload interface{})
}

// Flasher queues flash messages.
type Flasher interface {
	AddFlash(ctx context.Context, sid, msg string) error
}

// Row is one question of the response form.
type Row struct {
	Question *models.Question
	Choice   string
	Text     string
	Errors   []string
}

// Handler serves the response form.
type Handler struct {
	store     Store
	surveys   surveys.Finder
	questions QuestionLister
	live      Publisher
	flashes   Flasher
	render    *web.Renderer
	logger    *zap.Logger
}

// NewHandler creates an answers handler. live and flashes may be nil.
func NewHandler(store Store, finder surveys.Finder, questions QuestionLister, live Publisher, flashes Flasher, render *web.Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, surveys: finder, questions: questions, live: live, flashes: flashes, render: render, logger: logger}
}

// Respond handles GET and POST /surveys/:slug/respond.
func (h *Handler) Respond(c *gin.Context) {
	s, ok := surveys.Load(c, h.surveys, h.logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	identity, _ := auth.CurrentIdentity(c)
	questions, err := h.questions.ListBySurvey(ctx, s.ID)
	if err != nil {
		h.logger.Error("list questions", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}

	if c.Request.Method != http.MethodPost {
		previous, err := h.store.ForUser(ctx, s.ID, identity.UserID)
		if err != nil {
			h.logger.Error("load previous answers", zap.String("survey_id", s.ID.String()), zap.Error(err))
			response.InternalText(c)
			return
		}
		h.renderForm(c, http.StatusOK, s, prefilled(questions, previous), forms.Errors{})
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	rows, list, errs := bind(questions, identity.UserID, c.Request.PostForm)
	if errs.Any() {
		h.renderForm(c, web.FormStatus(c), s, rows, errs)
		return
	}

	if err := h.store.Submit(ctx, list); err != nil {
		h.logger.Error("submit answers", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	h.logger.Info("answers recorded", zap.String("survey_id", s.ID.String()), zap.Int("answers", len(list)))

	if h.live != nil {
		questionIDs := make([]uuid.UUID, 0, len(list))
		for _, a := range list {
			questionIDs = append(questionIDs, a.QuestionID)
		}
		h.live.Publish(s.ID, EventAnswerRecorded, gin.H{
			"survey_id":    s.ID,
			"question_ids": questionIDs,
		})
	}
	if h.flashes != nil && identity.SessionID != "" {
		if err := h.flashes.AddFlash(ctx, identity.SessionID, "Thanks, your answers were recorded."); err != nil {
			h.logger.Warn("add flash", zap.Error(err))
		}
	}
	response.Redirect(c, web.HomeURL)
}

func (h *Handler) renderForm(c *gin.Context, status int, s *models.Survey, rows []*Row, errs forms.Errors) {
	h.render.Render(c, status, "respond", gin.H{
		"Survey":       s,
		"Rows":         rows,
		"Errors":       errs,
		"ChoicePrefix": ChoicePrefix,
		"TextPrefix":   TextPrefix,
	})
}

func prefilled(questions []models.Question, previous map[uuid.UUID]models.Answer) []*Row {
	rows := make([]*Row, 0, len(questions))
	for i := range questions {
		row := &Row{Question: &questions[i]}
		// Answers left over from before a question type change no longer fit.
		if a, ok := previous[questions[i].ID]; ok && Check(&questions[i], a) == nil {
			if a.ChoiceID != nil {
				row.Choice = a.ChoiceID.String()
			}
			if a.TextAnswer != nil {
				row.Text = *a.TextAnswer
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// bind validates one answer per question. Every question must be answered.
func bind(questions []models.Question, userID uuid.UUID, values url.Values) ([]*Row, []models.Answer, forms.Errors) {
	errs := forms.Errors{}
	if len(questions) == 0 {
		errs.Add(forms.NonField, "This survey has no questions yet.")
		return nil, nil, errs
	}
	rows := make([]*Row, 0, len(questions))
	list := make([]models.Answer, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		key := q.ID.String()
		row := &Row{Question: q, Choice: values.Get(ChoicePrefix + key), Text: values.Get(TextPrefix + key)}
		a, err := Build(q, userID, row.Choice, row.Text)
		if err != nil {
			msg := Message(err)
			row.Errors = append(row.Errors, msg)
			errs.Add(key, msg)
		} else {
			list = append(list, a)
		}
		rows = append(rows, row)
	}
	return rows, list, errs
}
