package questions

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/response"
	"github.com/survey-studio/backend/pkg/utils"
)

const (
	msgQuestionNotFound = "Question not found."
	msgBadChoiceData    = "The choices could not be read, please reload the editor."
	newEditorID         = "new-question-editor"
)

// Store is the question persistence used by Handler.
type Store interface {
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error)
	Get(ctx context.Context, surveyID, id uuid.UUID) (*models.Question, error)
	Save(ctx context.Context, q *models.Question, changes forms.ChoiceChanges) error
	Delete(ctx context.Context, surveyID, id uuid.UUID) error
}

// SessionStore keeps the temporary choice prefix of the create form.
type SessionStore interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid, key string) error
}

// Handler serves the question editor and its choice area.
type Handler struct {
	store    Store
	surveys  surveys.Finder
	sessions SessionStore
	render   *web.Renderer
	logger   *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(store Store, finder surveys.Finder, sessions SessionStore, render *web.Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, surveys: finder, sessions: sessions, render: render, logger: logger}
}

// editor is the state of one question editor render.
type editor struct {
	survey   *models.Survey
	question *models.Question
	form     QuestionForm
	errors   forms.Errors
	choices  *forms.ChoiceFormSet
	mc       bool
	prefix   string
}

func (e *editor) data() gin.H {
	d := gin.H{
		"Survey":         e.survey,
		"Question":       e.question,
		"Form":           e.form,
		"Errors":         e.errors,
		"Choices":        e.choices,
		"MultipleChoice": e.mc,
		"AreaID":         "area-" + e.prefix,
	}
	if e.question == nil {
		d["ElementID"] = newEditorID
		d["ActionURL"] = web.SurveyURL(e.survey.Slug, "question/create")
		d["ChoicesURL"] = web.SurveyURL(e.survey.Slug, "question/choices")
		d["CancelURL"] = ""
	} else {
		d["ElementID"] = fmt.Sprintf("question-%s", e.question.ID)
		d["ActionURL"] = web.QuestionURL(e.survey.Slug, e.question.ID, "update")
		d["ChoicesURL"] = web.QuestionURL(e.survey.Slug, e.question.ID, "choices")
		d["CancelURL"] = web.QuestionURL(e.survey.Slug, e.question.ID, "")
	}
	return d
}

func (e *editor) existingChoices() []models.Choice {
	if e.question == nil {
		return nil
	}
	return e.question.Choices
}

// Create handles GET and POST /surveys/:slug/question/create.
func (h *Handler) Create(c *gin.Context) {
	s, ok := surveys.LoadOwned(c, h.surveys, h.logger)
	if !ok {
		return
	}
	prefix, err := h.newQuestionPrefix(c, s.ID)
	if err != nil {
		h.logger.Error("question prefix", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	if c.Request.Method != http.MethodPost {
		e := &editor{
			survey:  s,
			form:    QuestionForm{Type: string(models.QuestionTypeMultipleChoice)},
			errors:  forms.Errors{},
			choices: forms.NewChoiceFormSet(prefix, nil, forms.MinChoices),
			mc:      true,
			prefix:  prefix,
		}
		h.render.Render(c, http.StatusOK, "question_editor", e.data())
		return
	}
	h.save(c, &editor{survey: s, prefix: prefix})
}

// Update handles GET and POST /surveys/:slug/question/:id/update.
func (h *Handler) Update(c *gin.Context) {
	s, q, ok := h.load(c)
	if !ok {
		return
	}
	prefix := ChoicePrefix(q.ID)
	if c.Request.Method != http.MethodPost {
		e := &editor{survey: s, question: q, form: formFrom(q), errors: forms.Errors{}, mc: q.IsMultipleChoice(), prefix: prefix}
		if e.mc {
			e.choices = forms.NewChoiceFormSet(prefix, q.Choices, extraRows(len(q.Choices)))
		}
		h.render.Render(c, http.StatusOK, "question_editor", e.data())
		return
	}
	h.save(c, &editor{survey: s, question: q, prefix: prefix})
}

// save validates the posted editor and persists it atomically.
func (h *Handler) save(c *gin.Context, e *editor) {
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	values := c.Request.PostForm
	e.errors = forms.Decode(values, &e.form)

	instance := withPostedType(e.question, e.form.Type)
	e.mc = forms.ResolveMultipleChoice(instance, values)
	if e.mc {
		e.choices = h.bindChoices(values, e.prefix, e.existingChoices(), e.errors)
		e.choices.Validate(true)
	}
	if e.errors.Any() || (e.choices != nil && !e.choices.Valid()) {
		h.render.Render(c, web.FormStatus(c), "question_editor", e.data())
		return
	}

	q := instance
	if q == nil {
		q = &models.Question{SurveyID: e.survey.ID}
	}
	q.Title = e.form.Title
	q.Type = e.form.QuestionType()
	var changes forms.ChoiceChanges
	if e.mc {
		changes = e.choices.Changes()
	}

	err := h.store.Save(c.Request.Context(), q, changes)
	switch {
	case errors.Is(err, ErrTooFewChoices):
		e.choices.NonFormErrors = append(e.choices.NonFormErrors, forms.MsgTooFewChoices)
		h.render.Render(c, web.FormStatus(c), "question_editor", e.data())
		return
	case errors.Is(err, ErrDuplicateChoices):
		e.choices.NonFormErrors = append(e.choices.NonFormErrors, forms.MsgDuplicateStored)
		h.render.Render(c, web.FormStatus(c), "question_editor", e.data())
		return
	case errors.Is(err, database.ErrNotFound):
		response.NotFoundText(c, msgQuestionNotFound)
		return
	case err != nil:
		h.logger.Error("save question", zap.String("survey_id", e.survey.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}

	created := e.question == nil
	if created {
		h.clearQuestionPrefix(c, e.survey.ID)
	}
	h.logger.Info("question saved",
		zap.String("question_id", q.ID.String()),
		zap.String("question_type", string(q.Type)),
		zap.Int("choices", len(q.Choices)),
		zap.Bool("created", created))

	if !response.IsPartial(c) {
		response.Redirect(c, web.SurveyURL(e.survey.Slug, "detail"))
		return
	}
	data := gin.H{"Survey": e.survey, "Question": q, "IsOwner": true}
	if created {
		response.Retarget(c, "#questions", "beforeend")
		h.render.Render(c, http.StatusOK, "question_created", data)
		return
	}
	h.render.Render(c, http.StatusOK, "question_detail", data)
}

// bindChoices binds the posted formset; a missing management form falls
// back to the stored choices, a tampered one to an error on the editor.
func (h *Handler) bindChoices(values url.Values, prefix string, existing []models.Choice, errs forms.Errors) *forms.ChoiceFormSet {
	if !forms.HasManagement(values, prefix) {
		return forms.NewChoiceFormSet(prefix, existing, 0)
	}
	fs, err := forms.BindChoiceFormSet(values, prefix, existing)
	if err != nil {
		errs.Add(forms.NonField, msgBadChoiceData)
		return forms.NewChoiceFormSet(prefix, existing, extraRows(len(existing)))
	}
	return fs
}

// NewChoices handles GET and POST /surveys/:slug/question/choices.
func (h *Handler) NewChoices(c *gin.Context) {
	s, ok := surveys.LoadOwned(c, h.surveys, h.logger)
	if !ok {
		return
	}
	prefix, err := h.newQuestionPrefix(c, s.ID)
	if err != nil {
		h.logger.Error("question prefix", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	h.choiceArea(c, &editor{survey: s, prefix: prefix})
}

// Choices handles GET and POST /surveys/:slug/question/:id/choices.
func (h *Handler) Choices(c *gin.Context) {
	s, q, ok := h.load(c)
	if !ok {
		return
	}
	h.choiceArea(c, &editor{survey: s, question: q, prefix: ChoicePrefix(q.ID)})
}

// choiceArea re-renders the choice rows for the values currently in the
// editor. action=add appends a blank row; the minimum count is not enforced.
func (h *Handler) choiceArea(c *gin.Context, e *editor) {
	values := c.Request.URL.Query()
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err != nil {
			response.BadRequest(c, "invalid form")
			return
		}
		values = c.Request.PostForm
	}

	e.mc = forms.ResolveMultipleChoice(withPostedType(e.question, values.Get("question_type")), values)
	if e.mc {
		existing := e.existingChoices()
		if forms.HasManagement(values, e.prefix) {
			fs, err := forms.BindChoiceFormSet(values, e.prefix, existing)
			if err == nil {
				fs.SkipMinCheck = true
				fs.Validate(true)
				e.choices = fs
			}
		}
		if e.choices == nil {
			e.choices = forms.NewChoiceFormSet(e.prefix, existing, extraRows(len(existing)))
		}
		if values.Get("action") == "add" {
			e.choices.AddBlank()
		}
	}
	h.render.Render(c, http.StatusOK, "choice_area", e.data())
}

// Detail handles GET /surveys/:slug/question/:id.
func (h *Handler) Detail(c *gin.Context) {
	s, q, ok := h.load(c)
	if !ok {
		return
	}
	h.render.Render(c, http.StatusOK, "question_detail", gin.H{"Survey": s, "Question": q, "IsOwner": true})
}

// Delete handles POST and DELETE /surveys/:slug/question/:id/delete.
func (h *Handler) Delete(c *gin.Context) {
	s, q, ok := h.load(c)
	if !ok {
		return
	}
	err := h.store.Delete(c.Request.Context(), s.ID, q.ID)
	if errors.Is(err, database.ErrNotFound) {
		response.NotFoundText(c, msgQuestionNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete question", zap.String("question_id", q.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	h.logger.Info("question deleted", zap.String("question_id", q.ID.String()))
	if !response.IsPartial(c) {
		response.Redirect(c, web.SurveyURL(s.Slug, "detail"))
		return
	}
	c.Status(http.StatusOK)
}

// load resolves the owned survey and the :id question within it.
func (h *Handler) load(c *gin.Context) (*models.Survey, *models.Question, bool) {
	s, ok := surveys.LoadOwned(c, h.surveys, h.logger)
	if !ok {
		return nil, nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFoundText(c, msgQuestionNotFound)
		return nil, nil, false
	}
	q, err := h.store.Get(c.Request.Context(), s.ID, id)
	if errors.Is(err, database.ErrNotFound) {
		response.NotFoundText(c, msgQuestionNotFound)
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error("load question", zap.String("question_id", id.String()), zap.Error(err))
		response.InternalText(c)
		return nil, nil, false
	}
	return s, q, true
}

func prefixKey(surveyID uuid.UUID) string {
	return "question-prefix:" + surveyID.String()
}

// newQuestionPrefix returns the session's choice prefix for the create
// form of a survey, minting one on first use.
func (h *Handler) newQuestionPrefix(c *gin.Context, surveyID uuid.UUID) (string, error) {
	identity, _ := auth.CurrentIdentity(c)
	ctx := c.Request.Context()
	if p, err := h.sessions.Get(ctx, identity.SessionID, prefixKey(surveyID)); err != nil {
		return "", err
	} else if p != "" {
		return p, nil
	}
	token, err := utils.RandomToken(8)
	if err != nil {
		return "", err
	}
	prefix := newChoicePrefix(token)
	if err := h.sessions.Set(ctx, identity.SessionID, prefixKey(surveyID), prefix); err != nil {
		return "", err
	}
	return prefix, nil
}

func (h *Handler) clearQuestionPrefix(c *gin.Context, surveyID uuid.UUID) {
	identity, _ := auth.CurrentIdentity(c)
	if err := h.sessions.Delete(c.Request.Context(), identity.SessionID, prefixKey(surveyID)); err != nil {
		h.logger.Warn("clear question prefix", zap.Error(err))
	}
}
