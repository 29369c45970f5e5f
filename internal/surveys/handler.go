package surveys

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/web"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/response"
)

// Store is the survey persistence used by Handler.
type Store interface {
	Finder
	Create(ctx context.Context, s *models.Survey) error
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Survey, error)
	ListAll(ctx context.Context) ([]models.SurveyListing, error)
	UpdateDescription(ctx context.Context, id uuid.UUID, description string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionLister loads a survey's questions with their choices.
type QuestionLister interface {
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error)
}

// Flasher queues flash messages.
type Flasher interface {
	AddFlash(ctx context.Context, sid, msg string) error
}

// Handler serves survey pages.
type Handler struct {
	store     Store
	questions QuestionLister
	flashes   Flasher
	render    *web.Renderer
	logger    *zap.Logger
}

// NewHandler creates a survey handler.
func NewHandler(store Store, questions QuestionLister, flashes Flasher, render *web.Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, questions: questions, flashes: flashes, render: render, logger: logger}
}

// Home handles GET /.
func (h *Handler) Home(c *gin.Context) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		h.render.Render(c, http.StatusOK, "home", nil)
		return
	}
	list, err := h.store.ListByOwner(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("list surveys", zap.String("user_id", identity.UserID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	h.render.Render(c, http.StatusOK, "home", gin.H{"Surveys": list})
}

// Create handles GET and POST /surveys/create/title.
func (h *Handler) Create(c *gin.Context) {
	var form TitleForm
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "survey_create", gin.H{"Form": form, "Errors": forms.Errors{}})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	errs := forms.Decode(c.Request.PostForm, &form)
	if errs.Any() {
		h.render.Render(c, web.FormStatus(c), "survey_create", gin.H{"Form": form, "Errors": errs})
		return
	}

	identity, _ := auth.CurrentIdentity(c)
	s := &models.Survey{UserID: identity.UserID, Title: form.Title}
	if err := h.store.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create survey", zap.String("user_id", identity.UserID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	h.logger.Info("survey created", zap.String("survey_id", s.ID.String()), zap.String("slug", s.Slug))
	h.flash(c, identity, "Survey created.")
	response.Redirect(c, web.SurveyURL(s.Slug, "detail"))
}

// Detail handles GET /surveys/:slug/detail.
func (h *Handler) Detail(c *gin.Context) {
	s, ok := LoadOwned(c, h.store, h.logger)
	if !ok {
		return
	}
	questions, err := h.questions.ListBySurvey(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("list questions", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.InternalText(c)
		return
	}
	s.Questions = questions
	h.render.Render(c, http.StatusOK, "survey_detail", gin.H{"Survey": s, "IsOwner": true})
}

// Edit handles GET and POST /surveys/:slug/edit.
func (h *Handler) Edit(c *gin.Context) {
	s, ok := LoadOwned(c, h.store, h.logger)
	if !ok {
		return
	}
	form := DescriptionForm{Description: s.Description}
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "survey_edit", gin.H{"Survey": s, "Form": form, "Errors": forms.Errors{}})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	errs := forms.Decode(c.Request.PostForm, &form)
	if errs.Any() {
		h.render.Render(c, web.FormStatus(c), "survey_edit", gin.H{"Survey": s, "Form": form, "Errors": errs})
		return
	}
	if err := h.store.UpdateDescription(c.Request.Context(), s.ID, form.Description); err != nil {
		h.storeError(c, "update survey", s.ID, err)
		return
	}
	response.Redirect(c, web.SurveyURL(s.Slug, "detail"))
}

// Delete handles GET (confirmation) and POST /surveys/:slug/delete.
func (h *Handler) Delete(c *gin.Context) {
	s, ok := LoadOwned(c, h.store, h.logger)
	if !ok {
		return
	}
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodDelete {
		h.render.Render(c, http.StatusOK, "survey_delete", gin.H{"Survey": s})
		return
	}
	if err := h.store.Delete(c.Request.Context(), s.ID); err != nil {
		h.storeError(c, "delete survey", s.ID, err)
		return
	}
	identity, _ := auth.CurrentIdentity(c)
	h.logger.Info("survey deleted", zap.String("survey_id", s.ID.String()))
	h.flash(c, identity, "Survey deleted.")
	response.Redirect(c, web.HomeURL)
}

// AdminList handles GET /admin/surveys.
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list all surveys", zap.Error(err))
		response.Internal(c, "failed to list surveys")
		return
	}
	if list == nil {
		list = []models.SurveyListing{}
	}
	response.OK(c, list)
}

func (h *Handler) flash(c *gin.Context, identity auth.Identity, msg string) {
	if h.flashes == nil || identity.SessionID == "" {
		return
	}
	if err := h.flashes.AddFlash(c.Request.Context(), identity.SessionID, msg); err != nil {
		h.logger.Warn("add flash", zap.Error(err))
	}
}

func (h *Handler) storeError(c *gin.Context, op string, id uuid.UUID, err error) {
	if errors.Is(err, database.ErrNotFound) {
		response.NotFoundText(c, MsgNotFound)
		return
	}
	h.logger.Error(op, zap.String("survey_id", id.String()), zap.Error(err))
	response.InternalText(c)
}
