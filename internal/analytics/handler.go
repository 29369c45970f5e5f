package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/surveys"
	"github.com/survey-studio/backend/pkg/response"
)

// CountSource aggregates answers.
type CountSource interface {
	Counts(ctx context.Context, surveyID uuid.UUID) (Counts, error)
}

// QuestionLister loads a survey's questions with their choices.
type QuestionLister interface {
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error)
}

// Handler handles GET /surveys/:slug/results.
type Handler struct {
	counts    CountSource
	surveys   surveys.Finder
	questions QuestionLister
	logger    *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(counts CountSource, finder surveys.Finder, questions QuestionLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{counts: counts, surveys: finder, questions: questions, logger: logger}
}

// Results handles GET /surveys/:slug/results. Owner only.
func (h *Handler) Results(c *gin.Context) {
	s, ok := surveys.LoadOwnedJSON(c, h.surveys, h.logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	questions, err := h.questions.ListBySurvey(ctx, s.ID)
	if err != nil {
		h.logger.Error("list questions", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load questions")
		return
	}
	counts, err := h.counts.Counts(ctx, s.ID)
	if err != nil {
		h.logger.Error("count answers", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load results")
		return
	}
	response.OK(c, Summarize(s, questions, counts))
}
