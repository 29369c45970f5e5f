package exports

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/surveys"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/queue"
	"github.com/survey-studio/backend/pkg/response"
)

// Store persists export records.
type Store interface {
	Create(ctx context.Context, surveyID, requestedBy uuid.UUID) (*models.Export, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Export, error)
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// Enqueuer hands export jobs to the worker.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// Signer produces download URLs for uploaded exports.
type Signer interface {
	DownloadURL(ctx context.Context, key string) (string, error)
}

// View is an export with its download URL once completed.
type View struct {
	*models.Export
	DownloadURL string `json:"download_url,omitempty"`
}

// Handler serves export endpoints.
type Handler struct {
	store   Store
	surveys surveys.Finder
	jobs    Enqueuer
	signer  Signer
	logger  *zap.Logger
}

// NewHandler creates an export handler. A nil signer disables exports.
func NewHandler(store Store, finder surveys.Finder, jobs Enqueuer, signer Signer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, surveys: finder, jobs: jobs, signer: signer, logger: logger}
}

func (h *Handler) enabled() bool {
	return h.signer != nil && h.jobs != nil
}

// Create handles POST /surveys/:slug/exports.
func (h *Handler) Create(c *gin.Context) {
	if !h.enabled() {
		response.ServiceUnavailable(c, "exports are not configured")
		return
	}
	s, ok := surveys.LoadOwnedJSON(c, h.surveys, h.logger)
	if !ok {
		return
	}
	identity, _ := auth.CurrentIdentity(c)
	ctx := c.Request.Context()
	export, err := h.store.Create(ctx, s.ID, identity.UserID)
	if err != nil {
		h.logger.Error("create export", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.Internal(c, "failed to create export")
		return
	}
	if err := h.jobs.EnqueueExport(ctx, queue.ExportPayload{ExportID: export.ID, SurveyID: s.ID}); err != nil {
		h.logger.Error("enqueue export", zap.String("export_id", export.ID.String()), zap.Error(err))
		if mErr := h.store.MarkFailed(ctx, export.ID, "could not be queued"); mErr != nil {
			h.logger.Error("mark export failed", zap.String("export_id", export.ID.String()), zap.Error(mErr))
		}
		response.Internal(c, "failed to queue export")
		return
	}
	h.logger.Info("export queued", zap.String("export_id", export.ID.String()), zap.String("survey_id", s.ID.String()))
	response.Accepted(c, View{Export: export})
}

// Get handles GET /exports/:id. Exports of other users' surveys are not found.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	identity, _ := auth.CurrentIdentity(c)
	ctx := c.Request.Context()
	export, err := h.store.GetOwned(ctx, id, identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		response.NotFound(c, "export not found")
		return
	}
	if err != nil {
		h.logger.Error("get export", zap.String("export_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load export")
		return
	}
	view := View{Export: export}
	if export.Status == models.ExportStatusCompleted && h.signer != nil {
		url, err := h.signer.DownloadURL(ctx, export.S3Key)
		if err != nil {
			h.logger.Error("presign export", zap.String("export_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to sign download url")
			return
		}
		view.DownloadURL = url
	}
	response.OK(c, view)
}
