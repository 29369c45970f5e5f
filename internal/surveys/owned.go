package surveys

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/response"
)

// MsgNotFound is the 404 body for missing or foreign surveys.
const MsgNotFound = "Survey not found."

// Finder looks surveys up by slug.
type Finder interface {
	GetBySlug(ctx context.Context, slug string) (*models.Survey, error)
}

// Load resolves the :slug path parameter. On failure it has already
// answered with a plain-text 404 or 500.
func Load(c *gin.Context, finder Finder, logger *zap.Logger) (*models.Survey, bool) {
	s, err := finder.GetBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, database.ErrNotFound) {
		response.NotFoundText(c, MsgNotFound)
		return nil, false
	}
	if err != nil {
		logger.Error("load survey", zap.String("slug", c.Param("slug")), zap.Error(err))
		response.InternalText(c)
		return nil, false
	}
	return s, true
}

// LoadOwned is Load restricted to the caller's own surveys; another
// user's survey is reported as not found.
func LoadOwned(c *gin.Context, finder Finder, logger *zap.Logger) (*models.Survey, bool) {
	s, ok := Load(c, finder, logger)
	if !ok {
		return nil, false
	}
	identity, ok := auth.CurrentIdentity(c)
	if !ok || !s.OwnedBy(identity.UserID) {
		response.NotFoundText(c, MsgNotFound)
		return nil, false
	}
	return s, true
}

// LoadOwnedJSON is LoadOwned for JSON routes, answering with the response envelope.
func LoadOwnedJSON(c *gin.Context, finder Finder, logger *zap.Logger) (*models.Survey, bool) {
	s, err := finder.GetBySlug(c.Request.Context(), c.Param("slug"))
	identity, authed := auth.CurrentIdentity(c)
	switch {
	case errors.Is(err, database.ErrNotFound), err == nil && (!authed || !s.OwnedBy(identity.UserID)):
		response.NotFound(c, "survey not found")
		return nil, false
	case err != nil:
		logger.Error("load survey", zap.String("slug", c.Param("slug")), zap.Error(err))
		response.Internal(c, "internal server error")
		return nil, false
	}
	return s, true
}
