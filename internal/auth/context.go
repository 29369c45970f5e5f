package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/survey-studio/backend/internal/models"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUsername is the key for the username in gin context.
	ContextUsername = "username"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextSessionID is the key for the session id in gin context.
	ContextSessionID = "session_id"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    uuid.UUID
	Username  string
	Role      models.Role
	SessionID string
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// SetIdentity stores the claims of a validated token on c.
func SetIdentity(c *gin.Context, claims *Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextUserRole, claims.Role)
	c.Set(ContextSessionID, claims.SessionID())
}

// CurrentIdentity returns the caller stored by SetIdentity.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		UserID:    id,
		Username:  c.GetString(ContextUsername),
		Role:      models.Role(c.GetString(ContextUserRole)),
		SessionID: c.GetString(ContextSessionID),
	}, true
}
