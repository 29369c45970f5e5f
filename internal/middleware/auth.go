package middleware

import (
	"context"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/pkg/response"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "survey_session"

// LoginPath is where anonymous users are sent by RequireLogin.
const LoginPath = "/accounts/login"

// TokenValidator validates session tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RevocationChecker reports revoked sessions.
type RevocationChecker interface {
	Revoked(ctx context.Context, sessionID string) (bool, error)
}

// Authenticate resolves the session token from the session cookie or a
// Bearer Authorization header and stores the caller identity on the context.
// Requests without a valid token continue anonymously.
func Authenticate(tokens TokenValidator, revoked RevocationChecker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			c.Next()
			return
		}
		claims, err := tokens.Validate(raw)
		if err != nil {
			c.Next()
			return
		}
		if revoked != nil {
			gone, err := revoked.Revoked(c.Request.Context(), claims.SessionID())
			if err != nil {
				logger.Error("check session revocation", zap.String("session_id", claims.SessionID()), zap.Error(err))
				c.Next()
				return
			}
			if gone {
				c.Next()
				return
			}
		}
		auth.SetIdentity(c, claims)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireLogin sends anonymous callers of HTML routes to the login page,
// through HX-Redirect for htmx requests and 303 otherwise.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.CurrentIdentity(c); ok {
			c.Next()
			return
		}
		response.Redirect(c, LoginURL(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// LoginURL returns the login page URL that returns to next after login.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// RequireAuth rejects anonymous callers of JSON routes with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.CurrentIdentity(c); !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}
