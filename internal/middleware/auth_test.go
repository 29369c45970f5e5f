package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/models"
)

type revokedSet map[string]bool

func (r revokedSet) Revoked(_ context.Context, sid string) (bool, error) {
	return r[sid], nil
}

func newRouter(tokens *auth.JWTService, revoked revokedSet) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(tokens, revoked, nil))
	r.GET("/page", RequireLogin(), func(c *gin.Context) {
		id, _ := auth.CurrentIdentity(c)
		c.String(http.StatusOK, id.Username)
	})
	r.GET("/api", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", RequireAuth(), RequireRole(string(models.RoleAdmin)), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func token(t *testing.T, svc *auth.JWTService, role models.Role) (string, *auth.Claims) {
	t.Helper()
	s, claims, err := svc.Generate(&models.User{ID: uuid.New(), Username: "bob", Role: role})
	require.NoError(t, err)
	return s, claims
}

func TestRequireLogin_RedirectsAnonymous(t *testing.T) {
	r := newRouter(auth.NewJWTService("s", 1), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/accounts/login?next=%2Fpage", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("HX-Request", "true")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/accounts/login?next=%2Fpage", w.Header().Get("HX-Redirect"))
}

func TestAuthenticate_CookieAndBearer(t *testing.T) {
	svc := auth.NewJWTService("s", 1)
	r := newRouter(svc, revokedSet{})
	tok, _ := token(t, svc, models.RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthenticate_RevokedSessionIsAnonymous(t *testing.T) {
	svc := auth.NewJWTService("s", 1)
	tok, claims := token(t, svc, models.RoleUser)
	r := newRouter(svc, revokedSet{claims.SessionID(): true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	svc := auth.NewJWTService("s", 1)
	r := newRouter(svc, nil)

	for role, want := range map[models.Role]int{
		models.RoleUser:  http.StatusForbidden,
		models.RoleAdmin: http.StatusNoContent,
	} {
		tok, _ := token(t, svc, role)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://a.test"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://a.test")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://a.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
