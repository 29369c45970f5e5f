package surveys

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/middleware"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/session"
	"github.com/survey-studio/backend/internal/web"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/slug"
)

type stubStore struct {
	surveys map[string]*models.Survey
}

func newStubStore() *stubStore {
	return &stubStore{surveys: map[string]*models.Survey{}}
}

func (s *stubStore) Create(ctx context.Context, sv *models.Survey) error {
	sl, err := slug.Unique(ctx, sv.Title, func(_ context.Context, prefix string) (bool, error) {
		for k := range s.surveys {
			if strings.HasPrefix(strings.ToLower(k), strings.ToLower(prefix)) {
				return true, nil
			}
		}
		return false, nil
	}, ReservedSlugs...)
	if err != nil {
		return err
	}
	sv.ID = uuid.New()
	sv.Slug = sl
	cp := *sv
	s.surveys[sl] = &cp
	return nil
}

func (s *stubStore) GetBySlug(_ context.Context, sl string) (*models.Survey, error) {
	if sv, ok := s.surveys[sl]; ok {
		cp := *sv
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *stubStore) ListByOwner(_ context.Context, userID uuid.UUID) ([]models.Survey, error) {
	var out []models.Survey
	for _, sv := range s.surveys {
		if sv.UserID == userID {
			out = append(out, *sv)
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(_ context.Context) ([]models.SurveyListing, error) {
	var out []models.SurveyListing
	for _, sv := range s.surveys {
		out = append(out, models.SurveyListing{ID: sv.ID, Title: sv.Title, Slug: sv.Slug, OwnerID: sv.UserID})
	}
	return out, nil
}

func (s *stubStore) UpdateDescription(_ context.Context, id uuid.UUID, d string) error {
	for _, sv := range s.surveys {
		if sv.ID == id {
			sv.Description = d
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) error {
	for k, sv := range s.surveys {
		if sv.ID == id {
			delete(s.surveys, k)
			return nil
		}
	}
	return database.ErrNotFound
}

type noQuestions struct{}

func (noQuestions) ListBySurvey(context.Context, uuid.UUID) ([]models.Question, error) {
	return nil, nil
}

type fixture struct {
	router *gin.Engine
	store  *stubStore
	tokens *auth.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{store: newStubStore(), tokens: auth.NewJWTService("secret", 1)}
	sessions := session.NewMemoryStore()
	renderer, err := web.NewRenderer(sessions, nil)
	require.NoError(t, err)
	h := NewHandler(f.store, noQuestions{}, sessions, renderer, nil)

	r := gin.New()
	r.Use(middleware.Authenticate(f.tokens, nil, nil))
	r.GET("/", h.Home)
	s := r.Group("/surveys", middleware.RequireLogin())
	s.Any("/create/title", h.Create)
	s.GET("/:slug/detail", h.Detail)
	s.Any("/:slug/edit", h.Edit)
	s.Any("/:slug/delete", h.Delete)
	r.GET("/admin/surveys", middleware.RequireAuth(), middleware.RequireRole(string(models.RoleAdmin)), h.AdminList)
	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, role models.Role) (string, uuid.UUID) {
	t.Helper()
	u := &models.User{ID: uuid.New(), Username: "owner", Role: role}
	tok, _, err := f.tokens.Generate(u)
	require.NoError(t, err)
	return tok, u.ID
}

func (f *fixture) do(method, path string, form url.Values, tok string, htmx bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreate_SlugCollision(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.token(t, models.RoleUser)

	w := f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"My Survey!"}}, tok, false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/surveys/my-survey/detail", w.Header().Get("Location"))

	w = f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"My Survey!"}}, tok, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/surveys/my-survey-1/detail", w.Header().Get("HX-Redirect"))
}

func TestCreate_ReservedSlug(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.token(t, models.RoleUser)
	w := f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"Create"}}, tok, false)
	assert.Equal(t, "/surveys/create-1/detail", w.Header().Get("Location"))
}

func TestCreate_ValidationStatus(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.token(t, models.RoleUser)

	w := f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"  "}}, tok, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {strings.Repeat("x", 256)}}, tok, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "at most 255 characters")
	assert.Empty(t, f.store.surveys)
}

func TestDetail_ForeignSurveyIsNotFound(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.token(t, models.RoleUser)
	other, _ := f.token(t, models.RoleUser)
	f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"Mine"}}, owner, false)

	w := f.do(http.MethodGet, "/surveys/mine/detail", nil, owner, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mine")

	w = f.do(http.MethodGet, "/surveys/mine/detail", nil, other, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgNotFound, w.Body.String())

	w = f.do(http.MethodGet, "/surveys/missing/detail", nil, owner, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditAndDelete(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.token(t, models.RoleUser)
	f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"Team lunch"}}, tok, false)

	w := f.do(http.MethodPost, "/surveys/team-lunch/edit", url.Values{"description": {" Where to eat "}}, tok, false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "Where to eat", f.store.surveys["team-lunch"].Description)

	w = f.do(http.MethodGet, "/surveys/team-lunch/delete", nil, tok, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/surveys/team-lunch/delete", url.Values{}, tok, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", w.Header().Get("HX-Redirect"))
	assert.Empty(t, f.store.surveys)
}

func TestAdminList(t *testing.T) {
	f := newFixture(t)
	user, _ := f.token(t, models.RoleUser)
	admin, _ := f.token(t, models.RoleAdmin)
	f.do(http.MethodPost, "/surveys/create/title", url.Values{"title": {"One"}}, user, false)

	w := f.do(http.MethodGet, "/admin/surveys", nil, user, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/admin/surveys", nil, admin, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"one"`)
}
