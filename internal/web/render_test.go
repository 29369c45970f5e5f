package web

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
	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
)

type flashStub map[string][]string

func (f flashStub) PopFlashes(_ context.Context, sid string) ([]string, error) {
	out := f[sid]
	delete(f, sid)
	return out, nil
}

func serve(t *testing.T, r *Renderer, partial bool, page string, data gin.H, identity *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/x", func(c *gin.Context) {
		if identity != nil {
			auth.SetIdentity(c, identity)
		}
		r.Render(c, http.StatusOK, page, data)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if partial {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRenderer_PartialOmitsLayout(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)

	w := serve(t, r, false, "logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, w.Body.String(), "Are you sure you want to log out?")

	w = serve(t, r, true, "logout", nil, nil)
	assert.NotContains(t, w.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, w.Body.String(), "Are you sure you want to log out?")
}

func TestRenderer_Flashes(t *testing.T) {
	claims := &auth.Claims{UserID: uuid.New(), Username: "carol"}
	claims.ID = "sid-1"
	flashes := flashStub{"sid-1": {"Survey deleted."}}
	r, err := NewRenderer(flashes, nil)
	require.NoError(t, err)

	w := serve(t, r, false, "home", gin.H{"Surveys": []models.Survey{}}, claims)
	assert.Contains(t, w.Body.String(), "Survey deleted.")
	assert.Contains(t, w.Body.String(), "carol")
	assert.Empty(t, flashes)
}

func TestRenderer_ChoiceArea(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)

	fs := forms.NewChoiceFormSet("choices-abc", []models.Choice{{ID: uuid.New(), Title: "Red"}}, 1)
	fs.NonFormErrors = []string{forms.MsgTooFewChoices}
	data := gin.H{
		"AreaID":         "choices-area",
		"Choices":        fs,
		"MultipleChoice": true,
		"ChoicesURL":     "/surveys/s/question/choices",
	}
	w := serve(t, r, true, "choice_area", data, nil)
	body := w.Body.String()
	assert.Contains(t, body, `name="choices-abc-TOTAL_FORMS" value="2"`)
	assert.Contains(t, body, `name="choices-abc-INITIAL_FORMS" value="1"`)
	assert.Contains(t, body, `name="choices-abc-0-title" value="Red"`)
	assert.Contains(t, body, `name="choices-abc-0-DELETE"`)
	assert.Contains(t, body, "A multiple choice question needs at least 2 choices.")

	data["MultipleChoice"] = false
	w = serve(t, r, true, "choice_area", data, nil)
	assert.NotContains(t, w.Body.String(), "TOTAL_FORMS")
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)
	w := serve(t, r, false, "nope", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
