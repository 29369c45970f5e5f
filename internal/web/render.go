// Package web renders the HTML pages and htmx fragments of the site from
// templates embedded in the binary.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/response"
)

//go:embed templates
var templateFS embed.FS

// FlashSource pops the flash messages queued for a session.
type FlashSource interface {
	PopFlashes(ctx context.Context, sid string) ([]string, error)
}

// Renderer executes page templates. A page defines "content"; full page
// requests wrap it in "layout", htmx requests get the fragment alone.
type Renderer struct {
	pages   map[string]*template.Template
	flashes FlashSource
	logger  *zap.Logger
}

// NewRenderer parses the embedded templates.
func NewRenderer(flashes FlashSource, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := template.New("layout.html").Funcs(funcMap()).ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	return &Renderer{pages: pages, flashes: flashes, logger: logger}, nil
}

// Render writes page with status. data may be nil.
func (r *Renderer) Render(c *gin.Context, status int, page string, data gin.H) {
	t, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown template", zap.String("page", page))
		response.InternalText(c)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	partial := response.IsPartial(c)
	data["Path"] = c.Request.URL.Path
	if identity, ok := auth.CurrentIdentity(c); ok {
		data["CurrentUser"] = identity
		if !partial && r.flashes != nil && identity.SessionID != "" {
			flashes, err := r.flashes.PopFlashes(c.Request.Context(), identity.SessionID)
			if err != nil {
				r.logger.Warn("pop flashes", zap.Error(err))
			}
			data["Flashes"] = flashes
		}
	}

	name := "layout"
	if partial {
		name = "content"
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("render template", zap.String("page", page), zap.Error(err))
		response.InternalText(c)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// FormStatus is the status for a form re-rendered with errors: 422 for htmx
// so the client swaps in the errors, 200 for full pages.
func FormStatus(c *gin.Context) int {
	if response.IsPartial(c) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":          dict,
		"fieldErrors":   fieldErrors,
		"questionTypes": func() []models.QuestionType { return models.QuestionTypes },
		"surveyURL":     SurveyURL,
		"questionURL":   QuestionURL,
		"fieldName":     forms.FieldName,
		"deleteField":   func() string { return forms.DeleteField },
	}
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

func fieldErrors(errs any, field string) []string {
	if e, ok := errs.(forms.Errors); ok {
		return e.Get(field)
	}
	return nil
}
