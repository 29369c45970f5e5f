package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRedirect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		htmx         bool
		wantStatus   int
		wantLocation string
		wantHX       string
	}{
		{name: "full page uses see other", htmx: false, wantStatus: http.StatusSeeOther, wantLocation: "/home"},
		{name: "htmx uses header", htmx: true, wantStatus: http.StatusOK, wantHX: "/home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)
			if tt.htmx {
				c.Request.Header.Set(HeaderHXRequest, "true")
			}

			Redirect(c, "/home")
			c.Writer.WriteHeaderNow()

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, tt.wantHX, w.Header().Get(HeaderHXRedirect))
		})
	}
}
