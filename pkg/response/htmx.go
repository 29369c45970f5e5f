package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderHXRequest is set by htmx on every request it issues.
	HeaderHXRequest = "HX-Request"
	// HeaderHXRedirect asks htmx to perform a full client-side navigation.
	HeaderHXRedirect = "HX-Redirect"
	// HeaderHXRetarget overrides the element the response is swapped into.
	HeaderHXRetarget = "HX-Retarget"
	// HeaderHXReswap overrides the swap strategy.
	HeaderHXReswap = "HX-Reswap"
)

// IsPartial reports whether the request came from htmx and expects an HTML fragment.
func IsPartial(c *gin.Context) bool {
	return c.GetHeader(HeaderHXRequest) == "true"
}

// Redirect sends the client to location: via HX-Redirect for htmx requests,
// 303 See Other otherwise.
func Redirect(c *gin.Context, location string) {
	if IsPartial(c) {
		c.Header(HeaderHXRedirect, location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

// NotFoundText sends a plain-text 404.
func NotFoundText(c *gin.Context, msg string) {
	c.String(http.StatusNotFound, msg)
}

// InternalText sends a plain-text 500.
func InternalText(c *gin.Context) {
	c.String(http.StatusInternalServerError, "internal server error")
}

// Retarget redirects the swap of an htmx response to selector using swap.
func Retarget(c *gin.Context, selector, swap string) {
	c.Header(HeaderHXRetarget, selector)
	if swap != "" {
		c.Header(HeaderHXReswap, swap)
	}
}
