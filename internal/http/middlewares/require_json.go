package middlewares

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects write requests whose body is not JSON. Routes listed in
// formRoutes (gin full paths) also accept urlencoded and multipart bodies.
func RequireJSON(formRoutes ...string) gin.HandlerFunc {
	allowForm := make(map[string]struct{}, len(formRoutes))
	for _, r := range formRoutes {
		allowForm[r] = struct{}{}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		mt, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if mt == "application/json" {
			c.Next()
			return
		}

		if _, ok := allowForm[c.FullPath()]; ok &&
			(mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data") {
			c.Next()
			return
		}

		abortError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
	}
}
