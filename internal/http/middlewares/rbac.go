package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/access"
)

// authorize aborts with 403 when the policy requires a role the identity lacks.
func (g *AccessGuard) authorize(c *gin.Context, id access.Identity) bool {
	if g.policy.Allows(id, c.Request.Method, c.Request.URL.Path) {
		return true
	}

	g.log.InfoContext(c.Request.Context(), "access denied",
		"user", id.Username,
		"role", id.Role,
		"required", g.policy.RequiredRole(c.Request.Method, c.Request.URL.Path),
	)
	abortError(c, http.StatusForbidden, "forbidden", "Insufficient privileges")
	return false
}

// WithIdentity hands the authenticated identity to h as an explicit argument.
func WithIdentity(h func(*gin.Context, access.Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "unauthenticated", invalidCredentials)
			return
		}
		h(c, id)
	}
}
