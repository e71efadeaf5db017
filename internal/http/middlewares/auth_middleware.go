package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/actorctx"
	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/geocoder89/eventparser/internal/domain/user"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

// AccessGuard enforces an access.Policy in front of every route.
type AccessGuard struct {
	policy *access.Policy
	jwt    TokenVerifier
	users  UserResolver
	log    *slog.Logger
}

func NewAccessGuard(policy *access.Policy, jwt TokenVerifier, users UserResolver, log *slog.Logger) *AccessGuard {
	if log == nil {
		log = slog.Default()
	}
	return &AccessGuard{policy: policy, jwt: jwt, users: users, log: log}
}

const invalidCredentials = "Could not validate credentials"

// Enforce authenticates the bearer token, resolves the stored user and checks
// the route's role requirement. Rejected requests never reach a handler.
func (g *AccessGuard) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if c.Request.Method == http.MethodOptions || g.policy.IsPublic(path) {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			abortError(c, http.StatusUnauthorized, "unauthenticated", "Missing or invalid Authorization header")
			return
		}

		claims, err := g.jwt.VerifyAccessToken(raw)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			msg := invalidCredentials
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Access token expired"
			}
			abortError(c, http.StatusUnauthorized, "unauthenticated", msg)
			return
		}

		u, err := g.users.GetByUsername(c.Request.Context(), claims.Subject)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				g.log.ErrorContext(c.Request.Context(), "resolve token subject", "err", err)
				abortError(c, http.StatusInternalServerError, "internal_error", "Failed to resolve identity")
				return
			}
			c.Header("WWW-Authenticate", "Bearer")
			abortError(c, http.StatusUnauthorized, "unauthenticated", invalidCredentials)
			return
		}

		id := access.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
		if !g.authorize(c, id) {
			return
		}

		c.Set(CtxIdentity, id)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// IdentityFromContext returns the identity set by AccessGuard.
func IdentityFromContext(c *gin.Context) (access.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return access.Identity{}, false
	}
	id, ok := v.(access.Identity)
	return id, ok
}
