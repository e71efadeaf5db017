package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/actorctx"
	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/geocoder89/eventparser/internal/domain/user"
)

type fakeUsers struct {
	getByUsernameFn func(ctx context.Context, username string) (user.User, error)
}

func (f fakeUsers) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return f.getByUsernameFn(ctx, username)
}

func knownUsers(users ...user.User) fakeUsers {
	return fakeUsers{getByUsernameFn: func(_ context.Context, username string) (user.User, error) {
		for _, u := range users {
			if u.Username == username {
				return u, nil
			}
		}
		return user.User{}, user.ErrNotFound
	}}
}

func newGuardedRouter(t *testing.T, jwt *auth.Manager, users UserResolver) (*gin.Engine, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	calls := 0
	r := gin.New()
	r.Use(RequestID())
	r.Use(NewAccessGuard(access.DefaultPolicy(), jwt, users, nil).Enforce())

	handler := WithIdentity(func(c *gin.Context, id access.Identity) {
		calls++
		fromCtx, ok := actorctx.IdentityFrom(c.Request.Context())
		if !ok || fromCtx != id {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id.Username})
	})

	r.GET("/events", handler)
	r.POST("/events/create", handler)
	r.PATCH("/events/:id", handler)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r, &calls
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}

func TestAccessGuard(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Hour)
	expiredJWT := auth.NewManager("test-secret", -time.Minute)
	users := knownUsers(
		user.User{ID: 1, Username: "alice", Role: user.RoleUser},
		user.User{ID: 2, Username: "root", Role: user.RoleAdmin},
	)

	token := func(m *auth.Manager, username, role string) string {
		tok, err := m.GenerateAccessToken(username, role)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name       string
		method     string
		path       string
		authHeader string
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{name: "public health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "missing token", method: http.MethodGet, path: "/events", wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "wrong scheme", method: http.MethodGet, path: "/events", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "garbage token", method: http.MethodGet, path: "/events", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "expired token", method: http.MethodGet, path: "/events", authHeader: token(expiredJWT, "alice", ""), wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "unknown subject", method: http.MethodGet, path: "/events", authHeader: token(jwt, "ghost", ""), wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "user reads events", method: http.MethodGet, path: "/events", authHeader: token(jwt, "alice", ""), wantStatus: http.StatusOK, wantCalled: true},
		{name: "user cannot create", method: http.MethodPost, path: "/events/create", authHeader: token(jwt, "alice", ""), wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "role claim is not trusted", method: http.MethodPost, path: "/events/create", authHeader: token(jwt, "alice", user.RoleAdmin), wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "user cannot patch", method: http.MethodPatch, path: "/events/7", authHeader: token(jwt, "alice", ""), wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "admin creates", method: http.MethodPost, path: "/events/create", authHeader: token(jwt, "root", ""), wantStatus: http.StatusOK, wantCalled: true},
		{name: "admin patches", method: http.MethodPatch, path: "/events/7", authHeader: token(jwt, "root", ""), wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, calls := newGuardedRouter(t, jwt, users)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec.Body.Bytes()))
			}
			assert.Equal(t, tt.wantCalled, *calls == 1)
		})
	}
}
