package access_test

import (
	"net/http"
	"testing"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_IsPublic(t *testing.T) {
	p := access.DefaultPolicy()

	public := []string{"/health", "/auth/login", "/auth/register", "/auth/login/", "/docs", "/docs/openapi.yaml", "/openapi.json"}
	for _, path := range public {
		assert.True(t, p.IsPublic(path), path)
	}

	protected := []string{"/", "/events", "/events/1", "/users/me", "/auth", "/healthz", "/docsx", "/auth/login-other"}
	for _, path := range protected {
		assert.False(t, p.IsPublic(path), path)
	}
}

func TestPolicy_RequiredRole(t *testing.T) {
	p := access.DefaultPolicy()

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/events/create", "admin"},
		{http.MethodPost, "/events/parse_image", "admin"},
		{http.MethodPost, "/events/7/image", "admin"},
		{http.MethodPatch, "/events/12", "admin"},
		{http.MethodDelete, "/events/12", "admin"},
		{http.MethodDelete, "/events/12/", "admin"},
		{http.MethodGet, "/events/12", ""},
		{http.MethodGet, "/events", ""},
		{http.MethodPost, "/events/12/register", ""},
		{http.MethodDelete, "/events/12/unregister", ""},
		{http.MethodGet, "/events/12/qrcode", ""},
		{http.MethodDelete, "/users/me", ""},
		{http.MethodPatch, "/users/me/password", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.RequiredRole(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestPolicy_Allows(t *testing.T) {
	p := access.DefaultPolicy()

	admin := access.Identity{UserID: 1, Username: "root", Role: "admin"}
	member := access.Identity{UserID: 2, Username: "bob", Role: "user"}

	assert.True(t, p.Allows(admin, http.MethodPost, "/events/create"))
	assert.False(t, p.Allows(member, http.MethodPost, "/events/create"))
	assert.True(t, p.Allows(member, http.MethodPost, "/events/3/register"))
	assert.True(t, admin.IsAdmin())
	assert.False(t, member.IsAdmin())
}
