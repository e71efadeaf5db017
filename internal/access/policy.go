// Package access holds the request authorization rules: which paths are
// public, and which method/path pairs need a privileged role.
package access

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/geocoder89/eventparser/internal/domain/user"
)

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

type Rule struct {
	Method string
	Path   *regexp.Regexp
	Role   string
}

type Policy struct {
	publicExact  map[string]struct{}
	publicPrefix []string
	rules        []Rule
}

// DefaultPolicy returns the rules the HTTP API is served with.
func DefaultPolicy() *Policy {
	eventID := `/events/\d+`

	return &Policy{
		publicExact: map[string]struct{}{
			"/health":        {},
			"/auth/login":    {},
			"/auth/register": {},
			"/openapi.json":  {},
		},
		publicPrefix: []string{"/docs"},
		rules: []Rule{
			{Method: http.MethodPost, Path: regexp.MustCompile(`^/events/create$`), Role: user.RoleAdmin},
			{Method: http.MethodPost, Path: regexp.MustCompile(`^/events/parse_image$`), Role: user.RoleAdmin},
			{Method: http.MethodPost, Path: regexp.MustCompile(`^` + eventID + `/image$`), Role: user.RoleAdmin},
			{Method: http.MethodPatch, Path: regexp.MustCompile(`^` + eventID + `$`), Role: user.RoleAdmin},
			{Method: http.MethodDelete, Path: regexp.MustCompile(`^` + eventID + `$`), Role: user.RoleAdmin},
		},
	}
}

// IsPublic reports whether path may be served without a token.
func (p *Policy) IsPublic(path string) bool {
	path = normalize(path)

	if _, ok := p.publicExact[path]; ok {
		return true
	}
	for _, prefix := range p.publicPrefix {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// RequiredRole returns the role needed for method+path, or "" when any
// authenticated identity is enough.
func (p *Policy) RequiredRole(method, path string) string {
	path = normalize(path)

	for _, r := range p.rules {
		if r.Method == method && r.Path.MatchString(path) {
			return r.Role
		}
	}
	return ""
}

// Allows reports whether id satisfies the role rule for method+path.
func (p *Policy) Allows(id Identity, method, path string) bool {
	required := p.RequiredRole(method, path)
	return required == "" || id.Role == required
}

func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
