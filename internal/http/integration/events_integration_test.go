package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/user"
)

func validCreateBody() map[string]any {
	return map[string]any{
		"title":      "Jazz Night",
		"date":       "20.09.2025",
		"time":       "19:00",
		"place":      "Blue Hall",
		"capacity":   50,
		"age_limit":  18,
		"event_type": "concert",
	}
}

func TestEvents_AdminCreates(t *testing.T) {
	app := setupTestApp(t)
	_, admin := app.createUser("root", "pass1234", user.RoleAdmin)

	rec := app.do(http.MethodPost, "/events/create", admin, validCreateBody())
	requireStatus(t, rec, http.StatusCreated)

	var e event.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.NotZero(t, e.ID)
	assert.Equal(t, "Jazz Night", e.Title)
	require.NotNil(t, e.Capacity)
	assert.Equal(t, 50, *e.Capacity)
}

func TestEvents_NonAdminCannotCreate(t *testing.T) {
	app := setupTestApp(t)
	_, bearer := app.createUser("alice", "pass1234", user.RoleUser)

	rec := app.do(http.MethodPost, "/events/create", bearer, validCreateBody())
	requireStatus(t, rec, http.StatusForbidden)
	assert.Equal(t, "forbidden", decodeError(t, rec).Error.Code)

	list, err := app.store.Events.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEvents_CreateValidatesFormats(t *testing.T) {
	app := setupTestApp(t)
	_, admin := app.createUser("root", "pass1234", user.RoleAdmin)

	body := validCreateBody()
	body["date"] = "2025-09-20"
	body["time"] = "7pm"

	rec := app.do(http.MethodPost, "/events/create", admin, body)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error.Code)
}

func TestEvents_PatchCapacityOnlyIsRejected(t *testing.T) {
	app := setupTestApp(t)
	_, admin := app.createUser("root", "pass1234", user.RoleAdmin)
	e := app.createEvent(intPtr(10))

	rec := app.do(http.MethodPatch, fmt.Sprintf("/events/%d", e.ID), admin, map[string]any{"capacity": 500})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error.Code)

	got, err := app.store.Events.GetByID(t.Context(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *got.Capacity)
}

func TestEvents_PatchAllowedFields(t *testing.T) {
	app := setupTestApp(t)
	_, admin := app.createUser("root", "pass1234", user.RoleAdmin)
	e := app.createEvent(intPtr(10))

	rec := app.do(http.MethodPatch, fmt.Sprintf("/events/%d", e.ID), admin, map[string]any{
		"place":    "Green Hall",
		"title":    nil,
		"capacity": 500,
	})
	requireStatus(t, rec, http.StatusOK)

	var resp struct {
		Message string      `json:"message"`
		Event   event.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Green Hall", resp.Event.Place)
	assert.Equal(t, "Jazz Night", resp.Event.Title, "null leaves the field unchanged")
	assert.Equal(t, 10, *resp.Event.Capacity)
}

func TestEvents_NonAdminCannotPatchOrDelete(t *testing.T) {
	app := setupTestApp(t)
	_, bearer := app.createUser("alice", "pass1234", user.RoleUser)
	e := app.createEvent(nil)
	path := fmt.Sprintf("/events/%d", e.ID)

	requireStatus(t, app.do(http.MethodPatch, path, bearer, map[string]any{"title": "x"}), http.StatusForbidden)
	requireStatus(t, app.do(http.MethodDelete, path, bearer, nil), http.StatusForbidden)
}

func TestEvents_DeleteCascades(t *testing.T) {
	app := setupTestApp(t)
	_, admin := app.createUser("root", "pass1234", user.RoleAdmin)
	alice, bearer := app.createUser("alice", "pass1234", user.RoleUser)
	e := app.createEvent(nil)
	path := fmt.Sprintf("/events/%d", e.ID)

	requireStatus(t, app.do(http.MethodPost, path+"/register", bearer, nil), http.StatusOK)
	requireStatus(t, app.do(http.MethodDelete, path, admin, nil), http.StatusOK)
	requireStatus(t, app.do(http.MethodGet, path, bearer, nil), http.StatusNotFound)

	mine, err := app.store.Events.ListForUser(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestEvents_ListIncludesParticipantsAndETag(t *testing.T) {
	app := setupTestApp(t)
	_, bearer := app.createUser("alice", "pass1234", user.RoleUser)
	e := app.createEvent(nil)

	requireStatus(t, app.do(http.MethodPost, fmt.Sprintf("/events/%d/register", e.ID), bearer, nil), http.StatusOK)

	rec := app.do(http.MethodGet, "/events", bearer, nil)
	requireStatus(t, rec, http.StatusOK)

	var list []event.WithParticipants
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].RegistrationCount)
	require.Len(t, list[0].Participants, 1)
	assert.Equal(t, "alice", list[0].Participants[0].Username)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", bearer)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	app.router.ServeHTTP(cached, req)
	requireStatus(t, cached, http.StatusNotModified)
}

func TestEvents_QRCode(t *testing.T) {
	app := setupTestApp(t)
	_, bearer := app.createUser("alice", "pass1234", user.RoleUser)
	e := app.createEvent(nil)

	rec := app.do(http.MethodGet, fmt.Sprintf("/events/%d/qrcode", e.ID), bearer, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])
}

func TestPublicRoutes(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/health", "/docs", "/docs/openapi.yaml", "/openapi.json"} {
		rec := app.do(http.MethodGet, path, "", nil)
		requireStatus(t, rec, http.StatusOK)
	}
}

func TestEvents_ConditionalReads(t *testing.T) {
	app := setupTestApp(t)
	_, bearer := app.createUser("alice", "pass1234", user.RoleUser)
	e := app.createEvent(intPtr(5))

	get := func(path, ifNoneMatch string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer)
		if ifNoneMatch != "" {
			req.Header.Set("If-None-Match", ifNoneMatch)
		}
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	qrPath := fmt.Sprintf("/events/%d/qrcode", e.ID)
	first := get(qrPath, "")
	requireStatus(t, first, http.StatusOK)
	etag := first.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`), "etag %q", etag)
	assert.Equal(t, "private, no-cache", first.Header().Get("Cache-Control"))

	cached := get(qrPath, `"stale", `+strings.TrimPrefix(etag, "W/"))
	requireStatus(t, cached, http.StatusNotModified)
	assert.Empty(t, cached.Body.Bytes())

	listPath := "/events"
	before := get(listPath, "").Header().Get("ETag")
	requireStatus(t, app.do(http.MethodPost, fmt.Sprintf("/events/%d/register", e.ID), bearer, nil), http.StatusOK)

	after := get(listPath, before)
	requireStatus(t, after, http.StatusOK)
	assert.NotEqual(t, before, after.Header().Get("ETag"), "a new participant changes the list validator")
}
