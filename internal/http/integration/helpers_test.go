package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/user"
	apphttp "github.com/geocoder89/eventparser/internal/http"
	"github.com/geocoder89/eventparser/internal/http/handlers"
	"github.com/geocoder89/eventparser/internal/objectstore"
	"github.com/geocoder89/eventparser/internal/repo/memory"
	"github.com/geocoder89/eventparser/internal/security"
)

const testSecret = "test-secret-key"

type apiErrorResponse struct {
	Error struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"requestId"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	jwt    *auth.Manager
}

type appOption func(*apphttp.Deps)

func withParser(p handlers.ImageParser) appOption {
	return func(d *apphttp.Deps) { d.Parser = p }
}

func withUploader(u objectstore.Uploader) appOption {
	return func(d *apphttp.Deps) { d.Uploader = u }
}

func withAuthRateLimit(n int) appOption {
	return func(d *apphttp.Deps) { d.AuthRateLimit = n }
}

func setupTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	jwt := auth.NewManager(testSecret, time.Hour)

	deps := apphttp.Deps{
		Log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Env:            "test",
		ServiceName:    "eventparser-test",
		JWT:            jwt,
		Users:          store.Users,
		Events:         store.Events,
		Ledger:         store.Registrations,
		AuthRateLimit:  1000,
		AuthRateWindow: time.Minute,
		MaxUploadBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testApp{t: t, router: apphttp.NewRouter(deps), store: store, jwt: jwt}
}

// createUser stores a user directly and returns a bearer header for it.
func (a *testApp) createUser(username, password, role string) (user.User, string) {
	a.t.Helper()

	hash, err := security.HashPassword(password)
	require.NoError(a.t, err)

	u, err := a.store.Users.Create(context.Background(), username, hash, role)
	require.NoError(a.t, err)

	tok, err := a.jwt.GenerateAccessToken(u.Username, u.Role)
	require.NoError(a.t, err)

	return u, "Bearer " + tok
}

func (a *testApp) createEvent(capacity *int) event.Event {
	a.t.Helper()

	e, err := a.store.Events.Create(context.Background(), event.CreateEventRequest{
		Title:    "Jazz Night",
		Date:     "20.09.2025",
		Time:     "19:00",
		Place:    "Blue Hall",
		Capacity: capacity,
	})
	require.NoError(a.t, err)
	return e
}

func (a *testApp) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) upload(path, bearer string, file []byte) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "poster.png")
	require.NoError(a.t, err)
	_, err = fw.Write(file)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer)

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()

	var resp apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body: %v body=%s", err, rec.Body.String())
	}
	return resp
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("got status %d, want %d, body=%s", rec.Code, want, rec.Body.String())
	}
}

func intPtr(v int) *int { return &v }
