package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/http/handlers"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func postCreate(t *testing.T, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/events/create", func(ctx *gin.Context) {
		var req event.CreateEventRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/events/create", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}
	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w, resp := postCreate(t, `{"title":"Jazz","date":"2025-09-20","time":"25:00","age_limit":-1}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error.Code != "validation_error" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"date":      "eventdate",
		"time":      "eventtime",
		"place":     "required",
		"age_limit": "min",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_AcceptsValidEvent(t *testing.T) {
	w, _ := postCreate(t, `{"title":"Jazz Night","date":"20.09.2025","time":"19:00","place":"Blue Hall","capacity":0}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w, resp := postCreate(t, `{"title":"Jazz Night","date":"20.09.2025","time":"19:00","place":"Blue Hall","capacity":"ten"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Field != "capacity" {
		t.Fatalf("expected a capacity type error, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w, resp := postCreate(t, `{"title":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error.Details.JSON == "" {
		t.Fatalf("expected a json detail, body=%s", w.Body.String())
	}
}

func TestBindJSON_TruncatedBody(t *testing.T) {
	for _, body := range []string{`{"title":`, `{"title":"Jazz"`, `{`} {
		w, resp := postCreate(t, body)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: got status %d, want %d", body, w.Code, http.StatusBadRequest)
		}
		if resp.Error.Details.JSON != "invalid_json_syntax" {
			t.Fatalf("body %q: expected invalid_json_syntax, got %q", body, resp.Error.Details.JSON)
		}
	}
}

func TestBindJSON_EmptyBody(t *testing.T) {
	w, resp := postCreate(t, ``)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp.Error.Details.JSON != "empty_body" {
		t.Fatalf("expected empty_body, got %q", resp.Error.Details.JSON)
	}
}
