package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/http/middlewares"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: middlewares.GetRequestID(ctx),
			Details:   details,
		},
	})
}

func RespondValidation(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "validation_error", message, details)
}

func RespondUnauthenticated(ctx *gin.Context, message string) {
	ctx.Header("WWW-Authenticate", "Bearer")
	RespondError(ctx, http.StatusUnauthorized, "unauthenticated", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, "conflict", message, nil)
}

func RespondUpstreamTimeout(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusGatewayTimeout, "upstream_extraction_failure", message, nil)
}

func RespondUnavailable(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, "upstream_unavailable", message, nil)
}

// RespondInternal logs err and hides it from the client.
func RespondInternal(ctx *gin.Context, message string, err error) {
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), message,
			"err", err,
			"route", ctx.FullPath(),
			"request_id", middlewares.GetRequestID(ctx),
		)
	}
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

type MessageResponse struct {
	Message string `json:"message"`
}

// respondEventJSON encodes an event read and serves it through respondCacheable.
func respondEventJSON(ctx *gin.Context, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		RespondInternal(ctx, "Could not encode event", err)
		return
	}

	respondCacheable(ctx, "application/json; charset=utf-8", body)
}

// respondCacheable writes a 200 with a weak ETag over body, or a bare 304 when
// If-None-Match already names it. Event reads need a token, so shared caches
// must not reuse them across callers.
func respondCacheable(ctx *gin.Context, contentType string, body []byte) {
	sum := sha256.Sum256(body)
	etag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")
	ctx.Header("Vary", "Authorization")

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(http.StatusOK, contentType, body)
}

// etagMatches uses the weak comparison If-None-Match calls for.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
