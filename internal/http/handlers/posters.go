package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/extraction"
	"github.com/geocoder89/eventparser/internal/objectstore"
)

type ImageParser interface {
	ParseImage(ctx context.Context, image []byte) (extraction.Record, error)
}

type EventImageStore interface {
	GetByID(ctx context.Context, id int64) (event.Event, error)
	SetImageURL(ctx context.Context, id int64, url string) (event.Event, error)
}

// PostersHandler serves poster uploads. parser and uploader may be nil when
// the matching cloud integration is not configured.
type PostersHandler struct {
	parser   ImageParser
	uploader objectstore.Uploader
	events   EventImageStore
	maxBytes int64
}

func NewPostersHandler(parser ImageParser, uploader objectstore.Uploader, events EventImageStore, maxBytes int64) *PostersHandler {
	return &PostersHandler{parser: parser, uploader: uploader, events: events, maxBytes: maxBytes}
}

// ParseImage runs OCR and model extraction over the uploaded poster. The
// record is returned as-is for an admin to review; nothing is stored.
func (h *PostersHandler) ParseImage(ctx *gin.Context, _ access.Identity) {
	if h.parser == nil {
		RespondUnavailable(ctx, "Poster extraction is not configured")
		return
	}

	data, _, ok := h.readImage(ctx)
	if !ok {
		return
	}

	rec, err := h.parser.ParseImage(ctx.Request.Context(), data)
	if err != nil {
		if errors.Is(err, extraction.ErrTimeout) {
			RespondUpstreamTimeout(ctx, "Poster extraction timed out, try again")
			return
		}
		RespondInternal(ctx, "Could not parse poster", err)
		return
	}

	ctx.JSON(http.StatusOK, rec)
}

// UploadImage stores the poster in object storage and points the event's
// image_url at it.
func (h *PostersHandler) UploadImage(ctx *gin.Context, _ access.Identity) {
	if h.uploader == nil {
		RespondUnavailable(ctx, "Poster storage is not configured")
		return
	}

	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	lookupCtx, cancel := withTimeout(ctx, 2*time.Second)
	_, err := h.events.GetByID(lookupCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event", err)
		return
	}

	data, mt, ok := h.readImage(ctx)
	if !ok {
		return
	}

	uploadCtx, cancel := withTimeout(ctx, 30*time.Second)
	defer cancel()

	objectPath := fmt.Sprintf("events/%d/%s%s", id, uuid.NewString(), mt.Extension())
	url, err := h.uploader.Upload(uploadCtx, objectPath, mt.String(), bytes.NewReader(data))
	if err != nil {
		RespondInternal(ctx, "Could not store poster", err)
		return
	}

	e, err := h.events.SetImageURL(uploadCtx, id, url)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event", err)
		return
	}

	ctx.JSON(http.StatusOK, e)
}

// readImage loads the multipart "file" field and checks the bytes are an image.
func (h *PostersHandler) readImage(ctx *gin.Context) ([]byte, *mimetype.MIME, bool) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Poster is too large", nil)
			return nil, nil, false
		}
		RespondValidation(ctx, "Multipart field \"file\" is required", nil)
		return nil, nil, false
	}

	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Poster is too large", nil)
		return nil, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		RespondInternal(ctx, "Could not read upload", err)
		return nil, nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		RespondInternal(ctx, "Could not read upload", err)
		return nil, nil, false
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		RespondValidation(ctx, "File must be an image", gin.H{"detected": mt.String()})
		return nil, nil, false
	}

	return data, mt, true
}
