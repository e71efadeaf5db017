package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/qrcode"
)

type EventsStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	List(ctx context.Context) ([]event.WithParticipants, error)
	GetByID(ctx context.Context, id int64) (event.Event, error)
	Patch(ctx context.Context, id int64, patch event.PatchEventRequest) (event.Event, error)
	Delete(ctx context.Context, id int64) (event.Event, error)
}

type EventsHandler struct {
	repo EventsStore
	log  *slog.Logger
}

func NewEventsHandler(repo EventsStore, log *slog.Logger) *EventsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventsHandler{repo: repo, log: log}
}

type EventUpdatedResponse struct {
	Message string      `json:"message"`
	Event   event.Event `json:"event"`
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context, id access.Identity) {
	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, req)
	if err != nil {
		RespondInternal(ctx, "Could not create event", err)
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "event created", "event_id", e.ID, "by", id.Username)
	ctx.JSON(http.StatusCreated, e)
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	events, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list events", err)
		return
	}

	respondEventJSON(ctx, events)
}

func (h *EventsHandler) GetEvent(ctx *gin.Context) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondLookupError(ctx, err, "Could not fetch event")
		return
	}

	respondEventJSON(ctx, e)
}

func (h *EventsHandler) PatchEvent(ctx *gin.Context, actor access.Identity) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var patch event.PatchEventRequest
	if !BindJSON(ctx, &patch) {
		return
	}
	if patch.IsEmpty() {
		RespondValidation(ctx, "No valid fields to update", gin.H{
			"allowed": []string{"title", "date", "time", "place", "description", "age_limit", "event_type"},
		})
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := h.repo.Patch(cctx, id, patch)
	if err != nil {
		if errors.Is(err, event.ErrEmptyPatch) {
			RespondValidation(ctx, "No valid fields to update", nil)
			return
		}
		h.respondLookupError(ctx, err, "Could not update event")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "event updated", "event_id", id, "by", actor.Username)
	ctx.JSON(http.StatusOK, EventUpdatedResponse{Message: "Event updated successfully", Event: e})
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context, actor access.Identity) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := h.repo.Delete(cctx, id); err != nil {
		h.respondLookupError(ctx, err, "Could not delete event")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "event deleted", "event_id", id, "by", actor.Username)
	ctx.JSON(http.StatusOK, MessageResponse{Message: "Event deleted successfully"})
}

// QRCode renders the event summary as a PNG on every request.
func (h *EventsHandler) QRCode(ctx *gin.Context) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondLookupError(ctx, err, "Could not fetch event")
		return
	}

	png, err := qrcode.PNG(e.QRPayload(), qrcode.DefaultSize)
	if err != nil {
		RespondInternal(ctx, "Could not render QR code", err)
		return
	}

	respondCacheable(ctx, "image/png", png)
}

func (h *EventsHandler) respondLookupError(ctx *gin.Context, err error, message string) {
	if errors.Is(err, event.ErrNotFound) {
		RespondNotFound(ctx, "Event not found")
		return
	}
	RespondInternal(ctx, message, err)
}
