package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/registration"
	"github.com/geocoder89/eventparser/internal/observability"
)

type Ledger interface {
	Register(ctx context.Context, userID, eventID int64) (event.Event, error)
	Unregister(ctx context.Context, userID, eventID int64) (event.Event, error)
}

type RegistrationHandler struct {
	ledger Ledger
	prom   *observability.Prom
}

func NewRegistrationHandler(ledger Ledger, prom *observability.Prom) *RegistrationHandler {
	return &RegistrationHandler{ledger: ledger, prom: prom}
}

func (h *RegistrationHandler) Register(ctx *gin.Context, id access.Identity) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := h.ledger.Register(cctx, id.UserID, eventID)
	switch {
	case err == nil:
		h.prom.ObserveLedger("register", "ok")
		ctx.JSON(http.StatusOK, MessageResponse{Message: "Successfully registered for the event"})

	case errors.Is(err, event.ErrNotFound):
		h.prom.ObserveLedger("register", "not_found")
		RespondNotFound(ctx, "Event not found")

	case errors.Is(err, registration.ErrEventFull):
		h.prom.ObserveLedger("register", "full")
		RespondConflict(ctx, "Event is full")

	case errors.Is(err, registration.ErrAlreadyRegistered):
		h.prom.ObserveLedger("register", "duplicate")
		RespondConflict(ctx, "Already registered for this event")

	default:
		h.prom.ObserveLedger("register", "error")
		RespondInternal(ctx, "Could not register for event", err)
	}
}

func (h *RegistrationHandler) Unregister(ctx *gin.Context, id access.Identity) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := h.ledger.Unregister(cctx, id.UserID, eventID)
	switch {
	case err == nil:
		h.prom.ObserveLedger("unregister", "ok")
		ctx.JSON(http.StatusOK, MessageResponse{Message: "Successfully unregistered from the event"})

	case errors.Is(err, event.ErrNotFound):
		h.prom.ObserveLedger("unregister", "not_found")
		RespondNotFound(ctx, "Event not found")

	case errors.Is(err, registration.ErrNotRegistered):
		h.prom.ObserveLedger("unregister", "not_registered")
		RespondNotFound(ctx, "You are not registered for this event")

	default:
		h.prom.ObserveLedger("unregister", "error")
		RespondInternal(ctx, "Could not unregister from event", err)
	}
}
