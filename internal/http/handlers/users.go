package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/access"
	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/user"
	"github.com/geocoder89/eventparser/internal/security"
)

type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

type UserEventsReader interface {
	ListForUser(ctx context.Context, userID int64) ([]event.Event, error)
}

type UsersHandler struct {
	accounts AccountStore
	events   UserEventsReader
}

func NewUsersHandler(accounts AccountStore, events UserEventsReader) *UsersHandler {
	return &UsersHandler{accounts: accounts, events: events}
}

type ProfileResponse struct {
	ID               int64         `json:"id"`
	Username         string        `json:"username"`
	Role             string        `json:"role"`
	RegisteredEvents []event.Event `json:"registered_events"`
}

func (h *UsersHandler) Me(ctx *gin.Context, id access.Identity) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	events, err := h.events.ListForUser(cctx, id.UserID)
	if err != nil {
		RespondInternal(ctx, "Could not load profile", err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}

	ctx.JSON(http.StatusOK, ProfileResponse{
		ID:               id.UserID,
		Username:         id.Username,
		Role:             id.Role,
		RegisteredEvents: events,
	})
}

func (h *UsersHandler) DeleteMe(ctx *gin.Context, id access.Identity) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.accounts.Delete(cctx, id.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user", err)
		return
	}

	ctx.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (h *UsersHandler) ChangePassword(ctx *gin.Context, id access.Identity) {
	var req user.PasswordChangeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := h.accounts.GetByUsername(cctx, id.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not change password", err)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.OldPassword); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			RespondValidation(ctx, "Old password is incorrect", nil)
			return
		}
		RespondInternal(ctx, "Could not change password", err)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)
	if errors.Is(err, security.ErrPasswordTooLong) {
		RespondValidation(ctx, "Password is too long", nil)
		return
	}
	if err != nil {
		RespondInternal(ctx, "Could not change password", err)
		return
	}

	if err := h.accounts.UpdatePassword(cctx, u.ID, hash); err != nil {
		RespondInternal(ctx, "Could not change password", err)
		return
	}

	ctx.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}
