package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eventparser/internal/domain/user"
	"github.com/geocoder89/eventparser/internal/security"
)

type UserAccounts interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, username, passwordHash, role string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(username, role string) (string, error)
}

type AuthHandler struct {
	users  UserAccounts
	tokens TokenIssuer
}

func NewAuthHandler(users UserAccounts, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.SignUpRequest
	if !Bind(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		RespondValidation(ctx, "Password is too long", nil)
		return
	}
	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	// self-registration always yields a plain user
	u, err := h.users.Create(cctx, req.Username, hash, user.RoleUser)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			RespondConflict(ctx, "Username already exists")
			return
		}
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	ctx.JSON(http.StatusCreated, RegisterResponse{Message: "User registered successfully", UserID: u.ID})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !Bind(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	found, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthenticated(ctx, "Incorrect username or password")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			RespondUnauthenticated(ctx, "Incorrect username or password")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(found.Username, found.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	ctx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}
