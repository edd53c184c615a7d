package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/response"
	"github.com/autoparts-market/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login reply.
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
			response.Internal(c, "failed to login")
			return
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, expiresAt, err := h.jwt.Issue(user)
	if err != nil {
		h.logger.Error("sign token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	h.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	response.OK(c, TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Me handles GET /auth/me (authenticated).
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := claims.UserID()
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

// SeedAdmin creates the bootstrap admin when email and password are configured.
func SeedAdmin(ctx context.Context, repo *Repository, email, password, name string, logger *zap.Logger) error {
	if email == "" || password == "" {
		return nil
	}
	if name == "" {
		name = "Administrator"
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	created, err := repo.EnsureAdmin(ctx, strings.ToLower(strings.TrimSpace(email)), hash, name)
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin account created", zap.String("email", email))
	}
	return nil
}
