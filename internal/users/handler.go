package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autoparts-market/backend/internal/auth"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/response"
)

// DeletedMessage is returned by DELETE /users/:id.
const DeletedMessage = "User deleted successfully"

// UpdateRequest is the body for PUT /users/:id. Only name, phone and address are
// editable; any other key in the body is ignored.
type UpdateRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// Handler handles user management endpoints (admin).
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, "get users", err)
		return
	}
	response.OK(c, gin.H{"users": list})
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	response.OK(c, gin.H{"user": u})
}

// Update handles PUT /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			h.fail(c, "update user", apperr.Validation("name must not be empty"))
			return
		}
		req.Name = &name
	}

	ctx := c.Request.Context()
	u, err := h.repo.GetByID(ctx, id)
	if err == nil && (req.Name != nil || req.Phone != nil || req.Address != nil) {
		u, err = h.repo.UpdateProfile(ctx, id, Profile{Name: req.Name, Phone: req.Phone, Address: req.Address})
	}
	if err != nil {
		h.fail(c, "update user", err)
		return
	}
	h.logger.Info("user profile updated", zap.String("user_id", id.String()))
	response.OKMessage(c, gin.H{"user": u}, "User updated successfully")
}

// Delete handles DELETE /users/:id. Admins cannot delete their own account.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if claims, ok := auth.ClaimsFrom(c); ok {
		if self, err := claims.UserID(); err == nil && self == id {
			h.fail(c, "delete user", apperr.Validation("you cannot delete your own account"))
			return
		}
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete user", err)
		return
	}
	h.logger.Info("user deleted", zap.String("user_id", id.String()))
	response.OKMessage(c, gin.H{}, DeletedMessage)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrValidation) {
		h.logger.Error("users request failed", zap.String("op", op), zap.Error(err))
	}
	response.Error(c, fmt.Errorf("failed to %s: %w", op, err))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}
