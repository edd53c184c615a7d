package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/response"
)

// BrandRequest is the body for POST/PUT /brands.
type BrandRequest struct {
	Brand string `json:"brand" binding:"required"`
}

// CreateModelRequest is the body for POST /models.
type CreateModelRequest struct {
	Model   string `json:"model" binding:"required"`
	BrandID int64  `json:"brandId" binding:"required,gt=0"`
}

// UpdateModelRequest is the body for PUT /models/:id. Absent fields are unchanged.
type UpdateModelRequest struct {
	Model   *string `json:"model"`
	BrandID *int64  `json:"brandId"`
}

// Handler handles brand and vehicle model endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListBrands handles GET /brands.
func (h *Handler) ListBrands(c *gin.Context) {
	list, err := h.repo.ListBrands(c.Request.Context())
	if err != nil {
		h.fail(c, "get brands", err)
		return
	}
	response.OK(c, gin.H{"brands": list})
}

// GetBrand handles GET /brands/:id.
func (h *Handler) GetBrand(c *gin.Context) {
	id, ok := parseID(c, "brand")
	if !ok {
		return
	}
	b, err := h.repo.GetBrand(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get brand", err)
		return
	}
	response.OK(c, gin.H{"brand": b})
}

// CreateBrand handles POST /brands (admin).
func (h *Handler) CreateBrand(c *gin.Context) {
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Brand) == "" {
		response.BadRequest(c, "brand is required")
		return
	}
	b, err := h.repo.CreateBrand(c.Request.Context(), strings.TrimSpace(req.Brand))
	if err != nil {
		h.fail(c, "create brand", err)
		return
	}
	response.Created(c, gin.H{"brand": b})
}

// UpdateBrand handles PUT /brands/:id (admin).
func (h *Handler) UpdateBrand(c *gin.Context) {
	id, ok := parseID(c, "brand")
	if !ok {
		return
	}
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Brand) == "" {
		response.BadRequest(c, "brand is required")
		return
	}
	b, err := h.repo.UpdateBrand(c.Request.Context(), id, strings.TrimSpace(req.Brand))
	if err != nil {
		h.fail(c, "update brand", err)
		return
	}
	response.OK(c, gin.H{"brand": b})
}

// DeleteBrand handles DELETE /brands/:id (admin). The row is soft-deleted.
func (h *Handler) DeleteBrand(c *gin.Context) {
	id, ok := parseID(c, "brand")
	if !ok {
		return
	}
	if err := h.repo.SoftDeleteBrand(c.Request.Context(), id); err != nil {
		h.fail(c, "delete brand", err)
		return
	}
	response.OKMessage(c, gin.H{}, "Brand deleted successfully")
}

// ListModels handles GET /models.
func (h *Handler) ListModels(c *gin.Context) {
	list, err := h.repo.ListModels(c.Request.Context())
	if err != nil {
		h.fail(c, "get models", err)
		return
	}
	response.OK(c, gin.H{"models": list})
}

// GetModel handles GET /models/:id.
func (h *Handler) GetModel(c *gin.Context) {
	id, ok := parseID(c, "model")
	if !ok {
		return
	}
	m, err := h.repo.GetModel(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get model", err)
		return
	}
	response.OK(c, gin.H{"model": m})
}

// CreateModel handles POST /models (admin).
func (h *Handler) CreateModel(c *gin.Context) {
	var req CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Model) == "" {
		response.BadRequest(c, "model and brandId are required")
		return
	}
	m, err := h.repo.CreateModel(c.Request.Context(), strings.TrimSpace(req.Model), req.BrandID)
	if err != nil {
		h.fail(c, "create model", err)
		return
	}
	response.Created(c, gin.H{"model": m})
}

// UpdateModel handles PUT /models/:id (admin).
func (h *Handler) UpdateModel(c *gin.Context) {
	id, ok := parseID(c, "model")
	if !ok {
		return
	}
	var req UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Model != nil {
		name := strings.TrimSpace(*req.Model)
		if name == "" {
			response.BadRequest(c, "model must not be empty")
			return
		}
		req.Model = &name
	}
	m, err := h.repo.UpdateModel(c.Request.Context(), id, req.Model, req.BrandID)
	if err != nil {
		h.fail(c, "update model", err)
		return
	}
	response.OK(c, gin.H{"model": m})
}

// DeleteModel handles DELETE /models/:id (admin).
func (h *Handler) DeleteModel(c *gin.Context) {
	id, ok := parseID(c, "model")
	if !ok {
		return
	}
	if err := h.repo.DeleteModel(c.Request.Context(), id); err != nil {
		h.fail(c, "delete model", err)
		return
	}
	response.OKMessage(c, gin.H{}, "Model deleted successfully")
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrValidation) {
		h.logger.Error("catalog request failed", zap.String("op", op), zap.Error(err))
	}
	response.Error(c, fmt.Errorf("failed to %s: %w", op, err))
}

func parseID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}
