package advertising

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/response"
)

const (
	seenCookie       = "advertisingId"
	seenCookieMaxAge = 365 * 24 * 60 * 60
)

// DismissRequest is the body for POST /advertising/interstitial/dismiss.
type DismissRequest struct {
	ID int64 `json:"id" binding:"required"`
}

// Handler handles advertising HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an advertising handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /advertising.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"advertising": list})
}

// GetActive handles GET /advertising/active.
func (h *Handler) GetActive(c *gin.Context) {
	a, err := h.svc.GetActive(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if a == nil {
		response.OKMessage(c, nil, "No active advertising")
		return
	}
	response.OK(c, a)
}

// Get handles GET /advertising/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"advertising": a})
}

// Create handles POST /advertising (admin).
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if !bind(c, &in) {
		return
	}
	a, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"advertising": a})
}

// Update handles PUT /advertising/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in Input
	if !bind(c, &in) {
		return
	}
	a, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"advertising": a})
}

// Delete handles DELETE /advertising/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	msg, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OKMessage(c, gin.H{}, msg)
}

// Interstitial handles GET /advertising/interstitial. It runs the presentation gate against
// the advertisingId cookie and tells the storefront whether to open the modal.
func (h *Handler) Interstitial(c *gin.Context) {
	gate := NewGate(cookieSeenStore{c: c})
	if err := gate.Mount(c.Request.Context(), h.svc.GetActive); err != nil {
		h.logger.Warn("interstitial fetch failed", zap.Error(err))
		response.OK(c, gin.H{"show": false, "advertising": nil})
		return
	}
	response.OK(c, gin.H{"show": gate.State() == GateShown, "advertising": gate.Current()})
}

// DismissInterstitial handles POST /advertising/interstitial/dismiss. Only the advertising the
// gate is currently showing can be dismissed; dismissing an already seen one is a no-op.
func (h *Handler) DismissInterstitial(c *gin.Context) {
	var req DismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	gate := NewGate(cookieSeenStore{c: c})
	if err := gate.Mount(c.Request.Context(), h.svc.GetActive); err != nil {
		h.fail(c, fmt.Errorf("failed to dismiss advertising: %w", err))
		return
	}
	if cur := gate.Current(); cur == nil || cur.ID != req.ID {
		response.Error(c, apperr.Validation("advertising %d is not the active advertising", req.ID))
		return
	}
	gate.Dismiss()
	response.OKMessage(c, gin.H{"id": req.ID}, "Advertising dismissed")
}

func (h *Handler) fail(c *gin.Context, err error) {
	if !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrValidation) {
		h.logger.Error("advertising request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid advertising id")
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, in *Input) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			response.Error(c, err)
		} else {
			response.BadRequest(c, "invalid request: "+err.Error())
		}
		return false
	}
	return true
}

// cookieSeenStore keeps the last dismissed advertising id in the client's cookie jar.
type cookieSeenStore struct {
	c *gin.Context
}

func (s cookieSeenStore) LastSeen() (int64, bool) {
	v, err := s.c.Cookie(seenCookie)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s cookieSeenStore) MarkSeen(id int64) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(seenCookie, strconv.FormatInt(id, 10), seenCookieMaxAge, "/", "", false, false)
}
