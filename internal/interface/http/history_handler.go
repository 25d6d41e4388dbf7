package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurabot/neurabot-api/internal/domain/history"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// HistoryHandler exposes saved summaries.
type HistoryHandler struct {
	svc    history.Service
	logger *slog.Logger
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(svc history.Service, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, logger: logger.With("component", "http.history")}
}

// Save stores a summary. Authenticated callers become the entry owner.
func (h *HistoryHandler) Save(c *gin.Context) {
	var req history.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeValidation, errMessage(err), err))
		return
	}
	owner := ""
	if claims, ok := getClaims(c); ok {
		owner = claims.UserID
	}
	entry, err := h.svc.Save(c.Request.Context(), owner, req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "entry": entry})
}

// List returns the caller's entries when authenticated, otherwise anonymous entries.
func (h *HistoryHandler) List(c *gin.Context) {
	owner := ""
	if claims, ok := getClaims(c); ok {
		owner = claims.UserID
	}
	entries, err := h.svc.List(c.Request.Context(), owner)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// Get returns a single entry visible to the caller.
func (h *HistoryHandler) Get(c *gin.Context) {
	caller := ""
	if claims, ok := getClaims(c); ok {
		caller = claims.UserID
	}
	entry, err := h.svc.GetFor(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}
