package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurabot/neurabot-api/internal/domain/share"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// ShareHandler issues and resolves share links.
type ShareHandler struct {
	svc    share.Service
	logger *slog.Logger
}

// NewShareHandler constructs the handler.
func NewShareHandler(svc share.Service, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{svc: svc, logger: logger.With("component", "http.share")}
}

// Create issues a token for one of the caller's entries.
func (h *ShareHandler) Create(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "sign in required", nil))
		return
	}
	var req share.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeValidation, errMessage(err), err))
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), claims, req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resolve serves shared content to anyone holding the token.
func (h *ShareHandler) Resolve(c *gin.Context) {
	content, err := h.svc.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "content": content})
}

// Status reports which token store is configured.
func (h *ShareHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}
