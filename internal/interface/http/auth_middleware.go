package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurabot/neurabot-api/internal/domain/auth"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !authenticate(c, svc, token) {
			return
		}
		c.Next()
	}
}

// optionalAuthMiddleware attaches claims when a bearer token is present but
// lets anonymous requests through. A present but invalid token is rejected.
func optionalAuthMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, err := bearerToken(header)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !authenticate(c, svc, token) {
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, *HTTPError) {
	if header == "" {
		return "", NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "missing authorization header", nil)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "invalid authorization header", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

func authenticate(c *gin.Context, svc auth.Service, token string) bool {
	claims, err := svc.ValidateToken(c.Request.Context(), token)
	if err != nil {
		status := http.StatusForbidden
		code := apperrors.CodeInvalidToken
		if !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
			status = http.StatusInternalServerError
			code = "auth_failed"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return false
	}
	setClaims(c, claims)
	return true
}
