package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/models"
)

const principalCtxKey = "principal"

// HandleAuthMiddleware resolves the Bearer token into a Principal and
// stores it in the request context. Every protected handler downstream
// works with the resolved principal only, never with credentials.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Error().Msg("invalid authorization header")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ParseAccessToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	principal, err := h.principals.GetByID(c, claims.Subject)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", claims.Subject).
			Msg("token subject not registered")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(principalCtxKey, principal)
	c.Next()
}

// principal returns the authenticated principal set by the auth
// middleware, aborting with 401 when it is missing.
func principal(c *gin.Context) (*models.Principal, bool) {
	value, exists := c.Get(principalCtxKey)
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}
	p, ok := value.(*models.Principal)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}
	return p, true
}
