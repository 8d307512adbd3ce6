package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/util"
	"go.uber.org/zap"
)

// AuthMiddleware requires a valid bearer token and stores the caller's id
// under "user_id"
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		userID, err := verifier.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("Rejected token",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(util.UserIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is present
// and lets anonymous requests through
func OptionalAuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if userID, err := verifier.ValidateToken(token); err == nil {
				c.Set(util.UserIDKey, userID)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
