package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ArowuTest/prizedraw-backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// JWTAuthMiddleware validates the bearer token and stores its subject and role in the context.
// Tokens are issued upstream; this service only verifies them.
func JWTAuthMiddleware(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	jwtSecret := []byte(cfg.JWT.Secret)

	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			abortUnauthorized(c, "Authorization header must start with Bearer ")
			return
		}
		tokenString := authHeader[len(BearerSchema):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret, nil
		})
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Token has expired")
			} else {
				abortUnauthorized(c, "Invalid token")
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			abortUnauthorized(c, "Invalid token claims")
			return
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			abortUnauthorized(c, "Token has no subject")
			return
		}
		role, _ := claims["role"].(string)

		c.Set(ctxUserID, sub)
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// RequireRole rejects requests whose token role differs from role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "FORBIDDEN"})
			return
		}
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id set by JWTAuthMiddleware
func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(ctxUserID)
	return id, id != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHORIZED"})
}
