package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/domain/entity"
)

// ActorClaims is the JWT claim set issued by the identity provider
type ActorClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	Secret string
	Issuer string
}

// authMiddleware verifies the bearer token and places the caller on
// the request context.
func authMiddleware(config AuthConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "missing token"})
			return
		}

		claims := &ActorClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(config.Secret), nil
			},
			jwt.WithIssuer(config.Issuer),
		)
		if err != nil || !token.Valid {
			logger.Warn("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid token"})
			return
		}

		roles := make([]entity.Role, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			roles = append(roles, entity.Role(r))
		}

		c.Set(actorKey, entity.Actor{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Roles: roles,
		})
		c.Next()
	}
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
