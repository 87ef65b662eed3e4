package middleware

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/semweave/semweave/internal/config"
	"github.com/semweave/semweave/internal/errors"
	"github.com/semweave/semweave/internal/logger"
)

// APIs reachable without authentication
var noAuthAPI = map[string][]string{
	"/api/v1/system/info": {"GET"},
	"/health":             {"GET"},
}

// isNoAuthAPI matches the path against the no-auth list; entries ending in
// '*' match by prefix.
func isNoAuthAPI(path string, method string) bool {
	for api, methods := range noAuthAPI {
		if strings.HasSuffix(api, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(api, "*")) && slices.Contains(methods, method) {
				return true
			}
		} else if path == api && slices.Contains(methods, method) {
			return true
		}
	}
	return false
}

// Auth validates the bearer token on every request. With an empty secret
// the middleware is disabled, which keeps local development friction-free.
func Auth(cfg *config.Config) gin.HandlerFunc {
	secret := ""
	if cfg.Server != nil {
		secret = cfg.Server.JWTSecret
	}
	return func(c *gin.Context) {
		if c.Request.Method == "OPTIONS" || secret == "" {
			c.Next()
			return
		}
		if isNoAuthAPI(c.Request.URL.Path, c.Request.Method) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warnf(c.Request.Context(), "rejected request with invalid token: %v", err)
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := errors.NewUnauthorizedError(message)
	c.AbortWithStatusJSON(appErr.HTTPCode, gin.H{
		"success": false,
		"error":   gin.H{"code": appErr.Code, "message": appErr.Message},
	})
}
