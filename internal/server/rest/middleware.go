package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/gin-gonic/gin"
)

const userKey = "docmark.user"

func (s *HTTPServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// authRequired resolves the bearer token to a live user record and stores it
// in the gin context. Token problems are 401, account state problems 403.
func (s *HTTPServer) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "no token"})
			return
		}

		u, err := s.deps.Users.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(userKey, u)
			c.Next()
		case errors.Is(err, common.ErrNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "no token"})
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		case errors.Is(err, common.ErrNotVerified):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "email not verified"})
		case errors.Is(err, common.ErrNotApproved):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "not approved"})
		default:
			s.respondError(c, err)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
	return token, token != ""
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || u.Role != common.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}

// currentUser returns the user stored by authRequired, or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// rateLimit counts hits per client address and route. The address comes
// from gin, which reads forwarding headers only from trusted proxies.
// Limiter errors let the request through.
func (s *HTTPServer) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()
		allowed, err := s.deps.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			s.logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			s.respondError(c, common.ErrRateLimited)
			return
		}
		c.Next()
	}
}
