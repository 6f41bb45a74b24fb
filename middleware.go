package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"invictcrm/models"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/metrics"
)

const identityKey = "identity"

// authRequired verifies the bearer access token and stores the caller's
// identity in the request context.
func authRequired(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		id, err := tokens.Identity(strings.TrimSpace(header[7:]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// requireRoles must run after authRequired. It rejects callers whose role is
// not in allowed before the handler runs.
func requireRoles(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.HasRole(identity(c).Role, allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	id, _ := c.Get(identityKey)
	v, _ := id.(auth.Identity)
	return v
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
