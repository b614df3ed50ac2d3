package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
)

const (
	unmatchedRoute = "unmatched"
	anonymousRole  = "anonymous"
)

// Metrics records every request against its route template and the caller's role.
// Unmatched requests share a single route label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(service.HTTPObservation{
			Method:   c.Request.Method,
			Route:    route,
			Role:     requestRole(c),
			Status:   c.Writer.Status(),
			Duration: time.Since(start),
		})
	}
}

// requestRole reads the claims JWT stored further down the chain.
func requestRole(c *gin.Context) string {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return anonymousRole
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil || claims.Role == "" {
		return anonymousRole
	}
	return string(claims.Role)
}
