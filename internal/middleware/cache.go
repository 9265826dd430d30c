package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as uncacheable. Rosters and audit trails change
// with every enrollment, so intermediaries must not keep copies.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
