package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS opens the relay to any origin and answers preflight requests itself.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
