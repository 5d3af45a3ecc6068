// internal/interfaces/http/middleware/security.go
package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets a conservative set of browser security headers on
// every response and masks the server identity.
func SecurityHeaders() gin.HandlerFunc {
	headers := map[string]string{
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'self'",
		"Server":                  "storefront",
	}
	return func(c *gin.Context) {
		for k, v := range headers {
			c.Header(k, v)
		}
		c.Next()
	}
}
