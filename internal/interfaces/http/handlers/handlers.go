// internal/interfaces/http/handlers/handlers.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// respondError writes a service error using its mapped HTTP status.
func respondError(c *gin.Context, err error) {
	c.JSON(apperror.HTTPStatus(err), gin.H{
		"error": err.Error(),
	})
}

func apperrorIsNotFound(err error) bool {
	return apperror.KindOf(err) == apperror.KindNotFound
}
