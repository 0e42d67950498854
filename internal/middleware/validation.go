package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/notespace/internal/app/models/dto"
)

// BindJSON binds and validates the request body into obj. On failure it
// writes a 400 response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.HandleValidationError(err))
		return false
	}
	return true
}
