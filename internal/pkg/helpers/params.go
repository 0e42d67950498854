package helpers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/notespace/internal/pkg/apperrors"
)

// ParseIDParam reads a positive int64 path parameter
func ParseIDParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Invalid %s parameter: %q", name, raw))
	}
	return id, nil
}

// OptionalInt64Query reads an optional positive int64 query parameter.
// Missing or empty parameters yield nil.
func OptionalInt64Query(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Invalid %s query parameter: %q", name, raw))
	}
	return &v, nil
}

// BoolQuery reads a boolean query flag such as ?download=1
func BoolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return err == nil && v
}
