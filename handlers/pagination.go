package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit reads ?limit=, falling back to def for missing or invalid
// values and capping at maxLimit.
func ParseLimit(c *gin.Context, def, maxLimit int) int {
	limit := def
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
