package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	// MaxLimit bounds user-facing feeds: requests, offers, reviews and notifications
	MaxLimit = 50
	// AdminMaxLimit bounds admin exports such as the audit trail
	AdminMaxLimit = 200
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit for a user-facing list
func Parse(c *gin.Context) Params {
	return ParseMax(c, MaxLimit)
}

// ParseMax reads page and limit, clamping limit to maxLimit. Missing or malformed values
// fall back to the defaults instead of failing the request.
func ParseMax(c *gin.Context, maxLimit int) Params {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
