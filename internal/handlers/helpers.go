package handlers

import (
	"strconv"

	"cardiopredict/internal/middleware"
	"cardiopredict/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func currentUser(c *gin.Context) (uint, string) {
	return c.GetUint(middleware.ContextUserID), c.GetString(middleware.ContextFirstName)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parsePage reads limit/skip query params. Limit falls back to 10 and is
// capped at 100; negative or malformed values are rejected.
func parsePage(c *gin.Context) (repository.Page, bool) {
	page := repository.Page{Limit: defaultPageLimit}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false
		}
		if n > 0 {
			page.Limit = min(n, maxPageLimit)
		}
	}
	if raw := c.Query("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false
		}
		page.Skip = n
	}
	return page, true
}

func pagination(total int64, page repository.Page) gin.H {
	return gin.H{
		"total": total,
		"limit": page.Limit,
		"skip":  page.Skip,
	}
}
