package restapi

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// pagination builds a repo.Pagination from the ?before=&limit= query
// parameters shared by every list endpoint.
func pagination(c fiber.Ctx) repo.Pagination {
	var before *string
	if v := c.Query("before"); v != "" {
		before = &v
	}

	limit := repo.DefaultLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	return repo.Pagination{Before: before, Limit: repo.ClampLimit(limit)}
}
