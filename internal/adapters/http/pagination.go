package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PageMeta contains page-based pagination info.
type PageMeta struct {
	CurrentPage  int `json:"currentPage"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
	Limit        int `json:"limit"`
}

// pageParams reads page and limit from the query string, clamped the same
// way the services clamp them.
func pageParams(c *fiber.Ctx) (page, limit int) {
	return clampPage(c.QueryInt("page", 1), c.QueryInt("limit", defaultPageLimit))
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func newPageMeta(page, limit, total int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageMeta{CurrentPage: page, TotalRecords: total, TotalPages: pages, Limit: limit}
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses.
// Other query parameters (search, type, visible) are carried over.
func SetLinkHeaders(c *fiber.Ctx, m PageMeta) {
	base := c.Path()
	extra := carriedQuery(c)
	link := func(page int, rel string) string {
		return fmt.Sprintf(`<%s?page=%d&limit=%d%s>; rel="%s"`, base, page, m.Limit, extra, rel)
	}

	last := max(m.TotalPages, 1)
	links := []string{link(1, "first")}
	if m.CurrentPage > 1 {
		links = append(links, link(min(m.CurrentPage-1, last), "prev"))
	}
	if m.CurrentPage < m.TotalPages {
		links = append(links, link(m.CurrentPage+1, "next"))
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}

func carriedQuery(c *fiber.Ctx) string {
	var b strings.Builder
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key == "page" || key == "limit" {
			return
		}
		b.WriteString("&" + key + "=" + string(v))
	})
	return b.String()
}
