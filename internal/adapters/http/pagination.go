package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// SetLinkHeaders adds RFC 8288 Link headers for a paginated response.
// Every link repeats the request's query arguments; only offset and limit change.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	links := []string{pageLink(c, "first", 0, p.Limit)}

	if p.Offset > 0 {
		links = append(links, pageLink(c, "prev", max(p.Offset-p.Limit, 0), p.Limit))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, pageLink(c, "next", p.Offset+p.Limit, p.Limit))
	}
	links = append(links, pageLink(c, "last", max(p.Total-p.Limit, 0), p.Limit))

	c.Set("Link", strings.Join(links, ", "))
}

func pageLink(c *fiber.Ctx, rel string, offset, limit int) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	c.Request().URI().QueryArgs().CopyTo(args)
	args.Set("offset", strconv.Itoa(offset))
	args.Set("limit", strconv.Itoa(limit))
	return "<" + c.Path() + "?" + args.String() + `>; rel="` + rel + `"`
}
