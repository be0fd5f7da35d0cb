package http

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET bodies with a weak validator and
// answers 304 when the client already holds it. Handlers that set their own
// ETag are left alone.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		if err := c.Next(); err != nil {
			return err
		}

		resp := c.Response()
		if resp.StatusCode() != fiber.StatusOK || len(resp.Body()) == 0 {
			return nil
		}

		etag := string(resp.Header.Peek(fiber.HeaderETag))
		if etag == "" {
			etag = weakETag(resp.Body())
			c.Set(fiber.HeaderETag, etag)
		}

		if etagMatches(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			resp.ResetBody()
		}
		return nil
	}
}

func weakETag(body []byte) string {
	return `W/"` + strconv.FormatUint(xxhash.Sum64(body), 36) + "-" + strconv.Itoa(len(body)) + `"`
}

// etagMatches reports whether an If-None-Match value lists etag or "*".
// Comparison is weak, so W/ prefixes are ignored on both sides.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
