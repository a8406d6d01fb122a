package cache

import (
	"log/slog"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// PageCache serves GET requests from store, keyed by prefix, the viewer
// ("userID" local, anonymous when unset) and the "page" query value. Misses run
// the handler chain and store the body only for 200 responses. Store failures
// never fail the request. Entries expire after ttl; nothing invalidates them on writes.
func PageCache(store PageStore, prefix string, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}

		ctx := c.UserContext()
		viewerID, _ := c.Locals("userID").(uint)
		key := PageKey(prefix, viewerID, c.Query("page"))

		body, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			observability.PageCacheRequests.WithLabelValues("error").Inc()
			middleware.Logger.WarnContext(ctx, "page cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		case ok:
			observability.PageCacheRequests.WithLabelValues("hit").Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
			return c.Status(fiber.StatusOK).Send(body)
		default:
			observability.PageCacheRequests.WithLabelValues("miss").Inc()
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		rendered := append([]byte(nil), c.Response().Body()...)
		if err := store.Set(ctx, key, rendered, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		c.Set("X-Cache", "MISS")
		return nil
	}
}
