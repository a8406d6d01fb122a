package cache

import (
	"fmt"
	"time"
)

const (
	// IndexPagePrefix namespaces cached renders of the index page.
	IndexPagePrefix = "index_page"
	// IndexPageTTL is how long a rendered index page is served from cache.
	IndexPageTTL = 20 * time.Second
)

// PageKey returns the cache key for one rendered page. viewerID is zero for
// anonymous visitors; page is the raw page query value.
func PageKey(prefix string, viewerID uint, page string) string {
	viewer := "anon"
	if viewerID != 0 {
		viewer = fmt.Sprintf("u%d", viewerID)
	}
	return fmt.Sprintf("%s:%s:%s", prefix, viewer, page)
}
