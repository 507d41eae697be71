package cache

import (
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// ReportCache stores rendered report bytes keyed by format and ledger
// version. Any mutation bumps the version, so stale entries are never hit
// and simply age out.
type ReportCache struct {
	lru   *LRUCache[[]byte]
	group singleflight.Group
}

func NewReportCache(maxSize int, ttl time.Duration) *ReportCache {
	return &ReportCache{lru: NewLRUCache[[]byte](maxSize, ttl)}
}

func reportKey(format string, version uint64) string {
	return fmt.Sprintf("%s@%d", format, version)
}

// GetOrRender returns the cached report for (format, version), calling
// render at most once per key across concurrent callers on a miss. hit
// reports whether the bytes came from the cache.
func (c *ReportCache) GetOrRender(format string, version uint64, render func() ([]byte, error)) (data []byte, hit bool, err error) {
	key := reportKey(format, version)
	if data, ok := c.lru.Get(key); ok {
		return data, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := render()
		if err != nil {
			return nil, err
		}
		c.lru.Set(key, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

func (c *ReportCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *ReportCache) Size() int { return c.lru.Size() }
