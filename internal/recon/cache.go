package recon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const reportKey = "recon:report"

// Cache keeps the latest reconciliation report in Redis so the read
// surface can serve it without re-running the recomputation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// StoreReport replaces the cached report.
func (c *Cache) StoreReport(ctx context.Context, report Report) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reportKey, raw, c.ttl).Err()
}

// LatestReport returns the cached report when one exists.
func (c *Cache) LatestReport(ctx context.Context) (Report, bool, error) {
	if c == nil || c.client == nil {
		return Report{}, false, nil
	}
	raw, err := c.client.Get(ctx, reportKey).Bytes()
	if err == redis.Nil {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, false, err
	}
	return report, true, nil
}

// Invalidate drops the cached report.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, reportKey).Err()
}
