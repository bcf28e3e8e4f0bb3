package redis

import (
	"context"
	"time"
)

// StatusCache keeps the serialized status document of terminal jobs so the
// polling endpoints stop hitting Postgres once a job is done.
type StatusCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewStatusCache(client RedisClient, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) Get(ctx context.Context, jobID string) (string, bool) {
	v, err := c.client.Get(ctx, statusKey(jobID))
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *StatusCache) Put(ctx context.Context, jobID, doc string) error {
	return c.client.Set(ctx, statusKey(jobID), doc, c.ttl)
}

func (c *StatusCache) Invalidate(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, statusKey(jobID))
}

func statusKey(jobID string) string { return "job_status:" + jobID }
