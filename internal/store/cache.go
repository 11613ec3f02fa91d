package store

import (
	"context"
	"sync"
	"time"

	"mareero-backend/internal/models"
)

// Cached serves repeated reads from the last snapshot until ttl elapses or
// Invalidate is called. Writes always go straight to the inner gateway.
type Cached struct {
	inner Gateway
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	snapshot  []models.Record
	fetchedAt time.Time
	valid     bool
}

func NewCached(inner Gateway, ttl time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl, now: time.Now}
}

func (c *Cached) ReadAll(ctx context.Context) ([]models.Record, error) {
	c.mu.Lock()
	if c.valid && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		out := models.CloneRecords(c.snapshot)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	records, err := c.inner.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snapshot = models.CloneRecords(records)
	c.fetchedAt = c.now()
	c.valid = true
	c.mu.Unlock()
	return records, nil
}

// WriteAll invalidates before and after the write, so a failed write never
// leaves a stale snapshot behind either.
func (c *Cached) WriteAll(ctx context.Context, records []models.Record) error {
	c.Invalidate()
	defer c.Invalidate()
	return c.inner.WriteAll(ctx, records)
}

func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.valid = false
	c.mu.Unlock()
}
