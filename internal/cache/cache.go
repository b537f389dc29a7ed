// Package cache is a small Redis-backed cache for publicly shared
// notes, the one unauthenticated read path. The cache is optional: with
// no Redis configured every call is a no-op miss.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/questlogger/questlogger/internal/models"
)

const sharedNoteTTL = 5 * time.Minute

// SharedNotes caches shared notes by share ID.
type SharedNotes struct {
	client *redis.Client
}

// New returns a cache backed by Redis at addr, or an inert cache when
// addr is empty.
func New(addr, password string) *SharedNotes {
	if addr == "" {
		return &SharedNotes{}
	}

	return &SharedNotes{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Enabled reports whether a Redis backend is configured.
func (c *SharedNotes) Enabled() bool {
	return c.client != nil
}

func key(shareID string) string {
	return "shared_note:" + shareID
}

// Get returns the cached note for shareID. The second return value is
// false on miss, on decode failure, or when the cache is disabled.
func (c *SharedNotes) Get(ctx context.Context, shareID string) (models.Note, bool) {
	if c.client == nil {
		return models.Note{}, false
	}

	raw, err := c.client.Get(ctx, key(shareID)).Bytes()
	if err != nil {
		return models.Note{}, false
	}

	var note models.Note
	if err := json.Unmarshal(raw, &note); err != nil {
		return models.Note{}, false
	}

	return note, true
}

// Set stores the note under its share ID. Failures are ignored; the
// database remains the source of truth.
func (c *SharedNotes) Set(ctx context.Context, shareID string, note models.Note) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(note)
	if err != nil {
		return
	}

	c.client.Set(ctx, key(shareID), raw, sharedNoteTTL)
}

// Invalidate drops the cached entry, called when a note is unshared,
// updated or deleted.
func (c *SharedNotes) Invalidate(ctx context.Context, shareID string) {
	if c.client == nil || shareID == "" {
		return
	}

	c.client.Del(ctx, key(shareID))
}

// Close releases the Redis connection.
func (c *SharedNotes) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
