package availability

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache keeps per-event available-seat counts in Redis so the
// /events_available/ listing doesn't have to count ticket rows on every
// request. Every lifecycle transition invalidates the affected event.
// A nil client disables the cache; callers fall back to the store count.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func key(eventID string) string {
	return "avail_count:" + eventID
}

// Get returns the cached count; ok is false on a miss or a disabled cache.
func (c *Cache) Get(eventID string) (count int, ok bool, err error) {
	if c == nil || c.Client == nil {
		return 0, false, nil
	}
	val, err := c.Client.Get(context.Background(), key(eventID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err = strconv.Atoi(val)
	if err != nil {
		// poisoned entry, treat as a miss
		return 0, false, nil
	}
	return count, true, nil
}

func (c *Cache) Set(eventID string, count int) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Set(context.Background(), key(eventID), strconv.Itoa(count), c.TTL).Err()
}

func (c *Cache) Invalidate(eventID string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(context.Background(), key(eventID)).Err()
}
