package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// MetadataTTL is how long prefetched video metadata stays cached
const MetadataTTL = 24 * time.Hour

type Cache struct {
	client *redis.Client
}

func New(addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", addr)
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying Redis client for health checks.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		log.Printf("[CACHE MISS] %s", key)
		return "", false
	}
	if err != nil {
		log.Printf("[CACHE ERROR] %s: %v", key, err)
		return "", false
	}
	log.Printf("[CACHE HIT] %s", key)
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := c.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		log.Printf("[CACHE SET ERROR] %s: %v", key, err)
		return err
	}
	log.Printf("[CACHE SET] %s (TTL: %v)", key, ttl)
	return nil
}

// VideoMetadata is the cached shape of a metadata prefetch
type VideoMetadata struct {
	Title    string `json:"title"`
	Channel  string `json:"channel"`
	Duration int    `json:"duration"`
}

// GetVideoMetadata returns cached metadata for a video URL, if present
func (c *Cache) GetVideoMetadata(ctx context.Context, url string) (*VideoMetadata, bool) {
	raw, ok := c.Get(ctx, metadataKey(url))
	if !ok {
		return nil, false
	}

	var meta VideoMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		log.Printf("[CACHE DECODE ERROR] %s: %v", url, err)
		return nil, false
	}
	return &meta, true
}

// SetVideoMetadata caches metadata for a video URL
func (c *Cache) SetVideoMetadata(ctx context.Context, url string, meta *VideoMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.Set(ctx, metadataKey(url), string(raw), MetadataTTL)
}

func metadataKey(url string) string {
	return "video:meta:" + url
}
