package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/smallnest/agrigraph/log"
)

// Cache fronts recent-message reads with a Redis list per session. Entries
// expire after the configured TTL; a miss falls through to the Store.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	limit  int64
}

// CacheOptions configuration for the Redis cache.
type CacheOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "agrigraph:"
	TTL      time.Duration // default 1h
	Limit    int64         // messages kept per session, default 50
}

// NewCache connects a Redis client with the given options.
func NewCache(opts CacheOptions) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewCacheWithClient(client, opts)
}

// NewCacheWithClient wraps an existing client. Useful for testing against
// miniredis.
func NewCacheWithClient(client *redis.Client, opts CacheOptions) *Cache {
	c := &Cache{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		limit:  opts.Limit,
	}
	if c.prefix == "" {
		c.prefix = "agrigraph:"
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	if c.limit <= 0 {
		c.limit = 50
	}
	return c
}

func (c *Cache) sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("%ssession:%s:messages", c.prefix, id)
}

// Push appends a message to the session's cached tail and trims it to the
// configured limit.
func (c *Cache) Push(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := c.sessionKey(msg.SessionID)

	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -c.limit, -1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache message: %w", err)
	}
	return nil
}

// Recent returns the cached tail of a session, oldest first. A missing key
// yields (nil, false, nil) so callers fall through to the store.
func (c *Cache) Recent(ctx context.Context, sessionID uuid.UUID) ([]*Message, bool, error) {
	raw, err := c.client.LRange(ctx, c.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached messages: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}

	messages := make([]*Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal cached message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, true, nil
}

// Invalidate drops a session's cached messages.
func (c *Cache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.client.Del(ctx, c.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session cache: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// CachedStore layers a Cache over a Store: writes go to both, message
// reads are served from the cache when the tail is present. The store is
// the source of truth, the cache is best effort.
type CachedStore struct {
	Store
	cache  *Cache
	logger log.Logger
}

// NewCachedStore wraps a store with a cache.
func NewCachedStore(store Store, cache *Cache) *CachedStore {
	return &CachedStore{Store: store, cache: cache, logger: log.GetDefaultLogger()}
}

// AppendMessage persists the message and pushes it to the cached tail. A
// cache failure only drops the tail, it never loses the write.
func (s *CachedStore) AppendMessage(ctx context.Context, msg *Message) error {
	if err := s.Store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	if err := s.cache.Push(ctx, msg); err != nil {
		s.logger.Warn("failed to cache message for session %s: %v", msg.SessionID, err)
		if err := s.cache.Invalidate(ctx, msg.SessionID); err != nil {
			s.logger.Warn("failed to drop stale cache for session %s: %v", msg.SessionID, err)
		}
	}
	return nil
}

// ListMessages serves from the cache when possible. A cached tail at the
// limit may have been trimmed, so only a shorter one counts as the full
// history; otherwise the store is consulted.
func (s *CachedStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error) {
	cached, ok, err := s.cache.Recent(ctx, sessionID)
	if err == nil && ok && int64(len(cached)) < s.cache.limit {
		return cached, nil
	}
	return s.Store.ListMessages(ctx, sessionID)
}
