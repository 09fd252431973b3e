package question

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/classroom-quiz/internal/session"
)

const defaultCacheTTL = 10 * time.Minute

// Cache keeps the ordered question list of a session in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ListCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(sessionID string) string {
	return "session:questions:" + sessionID
}

func (c *Cache) Get(ctx context.Context, sessionID string) ([]session.Question, bool, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var questions []session.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false, err
	}
	return questions, true, nil
}

func (c *Cache) Set(ctx context.Context, sessionID string, questions []session.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(sessionID), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
