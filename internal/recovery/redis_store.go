package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only while it still holds the given code
var consumeScript = redis.NewScript(`
local data = redis.call("GET", KEYS[1])
if not data then
	return 0
end
if cjson.decode(data).code ~= ARGV[1] then
	return 0
end
return redis.call("DEL", KEYS[1])
`)

// RedisStore shares codes between instances. Keys carry the code's TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + ":recovery:" + email
}

func (s *RedisStore) Put(ctx context.Context, c Code) error {
	ttl := c.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		if err := s.redis.Del(ctx, s.key(c.Email)).Err(); err != nil {
			return fmt.Errorf("failed to store recovery code: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode recovery code: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(c.Email), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store recovery code: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (*Code, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recovery code: %w", err)
	}
	var c Code
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode recovery code: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Consume(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.redis, []string{s.key(email)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume recovery code: %w", err)
	}
	return n > 0, nil
}
