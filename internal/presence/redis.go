package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps presence entries in Redis under <prefix>:presence:<userID>.
// Entries expire after ttl in case a disconnect event never fires. Same
// one-entry-per-user contract as Memory; see the Registry note on
// single-instance delivery.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", r.prefix, userID)
}

func (r *Redis) MarkOnline(ctx context.Context, userID, socketID string) error {
	return r.client.Set(ctx, r.key(userID), socketID, r.ttl).Err()
}

func (r *Redis) MarkOffline(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *Redis) Lookup(ctx context.Context, userID string) (string, bool, error) {
	sid, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sid, true, nil
}
