package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDedup(rdb *redis.Client, ttl time.Duration) *RedisDedup {
	return &RedisDedup{rdb: rdb, ttl: ttl}
}

func (d *RedisDedup) FirstDelivery(ctx context.Context, number string, sentAt time.Time, text string) (bool, error) {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%s", number, sentAt.Unix(), text)))
	key := fmt.Sprintf("sms:%x", sum)

	// SETNX: the first delivery claims the key, re-deliveries see it taken.
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
