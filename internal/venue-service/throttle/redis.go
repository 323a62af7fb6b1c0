package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implementa o throttle com SET NX + TTL: a primeira chamada grava a
// chave e as seguintes falham até o TTL expirar.
type Redis struct {
	Client  *redis.Client
	Spacing time.Duration
	Prefix  string // ex: "throttle:stake:"
}

func NewRedis(c *redis.Client, spacing time.Duration, prefix string) *Redis {
	return &Redis{Client: c, Spacing: spacing, Prefix: prefix}
}

func (t *Redis) Allow(ctx context.Context, addr string) error {
	ok, err := t.Client.SetNX(ctx, t.Prefix+addr, 1, t.Spacing).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTooFrequent
	}
	return nil
}
