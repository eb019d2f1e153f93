// Package cachesvc caches the users resolved from external identities.
package cachesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
)

const (
	keyPrefix = "ebd:identity:"
	ttl       = 10 * time.Minute
)

type redisCache struct {
	client *redis.Client
	logger core.Logger
}

var _ session.Cache = (*redisCache)(nil)

// New returns a Redis backed cache when redis is configured, a no-op one otherwise.
func New(logger core.Logger, conf *core.Config) session.Cache {
	if conf.Redis.Addr == "" {
		return session.NoopCache
	}
	return NewRedisCache(redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	}), logger)
}

func NewRedisCache(client *redis.Client, logger core.Logger) session.Cache {
	return &redisCache{client: client, logger: logger}
}

func (c *redisCache) Get(ctx context.Context, uid string) (user.User, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+uid).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn(fmt.Sprintf("reading cached user %s: %v", uid, err), err)
		}
		return user.User{}, false
	}
	var usr user.User
	if err := json.Unmarshal(raw, &usr); err != nil {
		c.logger.Warn(fmt.Sprintf("decoding cached user %s: %v", uid, err), err)
		return user.User{}, false
	}
	return usr, true
}

func (c *redisCache) Put(ctx context.Context, usr user.User) {
	raw, err := json.Marshal(usr)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+usr.ID, raw, ttl).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("caching user %s: %v", usr.ID, err), err)
	}
}

func (c *redisCache) Purge(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("listing cached users: %v", err), err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("purging cached users: %v", err), err)
	}
}
