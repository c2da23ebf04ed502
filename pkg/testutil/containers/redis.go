//go:build integration

package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"credbridge/internal/platform/config"
	"credbridge/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a throwaway Redis for session store tests, connected
// through the same opener the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start %s: %v", redisImage, err)
	}
	rc := &RedisContainer{Container: ctr}
	if rc.URL, err = ctr.ConnectionString(ctx); err == nil {
		rc.Client, err = redis.Open(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 4})
	}
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("connect %s: %v", redisImage, err)
	}
	return rc
}

// FlushAll empties the keyspace between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
