package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/internal/pkg/env"
)

const isolatedCacheTestRedisDB = 14

// newIsolatedRedisClient returns a client on an empty database or skips the
// test when no Redis is reachable.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	hosts := uniqueNonEmpty(env.GetEnv("CACHE_HOST", ""), "cache", "localhost", "127.0.0.1")
	ports := uniqueNonEmpty(env.GetEnv("CACHE_PORT", "6379"), "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		for _, port := range ports {
			client := redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%s", host, port),
				Password: password,
				DB:       db,
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_, err := client.Ping(ctx).Result()
			cancel()
			if err != nil {
				_ = client.Close()
				lastErr = err
				continue
			}

			if err := client.FlushDB(context.Background()).Err(); err != nil {
				_ = client.Close()
				t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
			}
			t.Cleanup(func() {
				_ = client.FlushDB(context.Background()).Err()
				_ = client.Close()
			})
			return client
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}

func uniqueNonEmpty(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type summary struct {
	TotalBooks int64 `json:"totalBooks"`
	Categories int64 `json:"categories"`
}

func TestStoreJSON(t *testing.T) {
	SetClient(newIsolatedRedisClient(t, isolatedCacheTestRedisDB))
	t.Cleanup(func() { SetClient(nil) })

	var s Store
	require.NoError(t, s.SetJSON("statistics:library", summary{TotalBooks: 12, Categories: 3}, time.Minute))

	var got summary
	require.NoError(t, s.GetJSON("statistics:library", &got))
	assert.Equal(t, summary{TotalBooks: 12, Categories: 3}, got)

	ttl, err := GetClient().TTL(context.Background(), "statistics:library").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Delete("statistics:library"))
	err = s.GetJSON("statistics:library", &got)
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestSetAndGet(t *testing.T) {
	SetClient(newIsolatedRedisClient(t, isolatedCacheTestRedisDB))
	t.Cleanup(func() { SetClient(nil) })

	require.NoError(t, Set("hemis:probe", "ok", time.Minute))
	v, err := Get("hemis:probe")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
