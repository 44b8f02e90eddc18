package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/samduuf/elibrary/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the Redis connection used for statistics and sessions.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	db, err := strconv.Atoi(env.GetEnv("CACHE_DB", "0"))
	if err != nil {
		db = 0
	}

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("Could not connect to cache: %v", err)
	} else {
		log.Infof("Successfully connected to cache: %s", pong)
	}
}

// SetClient replaces the client, used by tests pointing at an isolated database.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// SetJSON marshals value and stores it under key.
func SetJSON(key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Set(key, raw, expiration)
}

// GetJSON loads key into out. A missing key returns redis.Nil.
func GetJSON(key string, out interface{}) error {
	raw, err := GetClient().Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// Store exposes the package client through methods for callers that take an interface.
type Store struct{}

func (Store) GetJSON(key string, out interface{}) error {
	return GetJSON(key, out)
}

func (Store) SetJSON(key string, value interface{}, expiration time.Duration) error {
	return SetJSON(key, value, expiration)
}

func (Store) Delete(key string) error {
	return Delete(key)
}
