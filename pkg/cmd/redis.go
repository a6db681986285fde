package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client for the media job stream.
func NewRedisClient(redisURL string) redis.UniversalClient {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse Redis URL: %w", err))
	}

	return redis.NewClient(opts)
}
