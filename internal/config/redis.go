package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for the optional callback-dedup layer.
// A missing REDIS_ADDR is not an error: the DB-backed idempotency in the
// reconciler is authoritative with or without it.
func ConnectRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, callback dedup disabled: %v", addr, err)
		_ = client.Close()
		return nil
	}

	log.Println("connected to Redis")
	return client
}
