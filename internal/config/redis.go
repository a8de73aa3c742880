package config

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	Redis   *redis.Client
	redisMu sync.Mutex
)

// ConnectRedis initializes the shared Redis client. A failed ping is logged
// and the client is still returned; callers degrade to no cache and no lease.
func ConnectRedis(env Env) *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()

	if Redis != nil {
		return Redis
	}

	client := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] ping %s failed: %v", env.RedisAddr, err)
	} else {
		log.Printf("[REDIS] connected to %s", env.RedisAddr)
	}

	Redis = client
	return Redis
}

func PingRedis(ctx context.Context) error {
	redisMu.Lock()
	client := Redis
	redisMu.Unlock()

	if client == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func CloseRedis() {
	redisMu.Lock()
	defer redisMu.Unlock()

	if Redis != nil {
		_ = Redis.Close()
		Redis = nil
	}
}
