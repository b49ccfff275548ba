// Package utils holds connection helpers shared by the server and the
// pipeline tools.
package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
)

// OpenRedis opens a client with explicit parameters, for tests and manual
// injection.
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromEnv opens a client from REDIS_HOST/REDIS_PORT/REDIS_PASS and
// optional REDIS_DB. Returns nil when caching is not configured; parse
// failures fall back to DB 0.
func OpenRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	addr := host + ":" + port
	pass := os.Getenv("REDIS_PASS")
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, _ := strconv.Atoi(v); n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}
