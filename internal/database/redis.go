package database

import (
	"context"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitRedis initializes Redis client with config. It returns nil when Redis
// cannot be reached; every Redis consumer treats a nil client as disabled.
func InitRedis(logger *logging.Logger) *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	log := logging.OrGlobal(logger)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis connection failed, continuing without Redis", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return nil
	}

	log.Info("Redis connection established", zap.String("addr", addr))
	return rdb
}
