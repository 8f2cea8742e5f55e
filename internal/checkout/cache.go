package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func cacheKey(reference string) string {
	return "checkout:" + reference
}

// resultCache keeps provider answers so a repeated Initiate can hand back the
// first redirect. A nil client disables it.
type resultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func (c *resultCache) set(ctx context.Context, reference string, res *gateway.CheckoutResult) {
	if c.redis == nil || res == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("encode checkout result", zap.String("reference", reference), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, cacheKey(reference), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache checkout result", zap.String("reference", reference), zap.Error(err))
	}
}

func (c *resultCache) get(ctx context.Context, reference string) *gateway.CheckoutResult {
	if c.redis == nil {
		return nil
	}
	data, err := c.redis.Get(ctx, cacheKey(reference)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("read cached checkout result", zap.String("reference", reference), zap.Error(err))
		}
		return nil
	}
	var res gateway.CheckoutResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("decode cached checkout result", zap.String("reference", reference), zap.Error(err))
		return nil
	}
	return &res
}
