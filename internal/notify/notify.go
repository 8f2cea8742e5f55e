package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AdminQueue is the list administrators' tooling consumes alerts from.
const AdminQueue = "admin_alerts"

// Alert is a message for the administrators.
type Alert struct {
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Reference string            `json:"reference,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier delivers alerts. Delivery is fire-and-forget: implementations log
// their failures and never return them.
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

// RedisQueue pushes alerts onto a Redis list. A nil client only logs.
type RedisQueue struct {
	redis  *redis.Client
	queue  string
	logger *logging.Logger
}

func NewRedisQueue(client *redis.Client, logger *logging.Logger) *RedisQueue {
	return &RedisQueue{
		redis:  client,
		queue:  AdminQueue,
		logger: logging.OrGlobal(logger).Named("notify"),
	}
}

func (q *RedisQueue) Notify(ctx context.Context, alert Alert) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	log := q.logger.With(zap.String("kind", alert.Kind), zap.String("reference", alert.Reference))

	if q.redis == nil {
		log.Info("admin alert", zap.String("title", alert.Title), zap.String("message", alert.Message))
		return
	}

	data, err := json.Marshal(alert)
	if err != nil {
		log.Error("encode alert", zap.Error(err))
		return
	}
	if err := q.redis.RPush(ctx, q.queue, data).Err(); err != nil {
		log.Warn("queue alert", zap.Error(err))
	}
}

// Discard drops every alert.
type Discard struct{}

func (Discard) Notify(context.Context, Alert) {}
