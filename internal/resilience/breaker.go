package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a breaker sheds calls.
var ErrCircuitOpen = NewError(http.StatusServiceUnavailable, "circuit breaker open")

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig trips after five straight transient failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Breaker guards an external dependency. Client-class errors are the
// caller's fault and do not count against it.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *logging.Logger
}

// NewBreaker creates a named breaker.
func NewBreaker(name string, cfg BreakerConfig, logger *logging.Logger) *Breaker {
	l := logging.OrGlobal(logger).Named("breaker").With(zap.String("name", name))

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), logger: l}
}

// State reports the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Guard runs op through b. A nil breaker runs op directly.
func Guard[T any](b *Breaker, op func() (T, error)) (T, error) {
	if b == nil {
		return op()
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		return op()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Warn("call rejected by open breaker")
			var zero T
			return zero, ErrCircuitOpen
		}
		v, _ := out.(T)
		return v, err
	}
	v, _ := out.(T)
	return v, nil
}
