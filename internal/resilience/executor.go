package resilience

import (
	"context"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultPolicy is three attempts starting at one second, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
	}
}

// GetPolicy reads the retry policy from config
func GetPolicy() Policy {
	def := DefaultPolicy()
	viper.SetDefault("retry.max_attempts", def.MaxAttempts)
	viper.SetDefault("retry.initial_delay", def.InitialDelay)
	viper.SetDefault("retry.multiplier", def.Multiplier)

	return Policy{
		MaxAttempts:  viper.GetInt("retry.max_attempts"),
		InitialDelay: viper.GetDuration("retry.initial_delay"),
		Multiplier:   viper.GetFloat64("retry.multiplier"),
	}
}

// Delay returns the wait before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Executor runs operations under a Policy.
type Executor struct {
	policy Policy
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. A non-positive MaxAttempts means one attempt.
func NewExecutor(policy Policy, logger *logging.Logger) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &Executor{
		policy: policy,
		logger: logging.OrGlobal(logger).Named("resilience"),
		sleep:  sleepContext,
	}
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

type singleAttemptKey struct{}

// SingleAttempt marks ctx so that Execute runs each operation once. Callers
// with their own retry cadence use it to keep one read per interval.
func SingleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

func singleAttempt(ctx context.Context) bool {
	once, _ := ctx.Value(singleAttemptKey{}).(bool)
	return once
}

// Execute runs op until it succeeds, fails with a client-class error, the
// caller's context ends, or the attempt bound is reached. The last error is
// returned as-is.
func Execute[T any](ctx context.Context, e *Executor, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	if e == nil || singleAttempt(ctx) {
		return op(ctx)
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || attempt == e.policy.MaxAttempts || ctx.Err() != nil {
			return result, err
		}

		delay := e.policy.Delay(attempt)
		e.logger.Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return result, err
		}
	}
	return result, err
}

// Do is Execute for operations without a result.
func Do(ctx context.Context, e *Executor, operation string, op func(ctx context.Context) error) error {
	_, err := Execute(ctx, e, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
