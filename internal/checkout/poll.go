package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"go.uber.org/zap"
)

// PollTask watches one checkout until it settles, times out or is cancelled.
type PollTask struct {
	reference string
	cancel    context.CancelFunc
	done      chan struct{}

	attempt *Attempt
	err     error
}

func (t *PollTask) Reference() string {
	return t.reference
}

// Done is closed once the task has a result.
func (t *PollTask) Done() <-chan struct{} {
	return t.done
}

// Cancel abandons the watch. The transaction is left as it is.
func (t *PollTask) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes. The error is ErrPaymentFailed,
// ErrPaymentTimeout, the context's error after cancellation, or an escrow
// failure following a completed payment.
func (t *PollTask) Wait() (*Attempt, error) {
	<-t.done
	return t.attempt, t.err
}

// Poll re-reads the transaction behind reference every poll interval until it
// is completed or failed, or until timeout passes. A failed read only skips
// that interval. A non-positive timeout uses the configured default.
func (o *Orchestrator) Poll(ctx context.Context, reference string, timeout time.Duration) *PollTask {
	if timeout <= 0 {
		timeout = o.cfg.PollTimeout
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &PollTask{reference: reference, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()
		t.attempt, t.err = o.poll(ctx, reference, timeout)
	}()
	return t
}

func (o *Orchestrator) poll(ctx context.Context, reference string, timeout time.Duration) (*Attempt, error) {
	log := o.logger.With(zap.String("reference", reference))
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	until := time.Now().Add(timeout)
	attempt := &Attempt{Reference: reference, State: StateAwaitingConfirmation}
	for reads := 1; ; reads++ {
		tx, err := o.read(ctx, reference, until)
		if err != nil {
			log.Warn("poll read failed, retrying next interval", zap.Int("read", reads), zap.Error(err))
		} else {
			attempt.Transaction = tx
			attempt.Gateway = models.Provider(tx.Metadata.Provider)

			switch tx.Status {
			case models.StatusCompleted:
				if err := attempt.advance(StateCompleted); err != nil {
					return attempt, err
				}
				attempt.Result = o.cache.get(ctx, reference)
				log.Info("poll observed completion", zap.Int("reads", reads))
				return attempt, o.settle(ctx, tx)
			case models.StatusFailed:
				if err := attempt.advance(StateFailed); err != nil {
					return attempt, err
				}
				return attempt, fmt.Errorf("checkout %s: %w", reference, ErrPaymentFailed)
			}
		}

		select {
		case <-ctx.Done():
			log.Info("poll cancelled", zap.Int("reads", reads))
			return attempt, ctx.Err()
		case <-deadline.C:
			if err := attempt.advance(StateTimedOut); err != nil {
				return attempt, err
			}
			log.Info("poll timed out", zap.Int("reads", reads), zap.Duration("timeout", timeout))
			return attempt, fmt.Errorf("checkout %s after %s: %w", reference, timeout, ErrPaymentTimeout)
		case <-ticker.C:
		}
	}
}

// read makes a single attempt, bounded by the poll deadline. The poll
// interval is the retry.
func (o *Orchestrator) read(ctx context.Context, reference string, until time.Time) (*models.Transaction, error) {
	ctx, cancel := context.WithDeadline(resilience.SingleAttempt(ctx), until)
	defer cancel()
	return o.store.TransactionByReference(ctx, reference)
}
