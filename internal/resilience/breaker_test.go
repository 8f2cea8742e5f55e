package resilience

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterTransientFailures(t *testing.T) {
	b := NewBreaker("wave", BreakerConfig{MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 2}, nil)
	down := errors.New("gateway down")

	for i := 0; i < 2; i++ {
		_, err := Guard(b, func() (string, error) { return "", down })
		assert.ErrorIs(t, err, down)
	}

	calls := 0
	_, err := Guard(b, func() (string, error) {
		calls++
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("cinetpay", BreakerConfig{MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 1}, nil)
	invalid := NewError(http.StatusUnprocessableEntity, "invalid amount")

	for i := 0; i < 3; i++ {
		_, err := Guard(b, func() (int, error) { return 0, invalid })
		assert.ErrorIs(t, err, invalid)
	}
	assert.Equal(t, "closed", b.State())
}

func TestGuard_NilBreaker(t *testing.T) {
	got, err := Guard[*int](nil, func() (*int, error) { return nil, nil })
	assert.NoError(t, err)
	assert.Nil(t, got)
}
