package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waveInput() InitiateInput {
	return InitiateInput{
		Reference: "chk-1",
		OwnerID:   "u1",
		Amount:    decimal.NewFromInt(95000),
		Currency:  "XOF",
		ReturnURL: "https://app.example/checkout/success",
		CancelURL: "https://app.example/checkout/error",
	}
}

func TestWave_Initiate(t *testing.T) {
	t.Run("returns launch url and qr code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
			assert.Equal(t, "Bearer wave-key", r.Header.Get("Authorization"))
			assert.Equal(t, "chk-1", r.Header.Get("Idempotency-Key"))

			var body waveSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "95000", body.Amount)
			assert.Equal(t, "chk-1", body.ClientReference)

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"cos-1","wave_launch_url":"https://pay.wave.com/c/cos-1","checkout_status":"open"}`)
		}))
		defer srv.Close()

		adapter := NewWave(srv.Client(), nil, logging.NewNoOpLogger())
		cfg := models.WaveConfig{APIKey: "wave-key", SecretKey: "s", BaseURL: srv.URL}

		res, err := adapter.Initiate(context.Background(), cfg, waveInput())
		require.NoError(t, err)
		assert.Equal(t, "https://pay.wave.com/c/cos-1", res.LaunchURL)
		assert.Equal(t, "cos-1", res.ProviderTransactionID)
		assert.True(t, strings.HasPrefix(res.QRCode, "data:image/png;base64,"))
		assert.True(t, res.Navigates())
	})

	t.Run("incomplete config is rejected without a call", func(t *testing.T) {
		adapter := NewWave(nil, nil, logging.NewNoOpLogger())
		_, err := adapter.Initiate(context.Background(), models.WaveConfig{SecretKey: "s"}, waveInput())
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.True(t, resilience.IsClientError(err))
	})

	t.Run("server errors are unavailable and retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		adapter := NewWave(srv.Client(), nil, logging.NewNoOpLogger())
		_, err := adapter.Initiate(context.Background(), models.WaveConfig{APIKey: "k", SecretKey: "s", BaseURL: srv.URL}, waveInput())
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
		assert.True(t, resilience.IsRetryable(err))
	})

	t.Run("refused credentials are invalid config", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		adapter := NewWave(srv.Client(), nil, logging.NewNoOpLogger())
		_, err := adapter.Initiate(context.Background(), models.WaveConfig{APIKey: "k", SecretKey: "s", BaseURL: srv.URL}, waveInput())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("breaker sheds calls after repeated failures", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		breaker := resilience.NewBreaker("wave", resilience.BreakerConfig{
			MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 2,
		}, logging.NewNoOpLogger())
		adapter := NewWave(srv.Client(), breaker, logging.NewNoOpLogger())
		cfg := models.WaveConfig{APIKey: "k", SecretKey: "s", BaseURL: srv.URL}

		for i := 0; i < 3; i++ {
			_, err := adapter.Initiate(context.Background(), cfg, waveInput())
			assert.ErrorIs(t, err, ErrGatewayUnavailable)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, "open", breaker.State())
	})
}

func TestWave_ParseCallback(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	adapter := NewWave(nil, nil, logging.NewNoOpLogger())
	adapter.now = func() time.Time { return now }
	cfg := models.WaveConfig{APIKey: "k", SecretKey: "wave-secret"}

	body := []byte(`{"type":"checkout.session.completed","data":{"id":"cos-1","client_reference":"chk-1","payment_status":"succeeded"}}`)
	signed := func(ts int64, secret string, body []byte) http.Header {
		stamp := fmt.Sprintf("%d", ts)
		h := http.Header{}
		h.Set(waveSignatureHeader, fmt.Sprintf("t=%s,v1=%s", stamp, sign(secret, append([]byte(stamp), body...))))
		return h
	}

	t.Run("valid signature", func(t *testing.T) {
		cb, err := adapter.ParseCallback(cfg, signed(now.Unix(), "wave-secret", body), body)
		require.NoError(t, err)
		assert.Equal(t, "chk-1", cb.Reference)
		assert.Equal(t, "cos-1", cb.ProviderTransactionID)
		assert.True(t, cb.Succeeded)
	})

	t.Run("failed payment", func(t *testing.T) {
		failed := []byte(`{"type":"checkout.session.payment_failed","data":{"id":"cos-2","client_reference":"chk-2","payment_status":"cancelled"}}`)
		cb, err := adapter.ParseCallback(cfg, signed(now.Unix(), "wave-secret", failed), failed)
		require.NoError(t, err)
		assert.False(t, cb.Succeeded)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := adapter.ParseCallback(cfg, signed(now.Unix(), "other", body), body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := adapter.ParseCallback(cfg, signed(now.Add(-time.Hour).Unix(), "wave-secret", body), body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := adapter.ParseCallback(cfg, http.Header{}, body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}
