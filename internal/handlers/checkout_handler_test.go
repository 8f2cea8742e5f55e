package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipmentCheckout(reference string) map[string]any {
	return map[string]any{
		"reference":   reference,
		"gateway_id":  "gw-wave",
		"purpose":     "shipment",
		"shipment_id": "ship-1",
		"amount":      "100000",
		"currency":    "XOF",
	}
}

func TestCheckoutHandler_Initiate(t *testing.T) {
	f := newFixture(t)

	t.Run("redirect checkout", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: shipmentCheckout("chk-1"), user: "u1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "chk-1", body["reference"])
		assert.Equal(t, "awaiting_confirmation", body["state"])
		result := body["result"].(map[string]any)
		assert.Equal(t, "https://pay.example/chk-1", result["launch_url"])

		tx, err := f.store.TransactionByReference(context.Background(), "chk-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, tx.Status)
	})

	t.Run("pro tier from token", func(t *testing.T) {
		req := shipmentCheckout("chk-pro")
		req["shipment_id"] = "ship-2"
		w := f.do(t, call{
			method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1",
			header: map[string]string{"X-Tier": "pro"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		tx, err := f.store.TransactionByReference(context.Background(), "chk-pro")
		require.NoError(t, err)
		assert.Equal(t, "95000", tx.Amount.String())
	})

	t.Run("validation failure", func(t *testing.T) {
		req := shipmentCheckout("")
		delete(req, "currency")
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		details := decode(t, w)["details"].(map[string]any)
		assert.Contains(t, details, "Currency")
	})

	t.Run("shipment id required for shipments", func(t *testing.T) {
		req := shipmentCheckout("")
		delete(req, "shipment_id")
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := shipmentCheckout("")
		req["surprise"] = true
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported currency", func(t *testing.T) {
		req := shipmentCheckout("")
		req["currency"] = "EUR"
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown gateway", func(t *testing.T) {
		req := shipmentCheckout("")
		req["gateway_id"] = "gw-paypal"
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: req, user: "u1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: shipmentCheckout("")})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCheckoutHandler_Status(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: shipmentCheckout("chk-1"), user: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("pending without wait", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/chk-1", user: "u1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "awaiting_confirmation", decode(t, w)["state"])
	})

	t.Run("wait times out as accepted", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/chk-1?wait=20ms", user: "u1"})
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "timed_out", decode(t, w)["state"])

		tx, err := f.store.TransactionByReference(context.Background(), "chk-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, tx.Status)
	})

	t.Run("bad wait", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/chk-1?wait=soon", user: "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/chk-1", user: "u2"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown reference", func(t *testing.T) {
		w := f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/missing", user: "u1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("completed after webhook", func(t *testing.T) {
		w := f.do(t, call{
			method: http.MethodPost, path: "/api/v1/webhooks/wave",
			body:   map[string]any{"reference": "chk-1", "succeeded": true},
			header: map[string]string{"X-Signature": "valid"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = f.do(t, call{method: http.MethodGet, path: "/api/v1/checkout/chk-1?wait=1s", user: "u1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "completed", decode(t, w)["state"])
	})
}

func TestWebhookHandler_Receive(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, call{method: http.MethodPost, path: "/api/v1/checkout", body: shipmentCheckout("chk-1"), user: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)
	signed := map[string]string{"X-Signature": "valid"}

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/wave", body: map[string]any{"reference": "chk-1", "succeeded": true}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unsigned callback")

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/wave", body: map[string]any{"reference": "chk-1", "succeeded": true}, header: signed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	tx, err := f.store.TransactionByReference(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.True(t, tx.Escrowed())

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/wave", body: map[string]any{"reference": "chk-1", "succeeded": true}, header: signed})
	assert.Equal(t, http.StatusOK, w.Code, "redelivery")

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/wave", body: map[string]any{"reference": "chk-1", "succeeded": false}, header: signed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", decode(t, w)["status"])

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/wave", body: map[string]any{"reference": "missing", "succeeded": true}, header: signed})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, call{method: http.MethodPost, path: "/api/v1/webhooks/bank_transfer", body: map[string]any{}, header: signed})
	assert.Equal(t, http.StatusNotFound, w.Code, "provider without callbacks")
}
