package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/adjust"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/audit"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/checkout"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	mW "github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/middleware"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// fakeWave launches a fixed URL and accepts callbacks carrying the header
// X-Signature: valid.
type fakeWave struct{}

func (fakeWave) Provider() models.Provider { return models.ProviderWave }
func (fakeWave) Mode() gateway.Mode        { return gateway.ModeRedirect }

func (fakeWave) PendingStatus() models.TransactionStatus {
	return models.StatusPending
}

func (fakeWave) Initiate(ctx context.Context, cfg models.GatewayConfig, in gateway.InitiateInput) (*gateway.CheckoutResult, error) {
	return &gateway.CheckoutResult{LaunchURL: "https://pay.example/" + in.Reference, ProviderTransactionID: "wave-" + in.Reference}, nil
}

func (fakeWave) ParseCallback(cfg models.GatewayConfig, header http.Header, body []byte) (*gateway.Callback, error) {
	if header.Get("X-Signature") != "valid" {
		return nil, gateway.ErrInvalidSignature
	}
	var payload struct {
		Reference string `json:"reference"`
		Succeeded bool   `json:"succeeded"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, gateway.ErrMalformedCallback
	}
	return &gateway.Callback{Reference: payload.Reference, ProviderTransactionID: "wave-" + payload.Reference, Succeeded: payload.Succeeded}, nil
}

type fixture struct {
	router http.Handler
	store  *ledger.MemoryStore
}

// withIdentity stands in for the JWT middleware.
func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := mW.WithIdentity(r.Context(), r.Header.Get("X-User"), r.Header.Get("X-Role"), r.Header.Get("X-Tier"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNoOpLogger()
	store := ledger.NewMemoryStore(ledger.WithGateways(
		models.PaymentGateway{
			ID: "gw-wave", Provider: models.ProviderWave, Name: "Wave", IsActive: true,
			Config:              models.WaveConfig{APIKey: "k", SecretKey: "s"},
			SupportedCurrencies: []string{"XOF"},
		},
		models.PaymentGateway{
			ID: "gw-bank", Provider: models.ProviderBankTransfer, Name: "Bank", IsActive: true,
			Config:              models.BankTransferConfig{BankName: "BOA", AccountNumber: "0011"},
			SupportedCurrencies: []string{"XOF"},
		},
	))

	directory := gateway.NewDirectory(store, logger)
	adapters := gateway.NewSet(fakeWave{}, gateway.NewBankTransfer())
	manager := escrow.NewManager(store, nil, logger)
	auditor := audit.NewSafe(audit.NewZapLogger(logger), logger)
	orchestrator := checkout.New(checkout.Deps{
		Store:     store,
		Directory: directory,
		Adapters:  adapters,
		Escrow:    manager,
		Logger:    logger,
	}, checkout.Config{PollInterval: 5 * time.Millisecond, PollTimeout: time.Second})

	checkoutHandler := NewCheckoutHandler(orchestrator)
	webhookHandler := NewWebhookHandler(directory, adapters, orchestrator, logger)
	accountHandler := NewAccountHandler(directory, store, "XOF")
	adminHandler := NewAdminHandler(adjust.NewService(store, manager, auditor), manager, orchestrator, auditor)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/{provider}", webhookHandler.Receive)
		r.Group(func(r chi.Router) {
			r.Use(withIdentity)
			r.Get("/gateways", accountHandler.Gateways)
			r.Get("/wallet", accountHandler.Wallet)
			r.Post("/checkout", checkoutHandler.Initiate)
			r.Get("/checkout/{reference}", checkoutHandler.Status)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mW.AdminOnly)
				r.Post("/escrow/deposit", adminHandler.Deposit)
				r.Post("/escrow/{shipmentId}/release", adminHandler.Release)
				r.Post("/transactions/{transactionId}/refund", adminHandler.Refund)
				r.Post("/wallets/{ownerId}/adjust", adminHandler.Adjust)
				r.Post("/checkout/{reference}/validate", adminHandler.ValidateOffline)
			})
		})
	})
	return &fixture{router: r, store: store}
}

type call struct {
	method string
	path   string
	body   any
	user   string
	role   string
	header map[string]string
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", c.user)
	req.Header.Set("X-Role", c.role)
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
