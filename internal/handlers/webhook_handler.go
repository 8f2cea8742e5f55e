package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/checkout"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type GatewayResolver interface {
	Resolve(ctx context.Context, idOrProvider string) (*models.PaymentGateway, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, reference string, out checkout.Outcome) (*checkout.Attempt, error)
}

// WebhookHandler accepts provider callbacks. It is mounted without auth; the
// provider signature is the credential.
type WebhookHandler struct {
	gateways GatewayResolver
	adapters *gateway.Set
	confirm  Confirmer
	logger   *logging.Logger
}

func NewWebhookHandler(gateways GatewayResolver, adapters *gateway.Set, confirm Confirmer, logger *logging.Logger) *WebhookHandler {
	return &WebhookHandler{
		gateways: gateways,
		adapters: adapters,
		confirm:  confirm,
		logger:   logging.OrGlobal(logger).Named("webhook"),
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	provider := models.Provider(chi.URLParam(r, "provider"))
	log := h.logger.With(zap.String("provider", string(provider)))

	parser, err := h.adapters.Parser(provider)
	if err != nil {
		SendErrorResponse(w, "unknown provider", http.StatusNotFound, nil)
		return
	}
	gw, err := h.gateways.Resolve(r.Context(), string(provider))
	if err != nil {
		log.Warn("callback for unusable gateway", zap.Error(err))
		SendServiceError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	cb, err := parser.ParseCallback(gw.Config, r.Header, body)
	if err != nil {
		log.Warn("callback rejected", zap.Error(err))
		SendServiceError(w, err)
		return
	}
	log = log.With(zap.String("reference", cb.Reference), zap.Bool("succeeded", cb.Succeeded))

	attempt, err := h.confirm.Confirm(r.Context(), cb.Reference, checkout.Outcome{
		Succeeded:             cb.Succeeded,
		ProviderTransactionID: cb.ProviderTransactionID,
	})
	if errors.Is(err, ledger.ErrAlreadyFinalized) {
		// Acknowledge so the provider stops redelivering; the stored outcome stands.
		log.Warn("callback conflicts with finalized transaction")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		log.Error("confirm callback", zap.Error(err))
		SendServiceError(w, err)
		return
	}

	log.Info("callback applied", zap.String("state", string(attempt.State)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
