package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	mW "github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/middleware"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/shopspring/decimal"
)

type GatewayLister interface {
	List(ctx context.Context) []models.PaymentGateway
}

type WalletReader interface {
	Wallet(ctx context.Context, ownerID string) (*models.Wallet, error)
}

// AccountHandler serves the read-only account views.
type AccountHandler struct {
	gateways        GatewayLister
	wallets         WalletReader
	defaultCurrency string
}

func NewAccountHandler(gateways GatewayLister, wallets WalletReader, defaultCurrency string) *AccountHandler {
	return &AccountHandler{gateways: gateways, wallets: wallets, defaultCurrency: defaultCurrency}
}

// Gateways lists every provider with its current availability. Credentials
// are never serialized.
func (h *AccountHandler) Gateways(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"gateways": h.gateways.List(r.Context()),
	})
}

// Wallet returns the caller's balance. A user who never had a wallet sees a
// zero balance.
func (h *AccountHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	userID := mW.UserID(r.Context())
	if userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	wallet, err := h.wallets.Wallet(r.Context(), userID)
	if errors.Is(err, ledger.ErrWalletNotFound) {
		wallet = &models.Wallet{OwnerID: userID, Balance: decimal.Zero, Currency: h.defaultCurrency}
	} else if err != nil {
		SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"wallet":  wallet,
	})
}
