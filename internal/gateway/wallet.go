package gateway

import (
	"context"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
)

// Wallet pays from the payer's own balance. The debit is final when Initiate
// returns.
type Wallet struct {
	store ledger.Store
}

func NewWallet(store ledger.Store) *Wallet {
	return &Wallet{store: store}
}

var _ Adapter = (*Wallet)(nil)

func (*Wallet) Provider() models.Provider { return models.ProviderWallet }
func (*Wallet) Mode() Mode { return ModeSynchronous }
func (*Wallet) PendingStatus() models.TransactionStatus { return models.StatusPending }

func (w *Wallet) Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error) {
	description := in.Description
	if description == "" {
		description = "Wallet payment " + in.Reference
	}
	res, err := w.store.PayFromWallet(ctx, ledger.WalletPayment{
		OwnerID:     in.OwnerID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		RefID:       in.Reference,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{ProviderTransactionID: res.TransactionID}, nil
}
