package gateway

import (
	"context"
	"fmt"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"go.uber.org/zap"
)

var displayNames = map[models.Provider]string{
	models.ProviderWave:         "Wave",
	models.ProviderCinetPay:     "CinetPay",
	models.ProviderBankTransfer: "Bank transfer",
	models.ProviderCash:         "Cash",
	models.ProviderWallet:       "Wallet",
}

// DefaultFor is the disabled placeholder shown for a provider that has no
// configuration row yet.
func DefaultFor(p models.Provider) models.PaymentGateway {
	name, ok := displayNames[p]
	if !ok {
		name = string(p)
	}
	cfg, _ := models.DecodeGatewayConfig(p, nil)
	return models.PaymentGateway{
		ID:                  "default-" + string(p),
		Provider:            p,
		Name:                name,
		IsActive:            false,
		IsTestMode:          true,
		Config:              cfg,
		SupportedCurrencies: []string{"XOF"},
	}
}

// Directory reads gateway configuration through the ledger store.
type Directory struct {
	store  ledger.Store
	logger *logging.Logger
}

func NewDirectory(store ledger.Store, logger *logging.Logger) *Directory {
	return &Directory{store: store, logger: logging.OrGlobal(logger).Named("gateways")}
}

// List returns one gateway per known provider, configured rows first in
// provider order. A failed read degrades to placeholders only.
func (d *Directory) List(ctx context.Context) []models.PaymentGateway {
	stored, err := d.store.Gateways(ctx)
	if err != nil {
		d.logger.Warn("gateway read failed, serving placeholders", zap.Error(err))
		stored = nil
	}

	byProvider := make(map[models.Provider][]models.PaymentGateway)
	for _, g := range stored {
		byProvider[g.Provider] = append(byProvider[g.Provider], g)
	}

	out := make([]models.PaymentGateway, 0, len(models.Providers))
	for _, p := range models.Providers {
		if rows := byProvider[p]; len(rows) > 0 {
			out = append(out, rows...)
			continue
		}
		out = append(out, DefaultFor(p))
	}
	return out
}

// Resolve finds an active, fully configured gateway by id or provider name.
func (d *Directory) Resolve(ctx context.Context, idOrProvider string) (*models.PaymentGateway, error) {
	stored, err := d.store.Gateways(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gateways: %w", err)
	}

	var found *models.PaymentGateway
	for i := range stored {
		g := &stored[i]
		if g.ID == idOrProvider {
			found = g
			break
		}
		if string(g.Provider) == idOrProvider && (found == nil || (!found.IsActive && g.IsActive)) {
			found = g
		}
	}
	if found == nil {
		return nil, fmt.Errorf("gateway %s: %w", idOrProvider, ErrGatewayNotFound)
	}
	if !found.IsActive {
		return nil, fmt.Errorf("gateway %s is disabled: %w", found.ID, ErrGatewayUnavailable)
	}
	if found.Config == nil {
		return nil, fmt.Errorf("gateway %s: %w", found.ID, ErrInvalidConfig)
	}
	if err := found.Config.Validate(); err != nil {
		return nil, fmt.Errorf("gateway %s: %v: %w", found.ID, err, ErrInvalidConfig)
	}
	return found, nil
}
