package escrow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/coupon"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidMethod = resilience.NewError(http.StatusBadRequest, "unsupported payment method")

// Manager moves shipment funds into and out of escrow. The store enforces
// the single-lock rule; the manager never checks it itself.
type Manager struct {
	store   ledger.Store
	coupons coupon.Validator
	logger  *logging.Logger
}

func NewManager(store ledger.Store, coupons coupon.Validator, logger *logging.Logger) *Manager {
	if coupons == nil {
		coupons = coupon.Static{}
	}
	return &Manager{
		store:   store,
		coupons: coupons,
		logger:  logging.OrGlobal(logger).Named("escrow"),
	}
}

type DepositRequest struct {
	ShipmentID string
	OwnerID    string
	BaseAmount decimal.Decimal
	Currency   string
	Method     models.PaymentMethod
	Tier       Tier
	CouponCode string
	// Reference makes the deposit idempotent. Generated when empty.
	Reference string
}

type DepositResult struct {
	TransactionID string          `json:"transaction_id"`
	Reference     string          `json:"reference"`
	Pricing       *models.Pricing `json:"pricing"`
}

// DepositForShipment prices the shipment and locks the final amount.
func (m *Manager) DepositForShipment(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("method %q: %w", req.Method, ErrInvalidMethod)
	}
	pricing, err := m.Quote(ctx, req.BaseAmount, req.Currency, req.Tier, req.CouponCode)
	if err != nil {
		return nil, err
	}

	reference := req.Reference
	if reference == "" {
		reference = "escrow-" + uuid.NewString()
	}

	res, err := m.store.DepositEscrow(ctx, ledger.EscrowDeposit{
		ShipmentID: req.ShipmentID,
		OwnerID:    req.OwnerID,
		Amount:     pricing.FinalAmount,
		Currency:   req.Currency,
		Method:     req.Method,
		Reference:  reference,
		Metadata: models.Metadata{
			Purpose: models.PurposeShipment,
			Pricing: pricing,
		},
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("shipment escrowed",
		zap.String("shipment_id", req.ShipmentID),
		zap.String("transaction_id", res.TransactionID),
		zap.String("amount", pricing.FinalAmount.String()),
		zap.String("original_amount", pricing.OriginalAmount.String()),
	)
	return &DepositResult{TransactionID: res.TransactionID, Reference: reference, Pricing: pricing}, nil
}

// LockPayment escrows a checkout payment once it is completed. Calling it
// again for the same payment returns the same lock.
func (m *Manager) LockPayment(ctx context.Context, tx *models.Transaction) (*ledger.EscrowResult, error) {
	if tx.Status != models.StatusCompleted {
		return nil, ledger.ErrNotCompleted
	}
	if tx.ShipmentID == nil || *tx.ShipmentID == "" {
		return nil, fmt.Errorf("transaction %s has no shipment: %w", tx.ID, ledger.ErrInvalidStatus)
	}

	res, err := m.store.DepositEscrow(ctx, ledger.EscrowDeposit{
		ShipmentID: *tx.ShipmentID,
		OwnerID:    tx.OwnerID,
		Amount:     tx.Amount,
		Currency:   tx.Currency,
		Method:     tx.Method,
		Reference:  tx.Reference,
		Metadata:   tx.Metadata,
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("checkout payment escrowed",
		zap.String("shipment_id", *tx.ShipmentID),
		zap.String("reference", tx.Reference),
	)
	return res, nil
}

// Release pays the locked funds out. A second release fails with
// ledger.ErrNoActiveLock.
func (m *Manager) Release(ctx context.Context, shipmentID string) (*ledger.ReleaseResult, error) {
	res, err := m.store.ReleaseEscrow(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("escrow released", zap.String("shipment_id", shipmentID), zap.String("transaction_id", res.TransactionID))
	return res, nil
}

// Refund returns up to the original amount to the payer.
func (m *Manager) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason, reference string) (*ledger.RefundResult, error) {
	res, err := m.store.Refund(ctx, ledger.RefundRequest{
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
		Reference:     reference,
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("transaction refunded",
		zap.String("transaction_id", transactionID),
		zap.String("refund_id", res.TransactionID),
		zap.String("amount", amount.String()),
	)
	return res, nil
}
