package adjust

import (
	"context"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/audit"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/shopspring/decimal"
)

var (
	ErrDescriptionRequired = resilience.NewError(http.StatusBadRequest, "description is required")
	ErrInvalidKind         = resilience.NewError(http.StatusBadRequest, "kind must be deposit or withdrawal")
)

// Service is the administrative entry point for balance corrections,
// refunds and escrow releases. Each success is audited; audit failures never
// reach the caller.
type Service struct {
	store  ledger.Store
	escrow *escrow.Manager
	audit  *audit.Safe
}

func NewService(store ledger.Store, manager *escrow.Manager, auditor *audit.Safe) *Service {
	return &Service{store: store, escrow: manager, audit: auditor}
}

type AdjustRequest struct {
	AdminID     string
	OwnerID     string
	Amount      decimal.Decimal
	Currency    string
	Kind        models.TransactionKind
	Description string
	Reference   string
}

func (s *Service) AdminAdjust(ctx context.Context, req AdjustRequest) (*ledger.AdjustmentResult, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if req.Kind != models.KindDeposit && req.Kind != models.KindWithdrawal {
		return nil, ErrInvalidKind
	}
	if !req.Amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}

	res, err := s.store.AdjustWallet(ctx, ledger.Adjustment{
		OwnerID:     req.OwnerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Kind:        req.Kind,
		Description: description,
		Reference:   req.Reference,
		Metadata: models.Metadata{
			Adjustment: &models.AdjustmentDetails{Description: description, AdminID: req.AdminID},
		},
	})
	if err != nil {
		return nil, err
	}

	severity := audit.Info
	if req.Kind == models.KindWithdrawal {
		severity = audit.Warning
	}
	s.audit.Log(ctx, audit.Record{
		Action:     "wallet.adjust",
		Resource:   "wallet",
		ResourceID: req.OwnerID,
		ActorID:    req.AdminID,
		Severity:   severity,
		Details: map[string]any{
			"kind":           string(req.Kind),
			"amount":         req.Amount.String(),
			"description":    description,
			"transaction_id": res.TransactionID,
			"new_balance":    res.NewBalance.String(),
		},
	})
	return res, nil
}

type RefundRequest struct {
	AdminID       string
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	Reference     string
}

func (s *Service) Refund(ctx context.Context, req RefundRequest) (*ledger.RefundResult, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrDescriptionRequired
	}
	res, err := s.escrow.Refund(ctx, req.TransactionID, req.Amount, req.Reason, req.Reference)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Record{
		Action:     "transaction.refund",
		Resource:   "transaction",
		ResourceID: req.TransactionID,
		ActorID:    req.AdminID,
		Severity:   audit.Warning,
		Details: map[string]any{
			"amount":    req.Amount.String(),
			"reason":    req.Reason,
			"refund_id": res.TransactionID,
		},
	})
	return res, nil
}

func (s *Service) Release(ctx context.Context, adminID, shipmentID string) (*ledger.ReleaseResult, error) {
	res, err := s.escrow.Release(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Record{
		Action:     "escrow.release",
		Resource:   "shipment",
		ResourceID: shipmentID,
		ActorID:    adminID,
		Severity:   audit.Info,
		Details: map[string]any{
			"transaction_id": res.TransactionID,
			"message":        res.Message,
		},
	})
	return res, nil
}
