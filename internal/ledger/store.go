package ledger

import (
	"context"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the durable ledger. Each method is one atomic remote operation;
// callers never compose reads and writes to emulate atomicity.
type Store interface {
	// DepositEscrow locks funds for a shipment. It fails with ErrAlreadyLocked
	// while another lock is active for the shipment. A completed payment
	// already recorded under the reference, with the same owner and amount,
	// is locked in place; anything else under that reference fails with
	// ErrDuplicateReference.
	DepositEscrow(ctx context.Context, req EscrowDeposit) (*EscrowResult, error)
	// ReleaseEscrow hands the locked funds to the payee. It fails with
	// ErrNoActiveLock when nothing is locked for the shipment.
	ReleaseEscrow(ctx context.Context, shipmentID string) (*ReleaseResult, error)
	// AdjustWallet credits or debits unconditionally, failing with
	// ErrInsufficientFunds when a withdrawal would go below zero.
	AdjustWallet(ctx context.Context, req Adjustment) (*AdjustmentResult, error)
	// Refund returns funds of a completed payment to its owner. Other kinds
	// fail with ErrNotRefundable.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	// PayFromWallet debits the owner's wallet for an internal payment.
	PayFromWallet(ctx context.Context, req WalletPayment) (*WalletPaymentResult, error)

	// CreateTransaction inserts a pending record. A reused reference fails
	// with ErrDuplicateReference and never creates a second record.
	CreateTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error)
	// CompleteTransaction moves a pending record to completed or failed. A
	// completed deposit credits the owner's wallet in the same step.
	// Repeating the same terminal status is a no-op; a different one fails
	// with ErrAlreadyFinalized.
	CompleteTransaction(ctx context.Context, c Completion) (*models.Transaction, error)
	TransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	TransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	Wallet(ctx context.Context, ownerID string) (*models.Wallet, error)
	Gateways(ctx context.Context) ([]models.PaymentGateway, error)
}

type EscrowDeposit struct {
	ShipmentID string
	OwnerID    string
	Amount     decimal.Decimal
	Currency   string
	Method     models.PaymentMethod
	Reference  string
	Metadata   models.Metadata
}

type EscrowResult struct {
	TransactionID string
}

type ReleaseResult struct {
	TransactionID string
	Message       string
}

type Adjustment struct {
	OwnerID     string
	Amount      decimal.Decimal
	Currency    string
	Kind        models.TransactionKind // deposit or withdrawal
	Description string
	Reference   string
	Metadata    models.Metadata
}

type AdjustmentResult struct {
	TransactionID string
	NewBalance    decimal.Decimal
}

type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	Reference     string
}

type RefundResult struct {
	TransactionID string
}

type WalletPayment struct {
	OwnerID     string
	Amount      decimal.Decimal
	Currency    string
	RefID       string
	Description string
}

type WalletPaymentResult struct {
	TransactionID string
	NewBalance    decimal.Decimal
}

type Completion struct {
	Reference             string
	Status                models.TransactionStatus
	ProviderTransactionID string
}
