package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindPayment    TransactionKind = "payment"
	KindRefund     TransactionKind = "refund"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindPayment, KindRefund:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
	MethodWallet       PaymentMethod = "wallet"
	MethodOffline      PaymentMethod = "offline"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodMobileMoney, MethodCard, MethodBankTransfer, MethodCash, MethodWallet, MethodOffline:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending           TransactionStatus = "pending"
	StatusPendingCash       TransactionStatus = "pending_cash"
	StatusPendingValidation TransactionStatus = "pending_validation"
	StatusCompleted         TransactionStatus = "completed"
	StatusFailed            TransactionStatus = "failed"
)

// Terminal reports whether no further status change is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Pending reports any of the awaiting states.
func (s TransactionStatus) Pending() bool {
	return s == StatusPending || s == StatusPendingCash || s == StatusPendingValidation
}

type ReleaseStatus string

const (
	ReleaseNone     ReleaseStatus = "none"
	ReleaseLocked   ReleaseStatus = "locked"
	ReleaseReleased ReleaseStatus = "released"
)

// Transaction is an append-only ledger record. Reference is globally unique
// and is the idempotency boundary for every write that creates one.
type Transaction struct {
	ID            string            `json:"id" db:"id"`
	WalletID      string            `json:"wallet_id" db:"wallet_id"`
	OwnerID       string            `json:"owner_id" db:"owner_id"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Currency      string            `json:"currency" db:"currency"`
	Kind          TransactionKind   `json:"kind" db:"kind"`
	Method        PaymentMethod     `json:"method" db:"method"`
	Status        TransactionStatus `json:"status" db:"status"`
	ReleaseStatus ReleaseStatus     `json:"release_status" db:"release_status"`
	Reference     string            `json:"reference" db:"reference"`
	ShipmentID    *string           `json:"shipment_id,omitempty" db:"shipment_id"`
	Metadata      Metadata          `json:"metadata" db:"metadata"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Escrowed reports whether the record currently holds a shipment lock.
func (t *Transaction) Escrowed() bool {
	return t.ReleaseStatus == ReleaseLocked
}

// NewTransaction is the input to a pending-record insert.
type NewTransaction struct {
	OwnerID    string
	Amount     decimal.Decimal
	Currency   string
	Kind       TransactionKind
	Method     PaymentMethod
	Status     TransactionStatus
	Reference  string
	ShipmentID *string
	Metadata   Metadata
}
