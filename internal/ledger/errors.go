package ledger

import (
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
)

// Business-rule failures raised by the store. None of them is retried.
var (
	ErrAlreadyLocked         = resilience.NewError(http.StatusConflict, "shipment already has an active escrow lock")
	ErrNoActiveLock          = resilience.NewError(http.StatusConflict, "no active escrow lock for shipment")
	ErrInsufficientFunds     = resilience.NewError(http.StatusConflict, "insufficient funds")
	ErrRefundExceedsOriginal = resilience.NewError(http.StatusConflict, "refund exceeds original transaction amount")
	ErrNotRefundable         = resilience.NewError(http.StatusConflict, "transaction is not refundable")
	ErrNotCompleted          = resilience.NewError(http.StatusConflict, "transaction is not completed")
	ErrAlreadyFinalized      = resilience.NewError(http.StatusConflict, "transaction already reached a terminal status")
	ErrDuplicateReference    = resilience.NewError(http.StatusConflict, "reference already used")
	ErrTransactionNotFound   = resilience.NewError(http.StatusNotFound, "transaction not found")
	ErrWalletNotFound        = resilience.NewError(http.StatusNotFound, "wallet not found")
	ErrInvalidAmount         = resilience.NewError(http.StatusBadRequest, "amount must be greater than zero")
	ErrInvalidStatus         = resilience.NewError(http.StatusBadRequest, "status must be completed or failed")
)
