package handlers

import (
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/adjust"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/audit"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/checkout"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	mW "github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/middleware"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes the administrative money movements. Routes are
// mounted behind AdminOnly.
type AdminHandler struct {
	adjust    *adjust.Service
	escrow    *escrow.Manager
	confirm   Confirmer
	audit     *audit.Safe
	validator *ValidationHelper
}

func NewAdminHandler(service *adjust.Service, manager *escrow.Manager, confirm Confirmer, auditor *audit.Safe) *AdminHandler {
	return &AdminHandler{
		adjust:    service,
		escrow:    manager,
		confirm:   confirm,
		audit:     auditor,
		validator: NewValidationHelper(),
	}
}

type depositRequest struct {
	ShipmentID string          `json:"shipment_id" validate:"required"`
	OwnerID    string          `json:"owner_id" validate:"required"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Currency   string          `json:"currency" validate:"required,len=3,uppercase"`
	Method     string          `json:"method" validate:"required"`
	Tier       string          `json:"tier" validate:"omitempty,oneof=free starter pro business"`
	CouponCode string          `json:"coupon_code" validate:"omitempty,max=64"`
	Reference  string          `json:"reference" validate:"omitempty,max=64"`
}

// Deposit escrows a shipment payment collected outside checkout.
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	res, err := h.escrow.DepositForShipment(r.Context(), escrow.DepositRequest{
		ShipmentID: req.ShipmentID,
		OwnerID:    req.OwnerID,
		BaseAmount: req.BaseAmount,
		Currency:   req.Currency,
		Method:     models.PaymentMethod(req.Method),
		Tier:       escrow.Tier(req.Tier),
		CouponCode: req.CouponCode,
		Reference:  req.Reference,
	})
	if err != nil {
		SendServiceError(w, err)
		return
	}
	h.audit.Log(r.Context(), audit.Record{
		Action:     "escrow.deposit",
		Resource:   "shipment",
		ResourceID: req.ShipmentID,
		ActorID:    mW.UserID(r.Context()),
		Details: map[string]any{
			"transaction_id": res.TransactionID,
			"amount":         res.Pricing.FinalAmount.String(),
			"reference":      res.Reference,
		},
	})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "deposit": res})
}

func (h *AdminHandler) Release(w http.ResponseWriter, r *http.Request) {
	res, err := h.adjust.Release(r.Context(), mW.UserID(r.Context()), chi.URLParam(r, "shipmentId"))
	if err != nil {
		SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "release": res})
}

type refundRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"required,max=500"`
	Reference string          `json:"reference" validate:"omitempty,max=64"`
}

func (h *AdminHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	res, err := h.adjust.Refund(r.Context(), adjust.RefundRequest{
		AdminID:       mW.UserID(r.Context()),
		TransactionID: chi.URLParam(r, "transactionId"),
		Amount:        req.Amount,
		Reason:        req.Reason,
		Reference:     req.Reference,
	})
	if err != nil {
		SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "refund": res})
}

type adjustRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3,uppercase"`
	Kind        string          `json:"kind" validate:"required,oneof=deposit withdrawal"`
	Description string          `json:"description" validate:"required,max=500"`
	Reference   string          `json:"reference" validate:"omitempty,max=64"`
}

func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	res, err := h.adjust.AdminAdjust(r.Context(), adjust.AdjustRequest{
		AdminID:     mW.UserID(r.Context()),
		OwnerID:     chi.URLParam(r, "ownerId"),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Kind:        models.TransactionKind(req.Kind),
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "adjustment": res})
}

type validateRequest struct {
	Succeeded             *bool  `json:"succeeded" validate:"required"`
	ProviderTransactionID string `json:"provider_transaction_id" validate:"omitempty,max=128"`
}

// ValidateOffline records the outcome of a bank transfer or cash payment an
// administrator has checked by hand.
func (h *AdminHandler) ValidateOffline(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !h.validator.decodeBody(w, r, &req) {
		return
	}
	reference := chi.URLParam(r, "reference")

	attempt, err := h.confirm.Confirm(r.Context(), reference, checkout.Outcome{
		Succeeded:             *req.Succeeded,
		ProviderTransactionID: req.ProviderTransactionID,
	})
	if err != nil {
		SendServiceError(w, err)
		return
	}
	h.audit.Log(r.Context(), audit.Record{
		Action:     "checkout.validate",
		Resource:   "transaction",
		ResourceID: reference,
		ActorID:    mW.UserID(r.Context()),
		Severity:   audit.Warning,
		Details:    map[string]any{"succeeded": *req.Succeeded, "state": string(attempt.State)},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "checkout": attempt})
}
