package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/checkout"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	mW "github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/middleware"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// maxWait caps how long a status request may hold the connection.
const maxWait = 60 * time.Second

// CheckoutService is the part of the orchestrator the handler drives.
type CheckoutService interface {
	Initiate(ctx context.Context, req checkout.InitiateRequest) (*checkout.Attempt, error)
	Status(ctx context.Context, reference string) (*checkout.Attempt, error)
	Poll(ctx context.Context, reference string, timeout time.Duration) *checkout.PollTask
}

type CheckoutHandler struct {
	service   CheckoutService
	validator *ValidationHelper
}

func NewCheckoutHandler(service CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		validator: NewValidationHelper(),
	}
}

type initiateCheckoutRequest struct {
	Reference   string          `json:"reference" validate:"omitempty,max=64"`
	GatewayID   string          `json:"gateway_id" validate:"required"`
	Purpose     string          `json:"purpose" validate:"required,oneof=shipment wallet_topup"`
	ShipmentID  string          `json:"shipment_id" validate:"required_if=Purpose shipment"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3,uppercase"`
	CouponCode  string          `json:"coupon_code" validate:"omitempty,max=64"`
	Description string          `json:"description" validate:"omitempty,max=255"`
	ReturnURL   string          `json:"return_url" validate:"omitempty,url"`
	CancelURL   string          `json:"cancel_url" validate:"omitempty,url"`
}

// Initiate starts a checkout for the authenticated user.
func (h *CheckoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID := mW.UserID(r.Context())
	if userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req initiateCheckoutRequest
	if !h.validator.decodeBody(w, r, &req) {
		return
	}

	attempt, err := h.service.Initiate(r.Context(), checkout.InitiateRequest{
		Reference:   req.Reference,
		OwnerID:     userID,
		GatewayID:   req.GatewayID,
		Purpose:     models.Purpose(req.Purpose),
		ShipmentID:  req.ShipmentID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Tier:        escrow.Tier(mW.Tier(r.Context())),
		CouponCode:  req.CouponCode,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		if attempt != nil {
			writeJSON(w, statusFor(err), attemptResponse{Attempt: attempt, Error: err.Error()})
			return
		}
		SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attemptResponse{Attempt: attempt})
}

type attemptResponse struct {
	*checkout.Attempt
	Error string `json:"error,omitempty"`
}

// Status reports a checkout. With ?wait=<duration> it holds the request
// until the payment settles or the wait passes; a client disconnect stops
// the wait and leaves the payment untouched.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := mW.UserID(r.Context())
	reference := chi.URLParam(r, "reference")

	attempt, err := h.service.Status(r.Context(), reference)
	if err != nil {
		SendServiceError(w, err)
		return
	}
	if attempt.Transaction == nil || attempt.Transaction.OwnerID != userID {
		SendErrorResponse(w, "transaction not found", http.StatusNotFound, nil)
		return
	}

	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		SendErrorResponse(w, "wait must be a duration such as 30s", http.StatusBadRequest, nil)
		return
	}
	if wait == 0 || attempt.State.Terminal() {
		writeJSON(w, http.StatusOK, attemptResponse{Attempt: attempt})
		return
	}

	polled, err := h.service.Poll(r.Context(), reference, wait).Wait()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, attemptResponse{Attempt: polled})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client went away; nobody is left to answer.
	case polled == nil:
		SendServiceError(w, err)
	default:
		writeJSON(w, statusFor(err), attemptResponse{Attempt: polled, Error: err.Error()})
	}
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	wait, err := time.ParseDuration(raw)
	if err != nil || wait < 0 {
		return 0, errors.New("invalid wait")
	}
	if wait > maxWait {
		wait = maxWait
	}
	return wait, nil
}

// statusFor maps outcomes that still come with an attempt. A timeout means
// the outcome is unknown, so the request is accepted rather than failed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrPaymentTimeout):
		return http.StatusAccepted
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired
	}
	if status := statusOrInternal(err); status < http.StatusInternalServerError {
		return status
	}
	return http.StatusServiceUnavailable
}
