package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/notify"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest  = resilience.NewError(http.StatusBadRequest, "invalid checkout request")
	ErrNothingToCharge = resilience.NewError(http.StatusBadRequest, "discounts cover the full amount")
	ErrPaymentFailed   = resilience.NewError(http.StatusPaymentRequired, "payment failed")
	ErrPaymentTimeout  = resilience.NewTimeout("payment outcome not observed in time")
	ErrReferenceInUse  = resilience.NewError(http.StatusConflict, "reference belongs to another checkout")
)

// Deps are the orchestrator's collaborators. Redis and Notifier are optional.
type Deps struct {
	Store     ledger.Store
	Directory *gateway.Directory
	Adapters  *gateway.Set
	Escrow    *escrow.Manager
	Executor  *resilience.Executor
	Redis     *redis.Client
	Notifier  notify.Notifier
	Logger    *logging.Logger
}

// Orchestrator drives checkout attempts from initiation to a terminal status.
type Orchestrator struct {
	store    ledger.Store
	gateways *gateway.Directory
	adapters *gateway.Set
	escrow   *escrow.Manager
	exec     *resilience.Executor
	notifier notify.Notifier
	cache    *resultCache
	cfg      Config
	logger   *logging.Logger
}

func New(deps Deps, cfg Config) *Orchestrator {
	logger := logging.OrGlobal(deps.Logger).Named("checkout")
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	cfg = cfg.withDefaults()
	return &Orchestrator{
		store:    deps.Store,
		gateways: deps.Directory,
		adapters: deps.Adapters,
		escrow:   deps.Escrow,
		exec:     deps.Executor,
		notifier: notifier,
		cache:    &resultCache{redis: deps.Redis, ttl: cfg.ResultTTL, logger: logger},
		cfg:      cfg,
		logger:   logger,
	}
}

type InitiateRequest struct {
	// Reference is the caller's idempotency key. Empty means generate one.
	Reference string
	OwnerID   string
	GatewayID string
	Purpose   models.Purpose
	// ShipmentID is required when Purpose is shipment.
	ShipmentID string
	// Amount is the base price for shipments and the credited amount for top-ups.
	Amount      decimal.Decimal
	Currency    string
	Tier        escrow.Tier
	CouponCode  string
	Description string
	ReturnURL   string
	CancelURL   string
}

func (r InitiateRequest) validate() error {
	switch {
	case strings.TrimSpace(r.OwnerID) == "":
		return fmt.Errorf("owner is required: %w", ErrInvalidRequest)
	case strings.TrimSpace(r.GatewayID) == "":
		return fmt.Errorf("gateway is required: %w", ErrInvalidRequest)
	case r.Currency == "":
		return fmt.Errorf("currency is required: %w", ErrInvalidRequest)
	case !r.Amount.IsPositive():
		return ledger.ErrInvalidAmount
	}
	switch r.Purpose {
	case models.PurposeShipment:
		if strings.TrimSpace(r.ShipmentID) == "" {
			return fmt.Errorf("shipment is required: %w", ErrInvalidRequest)
		}
	case models.PurposeWalletTopUp:
	default:
		return fmt.Errorf("unknown purpose %q: %w", r.Purpose, ErrInvalidRequest)
	}
	return nil
}

// Initiate records a pending transaction and asks the gateway to start
// collecting. The transaction is written before the provider is called and is
// left pending when the provider call fails. Repeating a known reference
// returns the existing attempt without calling the provider again.
func (o *Orchestrator) Initiate(ctx context.Context, req InitiateRequest) (*Attempt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Reference != "" {
		attempt, err := o.existing(ctx, req.Reference, req.OwnerID)
		if err != nil || attempt != nil {
			return attempt, err
		}
	}

	gw, err := o.gateways.Resolve(ctx, req.GatewayID)
	if err != nil {
		return nil, err
	}
	if !gw.SupportsCurrency(req.Currency) {
		return nil, fmt.Errorf("%s via %s: %w", req.Currency, gw.Provider, gateway.ErrUnsupportedCurrency)
	}
	if gw.Provider == models.ProviderWallet && req.Purpose == models.PurposeWalletTopUp {
		return nil, fmt.Errorf("wallet cannot fund itself: %w", ErrInvalidRequest)
	}
	adapter, err := o.adapters.Adapter(gw.Provider)
	if err != nil {
		return nil, err
	}

	nt := models.NewTransaction{
		OwnerID:  req.OwnerID,
		Amount:   models.RoundAmount(req.Amount, req.Currency),
		Currency: req.Currency,
		Kind:     models.KindDeposit,
		Method:   gw.Provider.Method(),
		Status:   adapter.PendingStatus(),
		Metadata: models.Metadata{Provider: string(gw.Provider), Purpose: req.Purpose},
	}
	if req.Purpose == models.PurposeShipment {
		pricing, err := o.escrow.Quote(ctx, req.Amount, req.Currency, req.Tier, req.CouponCode)
		if err != nil {
			return nil, err
		}
		if !pricing.FinalAmount.IsPositive() {
			return nil, ErrNothingToCharge
		}
		shipmentID := req.ShipmentID
		nt.Amount = pricing.FinalAmount
		nt.Kind = models.KindPayment
		nt.ShipmentID = &shipmentID
		nt.Metadata.Pricing = pricing
	}

	nt.Reference = req.Reference
	if nt.Reference == "" {
		nt.Reference = "chk_" + uuid.NewString()
	}
	log := o.logger.With(zap.String("reference", nt.Reference), zap.String("provider", string(gw.Provider)))

	tx, err := o.store.CreateTransaction(ctx, nt)
	if errors.Is(err, ledger.ErrDuplicateReference) {
		// Lost a race with a concurrent Initiate for the same reference.
		return o.existing(ctx, nt.Reference, req.OwnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("record pending checkout: %w", err)
	}
	attempt := &Attempt{Reference: tx.Reference, State: StateInitiated, Gateway: gw.Provider, Transaction: tx}

	in := gateway.InitiateInput{
		Reference:   tx.Reference,
		OwnerID:     tx.OwnerID,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		NotifyURL:   o.cfg.PublicBaseURL + "/api/v1/webhooks/" + string(gw.Provider),
	}
	// Synchronous adapters write to the ledger, whose store already retries.
	exec := o.exec
	if adapter.Mode() == gateway.ModeSynchronous {
		exec = nil
	}
	result, err := resilience.Execute(ctx, exec, "gateway."+string(gw.Provider)+".initiate",
		func(ctx context.Context) (*gateway.CheckoutResult, error) {
			return adapter.Initiate(ctx, gw.Config, in)
		})
	if err != nil {
		log.Error("gateway initiate failed, transaction left pending", zap.Error(err))
		if adapter.Mode() == gateway.ModeSynchronous && resilience.IsClientError(err) {
			return o.rejectSynchronous(ctx, attempt, err)
		}
		return nil, fmt.Errorf("initiate %s checkout: %w", gw.Provider, err)
	}
	attempt.Result = result
	o.cache.set(ctx, tx.Reference, result)

	if adapter.Mode() == gateway.ModeSynchronous {
		confirmed, err := o.Confirm(ctx, tx.Reference, Outcome{Succeeded: true, ProviderTransactionID: result.ProviderTransactionID})
		if confirmed != nil {
			confirmed.Result = result
		}
		return confirmed, err
	}

	if err := attempt.advance(StateAwaitingConfirmation); err != nil {
		return nil, err
	}
	log.Info("checkout initiated",
		zap.String("mode", string(adapter.Mode())),
		zap.String("amount", tx.Amount.String()),
		zap.Bool("navigates", result.Navigates()),
	)
	return attempt, nil
}

// rejectSynchronous fails the record of a synchronous payment the adapter
// refused outright. Nothing was charged.
func (o *Orchestrator) rejectSynchronous(ctx context.Context, attempt *Attempt, cause error) (*Attempt, error) {
	tx, err := o.store.CompleteTransaction(ctx, ledger.Completion{Reference: attempt.Reference, Status: models.StatusFailed})
	if err != nil {
		o.logger.Error("mark rejected payment failed", zap.String("reference", attempt.Reference), zap.Error(err))
		return nil, cause
	}
	attempt.Transaction = tx
	if err := attempt.advance(StateFailed); err != nil {
		return nil, err
	}
	return attempt, cause
}

// existing returns the attempt already recorded under reference, or nil when
// there is none.
func (o *Orchestrator) existing(ctx context.Context, reference, ownerID string) (*Attempt, error) {
	tx, err := o.store.TransactionByReference(ctx, reference)
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up checkout %s: %w", reference, err)
	}
	if tx.OwnerID != ownerID {
		return nil, ErrReferenceInUse
	}
	return o.attemptFor(ctx, tx), nil
}

func (o *Orchestrator) attemptFor(ctx context.Context, tx *models.Transaction) *Attempt {
	return &Attempt{
		Reference:   tx.Reference,
		State:       stateOf(tx.Status),
		Gateway:     models.Provider(tx.Metadata.Provider),
		Result:      o.cache.get(ctx, tx.Reference),
		Transaction: tx,
	}
}

// Status reads the current attempt for reference.
func (o *Orchestrator) Status(ctx context.Context, reference string) (*Attempt, error) {
	tx, err := o.store.TransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return o.attemptFor(ctx, tx), nil
}

// Outcome is the result a provider, webhook or administrator reports.
type Outcome struct {
	Succeeded             bool
	ProviderTransactionID string
}

// Confirm records the outcome of a checkout. Repeating the same outcome is a
// no-op, so at-least-once callbacks are safe; a conflicting outcome for a
// finalized record fails with ledger.ErrAlreadyFinalized and changes nothing.
func (o *Orchestrator) Confirm(ctx context.Context, reference string, out Outcome) (*Attempt, error) {
	status := models.StatusFailed
	if out.Succeeded {
		status = models.StatusCompleted
	}

	tx, err := o.store.CompleteTransaction(ctx, ledger.Completion{
		Reference:             reference,
		Status:                status,
		ProviderTransactionID: out.ProviderTransactionID,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyFinalized) && tx != nil {
			o.logger.Warn("conflicting outcome for finalized checkout",
				zap.String("reference", reference),
				zap.String("status", string(tx.Status)),
				zap.String("reported", string(status)),
			)
			return o.attemptFor(ctx, tx), err
		}
		return nil, err
	}

	attempt := o.attemptFor(ctx, tx)
	o.logger.Info("checkout confirmed", zap.String("reference", reference), zap.String("status", string(tx.Status)))
	if tx.Status == models.StatusCompleted {
		if err := o.settle(ctx, tx); err != nil {
			return attempt, err
		}
	}
	return attempt, nil
}

// settle runs what a completed payment unlocks. Shipment payments are
// escrowed here and nowhere else.
func (o *Orchestrator) settle(ctx context.Context, tx *models.Transaction) error {
	if tx.Metadata.Purpose != models.PurposeShipment || tx.ShipmentID == nil {
		return nil
	}
	if _, err := o.escrow.LockPayment(ctx, tx); err != nil {
		o.logger.Error("escrow completed payment",
			zap.String("reference", tx.Reference),
			zap.String("shipment_id", *tx.ShipmentID),
			zap.Error(err),
		)
		o.notifier.Notify(ctx, notify.Alert{
			Kind:      "escrow_lock_failed",
			Title:     "Completed payment could not be escrowed",
			Message:   err.Error(),
			Reference: tx.Reference,
			Data: map[string]string{
				"shipment_id": *tx.ShipmentID,
				"amount":      tx.Amount.String(),
				"currency":    tx.Currency,
			},
		})
		return fmt.Errorf("escrow payment %s: %w", tx.Reference, err)
	}
	return nil
}
