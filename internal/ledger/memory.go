package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformOwnerID receives released escrow funds when no payee is known.
const PlatformOwnerID = "platform"

// PayeeResolver names the wallet owner credited when a shipment's escrow is
// released.
type PayeeResolver func(shipmentID string) string

// MemoryStore is a Store held in process memory. A single mutex serializes
// every operation, which gives each call the same all-or-nothing behavior the
// database procedures provide.
type MemoryStore struct {
	mu sync.Mutex

	wallets      map[string]*models.Wallet      // by owner
	transactions map[string]*models.Transaction // by id
	byReference  map[string]string              // reference -> id
	locks        map[string]string              // shipment -> locked transaction id
	refunded     map[string]decimal.Decimal     // transaction id -> refunded total
	walletDebits map[string]*WalletPaymentResult
	refunds      map[string]*RefundResult
	adjustments  map[string]*AdjustmentResult
	gateways     []models.PaymentGateway

	payee PayeeResolver
	now   func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithPayeeResolver sets who is credited on release.
func WithPayeeResolver(r PayeeResolver) MemoryOption {
	return func(s *MemoryStore) { s.payee = r }
}

// WithGateways seeds gateway configuration rows.
func WithGateways(gateways ...models.PaymentGateway) MemoryOption {
	return func(s *MemoryStore) { s.gateways = append(s.gateways, gateways...) }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		wallets:      make(map[string]*models.Wallet),
		transactions: make(map[string]*models.Transaction),
		byReference:  make(map[string]string),
		locks:        make(map[string]string),
		refunded:     make(map[string]decimal.Decimal),
		walletDebits: make(map[string]*WalletPaymentResult),
		refunds:      make(map[string]*RefundResult),
		adjustments:  make(map[string]*AdjustmentResult),
		payee:        func(string) string { return PlatformOwnerID },
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) DepositEscrow(ctx context.Context, req EscrowDeposit) (*EscrowResult, error) {
	if req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lockedID, ok := s.locks[req.ShipmentID]; ok {
		if s.transactions[lockedID].Reference == req.Reference {
			return &EscrowResult{TransactionID: lockedID}, nil
		}
		return nil, ErrAlreadyLocked
	}

	shipmentID := req.ShipmentID
	if id, ok := s.byReference[req.Reference]; ok {
		tx := s.transactions[id]
		if tx.Status != models.StatusCompleted {
			return nil, ErrNotCompleted
		}
		if tx.Kind != models.KindPayment || tx.OwnerID != req.OwnerID || !tx.Amount.Equal(req.Amount) ||
			tx.ReleaseStatus != models.ReleaseNone || s.refunded[id].IsPositive() {
			return nil, ErrDuplicateReference
		}
		tx.ShipmentID = &shipmentID
		tx.ReleaseStatus = models.ReleaseLocked
		s.locks[shipmentID] = id
		return &EscrowResult{TransactionID: id}, nil
	}

	wallet := s.walletFor(req.OwnerID, req.Currency)
	if req.Method == models.MethodWallet {
		if wallet.Balance.LessThan(req.Amount) {
			return nil, ErrInsufficientFunds
		}
		wallet.Balance = wallet.Balance.Sub(req.Amount)
		wallet.UpdatedAt = s.now()
	}

	tx := s.insert(models.NewTransaction{
		OwnerID:    req.OwnerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Kind:       models.KindPayment,
		Method:     req.Method,
		Status:     models.StatusCompleted,
		Reference:  req.Reference,
		ShipmentID: &shipmentID,
		Metadata:   req.Metadata,
	}, wallet)
	tx.ReleaseStatus = models.ReleaseLocked
	s.locks[shipmentID] = tx.ID

	return &EscrowResult{TransactionID: tx.ID}, nil
}

func (s *MemoryStore) ReleaseEscrow(ctx context.Context, shipmentID string) (*ReleaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.locks[shipmentID]
	if !ok {
		return nil, ErrNoActiveLock
	}
	tx := s.transactions[id]

	remaining := tx.Amount.Sub(s.refunded[id])
	payee := s.walletFor(s.payee(shipmentID), tx.Currency)
	if remaining.IsPositive() {
		payee.Balance = payee.Balance.Add(remaining)
		payee.UpdatedAt = s.now()
		s.insert(models.NewTransaction{
			OwnerID:    payee.OwnerID,
			Amount:     remaining,
			Currency:   tx.Currency,
			Kind:       models.KindDeposit,
			Method:     models.MethodWallet,
			Status:     models.StatusCompleted,
			Reference:  "release:" + id,
			ShipmentID: &shipmentID,
		}, payee)
	}

	tx.ReleaseStatus = models.ReleaseReleased
	delete(s.locks, shipmentID)

	return &ReleaseResult{
		TransactionID: id,
		Message:       fmt.Sprintf("released %s %s to %s", remaining.String(), tx.Currency, payee.OwnerID),
	}, nil
}

func (s *MemoryStore) AdjustWallet(ctx context.Context, req Adjustment) (*AdjustmentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Reference != "" {
		if res, ok := s.adjustments[req.Reference]; ok {
			return res, nil
		}
	}

	wallet := s.walletFor(req.OwnerID, req.Currency)
	amount := req.Amount
	switch req.Kind {
	case models.KindDeposit:
		wallet.Balance = wallet.Balance.Add(amount)
	case models.KindWithdrawal:
		if wallet.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		wallet.Balance = wallet.Balance.Sub(amount)
		amount = amount.Neg()
	default:
		return nil, fmt.Errorf("adjust wallet: %w", ErrInvalidAmount)
	}
	wallet.UpdatedAt = s.now()

	reference := req.Reference
	if reference == "" {
		reference = "adjust:" + uuid.NewString()
	}
	metadata := req.Metadata
	if metadata.Adjustment == nil {
		metadata.Adjustment = &models.AdjustmentDetails{Description: req.Description}
	}
	tx := s.insert(models.NewTransaction{
		OwnerID:   req.OwnerID,
		Amount:    amount,
		Currency:  wallet.Currency,
		Kind:      req.Kind,
		Method:    models.MethodOffline,
		Status:    models.StatusCompleted,
		Reference: reference,
		Metadata:  metadata,
	}, wallet)

	res := &AdjustmentResult{TransactionID: tx.ID, NewBalance: wallet.Balance}
	if req.Reference != "" {
		s.adjustments[req.Reference] = res
	}
	return res, nil
}

func (s *MemoryStore) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Reference != "" {
		if res, ok := s.refunds[req.Reference]; ok {
			return res, nil
		}
	}

	orig, ok := s.transactions[req.TransactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	// Only payments moved money away from the owner. Deposits (top-ups,
	// admin credits, release payouts) are already in a wallet.
	if orig.Status != models.StatusCompleted || orig.Kind != models.KindPayment || orig.ReleaseStatus == models.ReleaseReleased {
		return nil, ErrNotRefundable
	}

	original := orig.Amount.Abs()
	total := s.refunded[orig.ID].Add(req.Amount)
	if total.GreaterThan(original) {
		return nil, ErrRefundExceedsOriginal
	}
	s.refunded[orig.ID] = total

	if orig.Escrowed() && total.Equal(original) {
		orig.ReleaseStatus = models.ReleaseNone
		if orig.ShipmentID != nil {
			delete(s.locks, *orig.ShipmentID)
		}
	}

	wallet := s.walletFor(orig.OwnerID, orig.Currency)
	wallet.Balance = wallet.Balance.Add(req.Amount)
	wallet.UpdatedAt = s.now()

	reference := req.Reference
	if reference == "" {
		reference = "refund:" + uuid.NewString()
	}
	tx := s.insert(models.NewTransaction{
		OwnerID:    orig.OwnerID,
		Amount:     req.Amount,
		Currency:   orig.Currency,
		Kind:       models.KindRefund,
		Method:     models.MethodWallet,
		Status:     models.StatusCompleted,
		Reference:  reference,
		ShipmentID: orig.ShipmentID,
		Metadata: models.Metadata{
			Refund: &models.RefundDetails{OriginalTransactionID: orig.ID, Reason: req.Reason},
		},
	}, wallet)

	res := &RefundResult{TransactionID: tx.ID}
	if req.Reference != "" {
		s.refunds[req.Reference] = res
	}
	return res, nil
}

func (s *MemoryStore) PayFromWallet(ctx context.Context, req WalletPayment) (*WalletPaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.walletDebits[req.RefID]; ok {
		return res, nil
	}

	wallet, ok := s.wallets[req.OwnerID]
	if !ok || wallet.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(req.Amount)
	wallet.UpdatedAt = s.now()

	res := &WalletPaymentResult{NewBalance: wallet.Balance}
	if id, ok := s.byReference[req.RefID]; ok {
		s.transactions[id].WalletID = wallet.ID
		res.TransactionID = id
	}
	s.walletDebits[req.RefID] = res
	return res, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, nt models.NewTransaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byReference[nt.Reference]; ok {
		return nil, ErrDuplicateReference
	}
	var walletID string
	if w, ok := s.wallets[nt.OwnerID]; ok {
		walletID = w.ID
	}
	tx := s.insert(nt, &models.Wallet{ID: walletID})
	return clone(tx), nil
}

func (s *MemoryStore) CompleteTransaction(ctx context.Context, c Completion) (*models.Transaction, error) {
	if !c.Status.Terminal() {
		return nil, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReference[c.Reference]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	tx := s.transactions[id]
	if tx.Status.Terminal() {
		if tx.Status == c.Status {
			return clone(tx), nil
		}
		return clone(tx), ErrAlreadyFinalized
	}

	tx.Status = c.Status
	if tx.Kind == models.KindDeposit && c.Status == models.StatusCompleted {
		wallet := s.walletFor(tx.OwnerID, tx.Currency)
		wallet.Balance = wallet.Balance.Add(tx.Amount)
		wallet.UpdatedAt = s.now()
		tx.WalletID = wallet.ID
	}
	if c.ProviderTransactionID != "" {
		tx.Metadata.ProviderTransactionID = c.ProviderTransactionID
	}
	return clone(tx), nil
}

func (s *MemoryStore) TransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReference[reference]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return clone(s.transactions[id]), nil
}

func (s *MemoryStore) TransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return clone(tx), nil
}

func (s *MemoryStore) Wallet(ctx context.Context, ownerID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[ownerID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Gateways(ctx context.Context) ([]models.PaymentGateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PaymentGateway, len(s.gateways))
	copy(out, s.gateways)
	return out, nil
}

// walletFor returns the owner's wallet, creating it on first use.
func (s *MemoryStore) walletFor(ownerID, currency string) *models.Wallet {
	if w, ok := s.wallets[ownerID]; ok {
		return w
	}
	now := s.now()
	w := &models.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[ownerID] = w
	return w
}

func (s *MemoryStore) insert(nt models.NewTransaction, wallet *models.Wallet) *models.Transaction {
	tx := &models.Transaction{
		ID:            uuid.NewString(),
		WalletID:      wallet.ID,
		OwnerID:       nt.OwnerID,
		Amount:        nt.Amount,
		Currency:      nt.Currency,
		Kind:          nt.Kind,
		Method:        nt.Method,
		Status:        nt.Status,
		ReleaseStatus: models.ReleaseNone,
		Reference:     nt.Reference,
		ShipmentID:    nt.ShipmentID,
		Metadata:      nt.Metadata,
		CreatedAt:     s.now(),
	}
	s.transactions[tx.ID] = tx
	s.byReference[tx.Reference] = tx.ID
	return tx
}

func clone(tx *models.Transaction) *models.Transaction {
	cp := *tx
	if tx.ShipmentID != nil {
		id := *tx.ShipmentID
		cp.ShipmentID = &id
	}
	return &cp
}
