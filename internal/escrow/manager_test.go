package escrow

import (
	"context"
	"testing"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/coupon"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store ledger.Store) *Manager {
	capAt := decimal.NewFromInt(3000)
	coupons := coupon.Static{
		"TENOFF":  {ID: "c-ten", Code: "TENOFF", DiscountType: coupon.Percentage, DiscountValue: decimal.NewFromInt(10), MaxDiscountAmount: &capAt},
		"FLAT500": {ID: "c-flat", Code: "FLAT500", DiscountType: coupon.Fixed, DiscountValue: decimal.NewFromInt(500), Scope: coupon.ScopeShipment},
		"HUGE":    {ID: "c-huge", Code: "HUGE", DiscountType: coupon.Fixed, DiscountValue: decimal.NewFromInt(1_000_000)},
	}
	return NewManager(store, coupons, logging.NewNoOpLogger())
}

func TestManager_Quote(t *testing.T) {
	m := newTestManager(ledger.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name      string
		base      string
		currency  string
		tier      Tier
		coupon    string
		tierOff   string
		couponOff string
		final     string
		couponID  string
	}{
		{"free tier", "100000", "XOF", TierFree, "", "0", "0", "100000", ""},
		{"starter tier", "100000", "XOF", TierStarter, "", "2000", "0", "98000", ""},
		{"pro tier", "100000", "XOF", TierPro, "", "5000", "0", "95000", ""},
		{"business tier", "100000", "XOF", TierBusiness, "", "10000", "0", "90000", ""},
		{"unknown tier", "100000", "XOF", "platinum", "", "0", "0", "100000", ""},
		{"capped percentage coupon", "100000", "XOF", TierPro, "tenoff", "5000", "3000", "92000", "c-ten"},
		{"fixed coupon", "20000", "XOF", TierFree, "FLAT500", "0", "500", "19500", "c-flat"},
		{"discounts floor at zero", "20000", "XOF", TierBusiness, "HUGE", "2000", "20000", "0", "c-huge"},
		{"minor unit rounding", "10001", "XOF", TierPro, "", "500", "0", "9501", ""},
		{"two decimal currency", "99.99", "EUR", TierStarter, "", "2", "0", "97.99", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Quote(ctx, decimal.RequireFromString(tt.base), tt.currency, tt.tier, tt.coupon)
			require.NoError(t, err)
			assert.Equal(t, tt.base, p.OriginalAmount.String())
			assert.Equal(t, tt.tierOff, p.TierDiscount.String())
			assert.Equal(t, tt.couponOff, p.CouponDiscount.String())
			assert.Equal(t, tt.final, p.FinalAmount.String())
			assert.Equal(t, tt.couponID, p.CouponID)
		})
	}

	t.Run("invalid coupon", func(t *testing.T) {
		_, err := m.Quote(ctx, decimal.NewFromInt(1000), "XOF", TierFree, "NOPE")
		assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	})

	t.Run("non positive base", func(t *testing.T) {
		_, err := m.Quote(ctx, decimal.Zero, "XOF", TierFree, "")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}

func TestManager_DepositForShipment(t *testing.T) {
	ctx := context.Background()

	t.Run("pro tier discount and idempotent repeat", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		m := newTestManager(store)
		req := DepositRequest{
			ShipmentID: "ship-1",
			OwnerID:    "u1",
			BaseAmount: decimal.NewFromInt(100_000),
			Currency:   "XOF",
			Method:     models.MethodMobileMoney,
			Tier:       TierPro,
			Reference:  "dep-1",
		}

		first, err := m.DepositForShipment(ctx, req)
		require.NoError(t, err)

		tx, err := store.TransactionByID(ctx, first.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, "95000", tx.Amount.String())
		require.NotNil(t, tx.Metadata.Pricing)
		assert.Equal(t, "100000", tx.Metadata.Pricing.OriginalAmount.String())
		assert.Equal(t, models.PurposeShipment, tx.Metadata.Purpose)
		assert.True(t, tx.Escrowed())

		second, err := m.DepositForShipment(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.TransactionID, second.TransactionID)
	})

	t.Run("wallet deposit does not double charge", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		_, err := store.AdjustWallet(ctx, ledger.Adjustment{
			OwnerID: "u1", Amount: decimal.NewFromInt(200_000), Currency: "XOF", Kind: models.KindDeposit, Description: "seed",
		})
		require.NoError(t, err)
		m := newTestManager(store)
		req := DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(100_000),
			Currency: "XOF", Method: models.MethodWallet, Tier: TierPro, Reference: "dep-1",
		}

		_, err = m.DepositForShipment(ctx, req)
		require.NoError(t, err)
		_, err = m.DepositForShipment(ctx, req)
		require.NoError(t, err)

		w, err := store.Wallet(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "105000", w.Balance.String())
	})

	t.Run("second lock is rejected", func(t *testing.T) {
		m := newTestManager(ledger.NewMemoryStore())
		req := DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(1000),
			Currency: "XOF", Method: models.MethodCard, Tier: TierFree,
		}
		_, err := m.DepositForShipment(ctx, req)
		require.NoError(t, err)
		_, err = m.DepositForShipment(ctx, req)
		assert.ErrorIs(t, err, ledger.ErrAlreadyLocked)
	})

	t.Run("invalid coupon locks nothing", func(t *testing.T) {
		m := newTestManager(ledger.NewMemoryStore())
		_, err := m.DepositForShipment(ctx, DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(1000),
			Currency: "XOF", Method: models.MethodCard, CouponCode: "BOGUS",
		})
		assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)

		_, err = m.Release(ctx, "ship-1")
		assert.ErrorIs(t, err, ledger.ErrNoActiveLock)
	})

	t.Run("unknown method", func(t *testing.T) {
		m := newTestManager(ledger.NewMemoryStore())
		_, err := m.DepositForShipment(ctx, DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(1000), Currency: "XOF", Method: "barter",
		})
		assert.ErrorIs(t, err, ErrInvalidMethod)
	})
}

func TestManager_ReleaseAndRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("second release fails with no active lock", func(t *testing.T) {
		m := newTestManager(ledger.NewMemoryStore())
		_, err := m.DepositForShipment(ctx, DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(1000), Currency: "XOF", Method: models.MethodCard,
		})
		require.NoError(t, err)

		_, err = m.Release(ctx, "ship-1")
		require.NoError(t, err)
		_, err = m.Release(ctx, "ship-1")
		assert.ErrorIs(t, err, ledger.ErrNoActiveLock)
	})

	t.Run("refund bound leaves balance untouched", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		m := newTestManager(store)
		dep, err := m.DepositForShipment(ctx, DepositRequest{
			ShipmentID: "ship-1", OwnerID: "u1", BaseAmount: decimal.NewFromInt(1000), Currency: "XOF", Method: models.MethodCard,
		})
		require.NoError(t, err)

		_, err = m.Refund(ctx, dep.TransactionID, decimal.NewFromInt(1001), "too much", "")
		assert.ErrorIs(t, err, ledger.ErrRefundExceedsOriginal)
		w, err := store.Wallet(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "0", w.Balance.String())

		_, err = m.Refund(ctx, dep.TransactionID, decimal.NewFromInt(1000), "cancelled", "")
		require.NoError(t, err)
		w, _ = store.Wallet(ctx, "u1")
		assert.Equal(t, "1000", w.Balance.String())
	})
}

func TestManager_LockPayment(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	m := newTestManager(store)
	shipment := "ship-7"

	pending, err := store.CreateTransaction(ctx, models.NewTransaction{
		OwnerID: "u1", Amount: decimal.NewFromInt(5000), Currency: "XOF", Kind: models.KindPayment,
		Method: models.MethodMobileMoney, Status: models.StatusPending, Reference: "chk-1", ShipmentID: &shipment,
	})
	require.NoError(t, err)

	_, err = m.LockPayment(ctx, pending)
	assert.ErrorIs(t, err, ledger.ErrNotCompleted)

	done, err := store.CompleteTransaction(ctx, ledger.Completion{Reference: "chk-1", Status: models.StatusCompleted})
	require.NoError(t, err)

	first, err := m.LockPayment(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, first.TransactionID)

	again, err := m.LockPayment(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, again.TransactionID)

	noShipment := *done
	noShipment.ShipmentID = nil
	_, err = m.LockPayment(ctx, &noShipment)
	assert.ErrorIs(t, err, ledger.ErrInvalidStatus)
}
