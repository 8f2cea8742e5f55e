package gateway

import (
	"context"
	"testing"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBankTransfer_Initiate(t *testing.T) {
	adapter := NewBankTransfer()
	assert.Equal(t, models.StatusPendingValidation, adapter.PendingStatus())
	assert.Equal(t, ModeOffline, adapter.Mode())

	res, err := adapter.Initiate(context.Background(), models.BankTransferConfig{
		BankName: "Ecobank", AccountName: "NextMove Cargo", IBAN: "SN08SN0100152000048500003035",
	}, InitiateInput{Reference: "chk-3", Amount: decimal.NewFromInt(40000), Currency: "XOF"})
	require.NoError(t, err)
	assert.False(t, res.Navigates())
	assert.Contains(t, res.Instructions, "40000 XOF")
	assert.Contains(t, res.Instructions, "SN08SN0100152000048500003035")
	assert.Contains(t, res.Instructions, "chk-3")

	_, err = adapter.Initiate(context.Background(), models.BankTransferConfig{BankName: "Ecobank"}, InitiateInput{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCash_Initiate(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.MatchedBy(func(a notify.Alert) bool {
		return a.Kind == "cash_payment" && a.Reference == "chk-4" && a.Data["amount"] == "7500"
	})).Once()

	adapter := NewCash(notifier)
	assert.Equal(t, models.StatusPendingCash, adapter.PendingStatus())

	res, err := adapter.Initiate(context.Background(), models.CashConfig{CollectionPoint: "Dakar Plateau office"},
		InitiateInput{Reference: "chk-4", OwnerID: "u1", Amount: decimal.NewFromInt(7500), Currency: "XOF"})
	require.NoError(t, err)
	assert.False(t, res.Navigates())
	assert.Contains(t, res.Instructions, "Dakar Plateau office")
	notifier.AssertExpectations(t)
}

func TestWallet_Initiate(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	_, err := store.AdjustWallet(ctx, ledger.Adjustment{
		OwnerID: "u1", Amount: decimal.NewFromInt(10000), Currency: "XOF", Kind: models.KindDeposit, Description: "seed",
	})
	require.NoError(t, err)

	adapter := NewWallet(store)
	assert.Equal(t, ModeSynchronous, adapter.Mode())

	_, err = adapter.Initiate(ctx, models.WalletConfig{}, InitiateInput{
		Reference: "chk-5", OwnerID: "u1", Amount: decimal.NewFromInt(4000), Currency: "XOF",
	})
	require.NoError(t, err)

	w, err := store.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "6000", w.Balance.String())

	_, err = adapter.Initiate(ctx, models.WalletConfig{}, InitiateInput{
		Reference: "chk-6", OwnerID: "u1", Amount: decimal.NewFromInt(9000), Currency: "XOF",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestSet(t *testing.T) {
	set := NewSet(NewBankTransfer(), NewCash(nil), NewCinetPay(nil, nil, nil))

	a, err := set.Adapter(models.ProviderCash)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderCash, a.Provider())

	_, err = set.Adapter(models.ProviderWave)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	_, err = set.Parser(models.ProviderCinetPay)
	assert.NoError(t, err)

	_, err = set.Parser(models.ProviderBankTransfer)
	assert.ErrorIs(t, err, ErrGatewayNotFound)
}
