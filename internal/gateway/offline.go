package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/notify"
)

// BankTransfer makes no external call. The payer wires the funds using the
// instructions and an administrator validates the transaction on receipt.
type BankTransfer struct{}

func NewBankTransfer() *BankTransfer { return &BankTransfer{} }

var _ Adapter = (*BankTransfer)(nil)

func (*BankTransfer) Provider() models.Provider { return models.ProviderBankTransfer }
func (*BankTransfer) Mode() Mode { return ModeOffline }
func (*BankTransfer) PendingStatus() models.TransactionStatus {
	return models.StatusPendingValidation
}

func (*BankTransfer) Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error) {
	c, err := configAs[models.BankTransferConfig](cfg)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Transfer %s %s to %s", models.RoundAmount(in.Amount, in.Currency), in.Currency, c.AccountName)
	if c.BankName != "" {
		fmt.Fprintf(&b, " at %s", c.BankName)
	}
	if c.AccountNumber != "" {
		fmt.Fprintf(&b, ", account %s", c.AccountNumber)
	}
	if c.IBAN != "" {
		fmt.Fprintf(&b, ", IBAN %s", c.IBAN)
	}
	if c.SwiftCode != "" {
		fmt.Fprintf(&b, ", SWIFT %s", c.SwiftCode)
	}
	fmt.Fprintf(&b, ". Use reference %s.", in.Reference)

	return &CheckoutResult{Instructions: b.String()}, nil
}

// Cash is paid at a collection point. Administrators are alerted so they
// expect the payer.
type Cash struct {
	notifier notify.Notifier
}

func NewCash(notifier notify.Notifier) *Cash {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Cash{notifier: notifier}
}

var _ Adapter = (*Cash)(nil)

func (*Cash) Provider() models.Provider { return models.ProviderCash }
func (*Cash) Mode() Mode { return ModeOffline }
func (*Cash) PendingStatus() models.TransactionStatus { return models.StatusPendingCash }

func (c *Cash) Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error) {
	conf, err := configAs[models.CashConfig](cfg)
	if err != nil {
		return nil, err
	}

	amount := models.RoundAmount(in.Amount, in.Currency).String()
	instructions := conf.Instructions
	if instructions == "" {
		instructions = fmt.Sprintf("Pay %s %s in cash", amount, in.Currency)
	}
	if conf.CollectionPoint != "" {
		instructions += " at " + conf.CollectionPoint
	}
	instructions += ". Reference " + in.Reference + "."

	c.notifier.Notify(ctx, notify.Alert{
		Kind:      "cash_payment",
		Title:     "Cash payment pending",
		Message:   fmt.Sprintf("%s owes %s %s in cash", in.OwnerID, amount, in.Currency),
		Reference: in.Reference,
		Data: map[string]string{
			"owner_id": in.OwnerID,
			"amount":   amount,
			"currency": in.Currency,
		},
	})

	return &CheckoutResult{Instructions: instructions}, nil
}
