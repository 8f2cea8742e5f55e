package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Purpose says what a checkout pays for.
type Purpose string

const (
	PurposeShipment    Purpose = "shipment"
	PurposeWalletTopUp Purpose = "wallet_topup"
)

// Metadata is the transaction's detail bag with an explicit field set per
// concern. Absent sections are nil.
type Metadata struct {
	Provider              string             `json:"provider,omitempty"`
	ProviderTransactionID string             `json:"provider_transaction_id,omitempty"`
	Purpose               Purpose            `json:"purpose,omitempty"`
	Pricing               *Pricing           `json:"pricing,omitempty"`
	Refund                *RefundDetails     `json:"refund,omitempty"`
	Adjustment            *AdjustmentDetails `json:"adjustment,omitempty"`
	Offline               *OfflineDetails    `json:"offline,omitempty"`
}

// Pricing records how a charged amount was derived from the base price.
type Pricing struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	TierDiscount     decimal.Decimal `json:"tier_discount"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	SubscriptionTier string          `json:"subscription_tier,omitempty"`
	CouponID         string          `json:"coupon_id,omitempty"`
}

// TotalDiscount is the sum of all discounts applied.
func (p Pricing) TotalDiscount() decimal.Decimal {
	return p.TierDiscount.Add(p.CouponDiscount)
}

type RefundDetails struct {
	OriginalTransactionID string `json:"original_transaction_id"`
	Reason                string `json:"reason"`
}

type AdjustmentDetails struct {
	Description string `json:"description"`
	AdminID     string `json:"admin_id,omitempty"`
}

type OfflineDetails struct {
	Instructions string `json:"instructions,omitempty"`
}

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
