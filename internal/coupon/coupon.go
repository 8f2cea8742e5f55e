package coupon

import (
	"context"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon covers unknown, expired, exhausted and out-of-scope codes.
var ErrInvalidCoupon = resilience.NewError(http.StatusBadRequest, "invalid coupon")

// ScopeShipment is the scope checked when pricing a shipment.
const ScopeShipment = "shipment"

type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Fixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	DiscountType      DiscountType     `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	Scope             string           `json:"scope"`
}

var hundred = decimal.NewFromInt(100)

// Discount is what the coupon takes off base, never more than base or the
// coupon's cap.
func (c *Coupon) Discount(base decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case Percentage:
		d = base.Mul(c.DiscountValue).Div(hundred)
	case Fixed:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}
	if c.MaxDiscountAmount != nil && d.GreaterThan(*c.MaxDiscountAmount) {
		d = *c.MaxDiscountAmount
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(base) {
		return base
	}
	return d
}

type Validator interface {
	Validate(ctx context.Context, code, scope string) (*Coupon, error)
}

// Static validates against a fixed set of coupons keyed by code.
type Static map[string]Coupon

func (s Static) Validate(_ context.Context, code, scope string) (*Coupon, error) {
	c, ok := s[normalize(code)]
	if !ok || (c.Scope != "" && c.Scope != "all" && c.Scope != scope) {
		return nil, ErrInvalidCoupon
	}
	return &c, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
