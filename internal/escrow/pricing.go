package escrow

import (
	"context"
	"fmt"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/coupon"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// Tier is a subscription plan.
type Tier string

const (
	TierFree     Tier = "free"
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// tierRates is the percentage taken off a shipment per plan.
var tierRates = map[Tier]decimal.Decimal{
	TierFree:     decimal.Zero,
	TierStarter:  decimal.NewFromInt(2),
	TierPro:      decimal.NewFromInt(5),
	TierBusiness: decimal.NewFromInt(10),
}

var hundred = decimal.NewFromInt(100)

// TierRate returns the discount percentage for tier. Unknown tiers get none.
func TierRate(tier Tier) decimal.Decimal {
	if r, ok := tierRates[tier]; ok {
		return r
	}
	return decimal.Zero
}

// Quote prices a shipment: tier discount, then coupon discount, both taken
// from the base amount, floored at zero and rounded to the currency's minor
// unit.
func (m *Manager) Quote(ctx context.Context, base decimal.Decimal, currency string, tier Tier, couponCode string) (*models.Pricing, error) {
	if !base.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}

	p := &models.Pricing{
		OriginalAmount:   base,
		TierDiscount:     models.RoundAmount(base.Mul(TierRate(tier)).Div(hundred), currency),
		CouponDiscount:   decimal.Zero,
		SubscriptionTier: string(tier),
	}

	if couponCode != "" {
		c, err := m.coupons.Validate(ctx, couponCode, coupon.ScopeShipment)
		if err != nil {
			return nil, fmt.Errorf("coupon %s: %w", couponCode, err)
		}
		p.CouponDiscount = models.RoundAmount(c.Discount(base), currency)
		p.CouponID = c.ID
	}

	final := base.Sub(p.TotalDiscount())
	if final.IsNegative() {
		final = decimal.Zero
	}
	p.FinalAmount = models.RoundAmount(final, currency)
	return p, nil
}
