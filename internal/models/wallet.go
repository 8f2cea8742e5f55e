package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the stored balance of exactly one owner. Balance is only ever
// changed by the store's atomic procedures.
type Wallet struct {
	ID        string          `json:"id" db:"id"`
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Currency  string          `json:"currency" db:"currency"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// minorUnits lists currencies without the usual two decimal places.
var minorUnits = map[string]int32{
	"XOF": 0,
	"XAF": 0,
	"GNF": 0,
	"JPY": 0,
	"KRW": 0,
}

// CurrencyExponent returns the number of decimal places used by currency.
func CurrencyExponent(currency string) int32 {
	if exp, ok := minorUnits[currency]; ok {
		return exp
	}
	return 2
}

// RoundAmount rounds amount to the currency's smallest unit.
func RoundAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(CurrencyExponent(currency))
}
