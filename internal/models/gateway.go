package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/shopspring/decimal"
)

// ErrInvalidConfig marks a gateway whose stored config cannot serve payments.
var ErrInvalidConfig = resilience.NewError(http.StatusUnprocessableEntity, "payment gateway is not configured")

type Provider string

const (
	ProviderWave         Provider = "wave"
	ProviderCinetPay     Provider = "cinetpay"
	ProviderBankTransfer Provider = "bank_transfer"
	ProviderCash         Provider = "cash"
	ProviderWallet       Provider = "wallet"
)

// Providers lists every provider the service knows, in display order.
var Providers = []Provider{
	ProviderWave,
	ProviderCinetPay,
	ProviderBankTransfer,
	ProviderCash,
	ProviderWallet,
}

// Method maps a provider to the transaction method it produces.
func (p Provider) Method() PaymentMethod {
	switch p {
	case ProviderWave:
		return MethodMobileMoney
	case ProviderCinetPay:
		return MethodCard
	case ProviderBankTransfer:
		return MethodBankTransfer
	case ProviderCash:
		return MethodCash
	case ProviderWallet:
		return MethodWallet
	}
	return MethodOffline
}

// PaymentGateway is an administrator-managed provider configuration.
type PaymentGateway struct {
	ID                    string          `json:"id" db:"id"`
	Provider              Provider        `json:"provider" db:"provider"`
	Name                  string          `json:"name" db:"name"`
	IsActive              bool            `json:"is_active" db:"is_active"`
	IsTestMode            bool            `json:"is_test_mode" db:"is_test_mode"`
	Config                GatewayConfig   `json:"-" db:"config"`
	SupportedCurrencies   []string        `json:"supported_currencies" db:"supported_currencies"`
	TransactionFeePercent decimal.Decimal `json:"transaction_fee_percent" db:"transaction_fee_percent"`
}

// SupportsCurrency reports whether currency may be charged through g.
func (g *PaymentGateway) SupportsCurrency(currency string) bool {
	for _, c := range g.SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// GatewayConfig is one of the per-provider credential sets below.
type GatewayConfig interface {
	Provider() Provider
	// Validate reports which required field is missing.
	Validate() error
}

type WaveConfig struct {
	APIKey     string `json:"api_key"`
	SecretKey  string `json:"secret_key"`
	MerchantID string `json:"merchant_id"`
	BaseURL    string `json:"base_url,omitempty"`
}

func (WaveConfig) Provider() Provider { return ProviderWave }

func (c WaveConfig) Validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("wave: api_key is required")
	case c.SecretKey == "":
		return errors.New("wave: secret_key is required")
	}
	return nil
}

type CinetPayConfig struct {
	APIKey    string `json:"apikey"`
	SiteID    string `json:"site_id"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url,omitempty"`
}

func (CinetPayConfig) Provider() Provider { return ProviderCinetPay }

func (c CinetPayConfig) Validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("cinetpay: apikey is required")
	case c.SiteID == "":
		return errors.New("cinetpay: site_id is required")
	case c.SecretKey == "":
		return errors.New("cinetpay: secret_key is required")
	}
	return nil
}

type BankTransferConfig struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
}

func (BankTransferConfig) Provider() Provider { return ProviderBankTransfer }

func (c BankTransferConfig) Validate() error {
	if c.AccountNumber == "" && c.IBAN == "" {
		return errors.New("bank_transfer: account_number or iban is required")
	}
	return nil
}

type CashConfig struct {
	Instructions    string `json:"instructions"`
	CollectionPoint string `json:"collection_point,omitempty"`
}

func (CashConfig) Provider() Provider { return ProviderCash }
func (CashConfig) Validate() error    { return nil }

type WalletConfig struct{}

func (WalletConfig) Provider() Provider { return ProviderWallet }
func (WalletConfig) Validate() error    { return nil }

// DecodeGatewayConfig decodes a raw config document for provider.
func DecodeGatewayConfig(provider Provider, raw []byte) (GatewayConfig, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var cfg GatewayConfig
	switch provider {
	case ProviderWave:
		var c WaveConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode wave config: %v: %w", err, ErrInvalidConfig)
		}
		cfg = c
	case ProviderCinetPay:
		var c CinetPayConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode cinetpay config: %v: %w", err, ErrInvalidConfig)
		}
		cfg = c
	case ProviderBankTransfer:
		var c BankTransferConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode bank_transfer config: %v: %w", err, ErrInvalidConfig)
		}
		cfg = c
	case ProviderCash:
		var c CashConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode cash config: %v: %w", err, ErrInvalidConfig)
		}
		cfg = c
	case ProviderWallet:
		cfg = WalletConfig{}
	default:
		return nil, fmt.Errorf("unknown gateway provider %q: %w", provider, ErrInvalidConfig)
	}
	return cfg, nil
}

// ConfigValue wraps a GatewayConfig for storage as JSONB.
type ConfigValue struct {
	GatewayConfig
}

// Value implements driver.Valuer
func (c ConfigValue) Value() (driver.Value, error) {
	if c.GatewayConfig == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.GatewayConfig)
}
