package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/shopspring/decimal"
)

var (
	ErrGatewayUnavailable  = resilience.NewError(http.StatusServiceUnavailable, "payment gateway unavailable")
	ErrInvalidConfig       = models.ErrInvalidConfig
	ErrGatewayNotFound     = resilience.NewError(http.StatusNotFound, "payment gateway not found")
	ErrUnsupportedCurrency = resilience.NewError(http.StatusBadRequest, "currency not supported by gateway")
	ErrInvalidSignature    = resilience.NewError(http.StatusUnauthorized, "invalid callback signature")
	ErrMalformedCallback   = resilience.NewError(http.StatusBadRequest, "malformed callback payload")
	ErrProviderRejected    = resilience.NewError(http.StatusBadGateway, "provider rejected the request")
)

// Mode tells the orchestrator how an adapter's outcome is observed.
type Mode string

const (
	// ModeRedirect providers confirm asynchronously after the payer leaves.
	ModeRedirect Mode = "redirect"
	// ModeOffline payments are confirmed by an administrator.
	ModeOffline Mode = "offline"
	// ModeSynchronous adapters settle inside Initiate.
	ModeSynchronous Mode = "synchronous"
)

// InitiateInput is what every adapter receives. Reference is generated and
// recorded as a pending transaction before the adapter runs.
type InitiateInput struct {
	Reference   string
	OwnerID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// CheckoutResult is the normalized provider answer. A redirect provider fills
// RedirectURL or LaunchURL; offline providers fill Instructions only.
type CheckoutResult struct {
	RedirectURL           string `json:"redirect_url,omitempty"`
	LaunchURL             string `json:"launch_url,omitempty"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	QRCode                string `json:"qr_code,omitempty"`
	Instructions          string `json:"instructions,omitempty"`
}

// Navigates reports whether the payer must be sent to a provider page.
func (r *CheckoutResult) Navigates() bool {
	return r != nil && (r.RedirectURL != "" || r.LaunchURL != "")
}

type Adapter interface {
	Provider() models.Provider
	Mode() Mode
	// PendingStatus is the status of the transaction while it awaits an outcome.
	PendingStatus() models.TransactionStatus
	Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error)
}

// Callback is a verified provider notification.
type Callback struct {
	Reference             string
	ProviderTransactionID string
	Succeeded             bool
}

// CallbackParser is implemented by adapters whose provider posts webhooks.
type CallbackParser interface {
	ParseCallback(cfg models.GatewayConfig, header http.Header, body []byte) (*Callback, error)
}

// Set holds one adapter per provider.
type Set struct {
	adapters map[models.Provider]Adapter
}

func NewSet(adapters ...Adapter) *Set {
	s := &Set{adapters: make(map[models.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		s.adapters[a.Provider()] = a
	}
	return s
}

func (s *Set) Adapter(p models.Provider) (Adapter, error) {
	a, ok := s.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter for %s: %w", p, ErrGatewayUnavailable)
	}
	return a, nil
}

// Parser returns the webhook parser for p.
func (s *Set) Parser(p models.Provider) (CallbackParser, error) {
	a, err := s.Adapter(p)
	if err != nil {
		return nil, err
	}
	parser, ok := a.(CallbackParser)
	if !ok {
		return nil, fmt.Errorf("%s does not accept callbacks: %w", p, ErrGatewayNotFound)
	}
	return parser, nil
}

// configAs checks cfg is the provider's config type and complete.
func configAs[T models.GatewayConfig](cfg models.GatewayConfig) (T, error) {
	c, ok := cfg.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected config %T: %w", cfg, ErrInvalidConfig)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	return c, nil
}
