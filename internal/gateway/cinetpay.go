package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
)

const (
	cinetPayDefaultBaseURL = "https://api-checkout.cinetpay.com"
	cinetPayTokenHeader    = "X-Token"
	cinetPayCreated        = "201"
	cinetPayAccepted       = "00"
)

// CinetPay opens a hosted payment page covering cards and mobile money.
type CinetPay struct {
	client *client
}

func NewCinetPay(httpClient *http.Client, breaker *resilience.Breaker, logger *logging.Logger) *CinetPay {
	return &CinetPay{
		client: newClient(string(models.ProviderCinetPay), httpClient, breaker, logger),
	}
}

var (
	_ Adapter        = (*CinetPay)(nil)
	_ CallbackParser = (*CinetPay)(nil)
)

func (p *CinetPay) Provider() models.Provider { return models.ProviderCinetPay }
func (p *CinetPay) Mode() Mode { return ModeRedirect }
func (p *CinetPay) PendingStatus() models.TransactionStatus { return models.StatusPending }

type cinetPayInitRequest struct {
	APIKey        string `json:"apikey"`
	SiteID        string `json:"site_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	NotifyURL     string `json:"notify_url,omitempty"`
	ReturnURL     string `json:"return_url,omitempty"`
	Channels      string `json:"channels"`
}

type cinetPayInitResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		PaymentToken string `json:"payment_token"`
		PaymentURL   string `json:"payment_url"`
	} `json:"data"`
}

func (p *CinetPay) Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error) {
	c, err := configAs[models.CinetPayConfig](cfg)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = cinetPayDefaultBaseURL
	}
	description := in.Description
	if description == "" {
		description = "Payment " + in.Reference
	}

	var resp cinetPayInitResponse
	err = p.client.postJSON(ctx, baseURL+"/v2/payment", nil, cinetPayInitRequest{
		APIKey:        c.APIKey,
		SiteID:        c.SiteID,
		TransactionID: in.Reference,
		Amount:        models.RoundAmount(in.Amount, in.Currency).String(),
		Currency:      in.Currency,
		Description:   description,
		NotifyURL:     in.NotifyURL,
		ReturnURL:     in.ReturnURL,
		Channels:      "ALL",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != cinetPayCreated || resp.Data.PaymentURL == "" {
		return nil, fmt.Errorf("cinetpay: code %s %q: %w", resp.Code, resp.Message, ErrProviderRejected)
	}

	return &CheckoutResult{
		RedirectURL:           resp.Data.PaymentURL,
		ProviderTransactionID: resp.Data.PaymentToken,
	}, nil
}

type cinetPayNotification struct {
	SiteID        string `json:"cpm_site_id"`
	TransactionID string `json:"cpm_trans_id"`
	PayID         string `json:"cpm_payid"`
	Result        string `json:"cpm_result"`
	ErrorMessage  string `json:"cpm_error_message"`
}

// ParseCallback verifies the hex HMAC-SHA256 of the raw body carried in the
// X-Token header.
func (p *CinetPay) ParseCallback(cfg models.GatewayConfig, header http.Header, body []byte) (*Callback, error) {
	c, err := configAs[models.CinetPayConfig](cfg)
	if err != nil {
		return nil, err
	}
	if !verify(c.SecretKey, body, header.Get(cinetPayTokenHeader)) {
		return nil, ErrInvalidSignature
	}

	var n cinetPayNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("cinetpay: %w: %v", ErrMalformedCallback, err)
	}
	if n.TransactionID == "" {
		return nil, fmt.Errorf("cinetpay: no cpm_trans_id: %w", ErrMalformedCallback)
	}
	if n.SiteID != "" && n.SiteID != c.SiteID {
		return nil, fmt.Errorf("cinetpay: site %s: %w", n.SiteID, ErrInvalidSignature)
	}

	return &Callback{
		Reference:             n.TransactionID,
		ProviderTransactionID: n.PayID,
		Succeeded:             n.Result == cinetPayAccepted,
	}, nil
}
