package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/skip2/go-qrcode"
)

const (
	waveDefaultBaseURL  = "https://api.wave.com"
	waveSignatureHeader = "Wave-Signature"
	waveSignatureMaxAge = 5 * time.Minute
)

// Wave starts a mobile-money checkout session. The payer opens the launch
// URL on their phone, or scans its QR code from a desktop.
type Wave struct {
	client *client
	now    func() time.Time
}

func NewWave(httpClient *http.Client, breaker *resilience.Breaker, logger *logging.Logger) *Wave {
	return &Wave{
		client: newClient(string(models.ProviderWave), httpClient, breaker, logger),
		now:    time.Now,
	}
}

var (
	_ Adapter        = (*Wave)(nil)
	_ CallbackParser = (*Wave)(nil)
)

func (w *Wave) Provider() models.Provider { return models.ProviderWave }
func (w *Wave) Mode() Mode { return ModeRedirect }
func (w *Wave) PendingStatus() models.TransactionStatus { return models.StatusPending }

type waveSessionRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ClientReference string `json:"client_reference"`
	SuccessURL      string `json:"success_url,omitempty"`
	ErrorURL        string `json:"error_url,omitempty"`
}

type waveSessionResponse struct {
	ID             string `json:"id"`
	WaveLaunchURL  string `json:"wave_launch_url"`
	CheckoutStatus string `json:"checkout_status"`
}

func (w *Wave) Initiate(ctx context.Context, cfg models.GatewayConfig, in InitiateInput) (*CheckoutResult, error) {
	c, err := configAs[models.WaveConfig](cfg)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = waveDefaultBaseURL
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.APIKey)
	header.Set("Idempotency-Key", in.Reference)

	var resp waveSessionResponse
	err = w.client.postJSON(ctx, baseURL+"/v1/checkout/sessions", header, waveSessionRequest{
		Amount:          models.RoundAmount(in.Amount, in.Currency).String(),
		Currency:        in.Currency,
		ClientReference: in.Reference,
		SuccessURL:      in.ReturnURL,
		ErrorURL:        in.CancelURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.WaveLaunchURL == "" {
		return nil, fmt.Errorf("wave: session %q without launch url: %w", resp.ID, ErrProviderRejected)
	}

	png, err := qrcode.Encode(resp.WaveLaunchURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("wave: render qr code: %w", err)
	}

	return &CheckoutResult{
		LaunchURL:             resp.WaveLaunchURL,
		ProviderTransactionID: resp.ID,
		QRCode:                "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

type waveEvent struct {
	Type string `json:"type"`
	Data struct {
		ID              string `json:"id"`
		ClientReference string `json:"client_reference"`
		PaymentStatus   string `json:"payment_status"`
	} `json:"data"`
}

// ParseCallback verifies a "t=<unix>,v1=<hex>" signature over the timestamp
// followed by the raw body.
func (w *Wave) ParseCallback(cfg models.GatewayConfig, header http.Header, body []byte) (*Callback, error) {
	c, err := configAs[models.WaveConfig](cfg)
	if err != nil {
		return nil, err
	}

	var ts string
	var sigs []string
	for _, part := range strings.Split(header.Get(waveSignatureHeader), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || len(sigs) == 0 {
		return nil, ErrInvalidSignature
	}
	if age := w.now().Sub(time.Unix(unix, 0)); age > waveSignatureMaxAge || age < -waveSignatureMaxAge {
		return nil, fmt.Errorf("wave: stale signature: %w", ErrInvalidSignature)
	}

	message := append([]byte(ts), body...)
	valid := false
	for _, sig := range sigs {
		if verify(c.SecretKey, message, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var ev waveEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("wave: %w: %v", ErrMalformedCallback, err)
	}
	if ev.Data.ClientReference == "" {
		return nil, fmt.Errorf("wave: no client_reference: %w", ErrMalformedCallback)
	}

	return &Callback{
		Reference:             ev.Data.ClientReference,
		ProviderTransactionID: ev.Data.ID,
		Succeeded:             ev.Type == "checkout.session.completed" && ev.Data.PaymentStatus == "succeeded",
	}, nil
}
