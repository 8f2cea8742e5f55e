package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// client is the HTTP plumbing shared by the hosted-checkout providers. Every
// request goes through the provider's circuit breaker.
type client struct {
	name    string
	http    *http.Client
	breaker *resilience.Breaker
	logger  *logging.Logger
}

func newClient(name string, httpClient *http.Client, breaker *resilience.Breaker, logger *logging.Logger) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		name:    name,
		http:    httpClient,
		breaker: breaker,
		logger:  logging.OrGlobal(logger).Named("gateway").With(zap.String("provider", name)),
	}
}

// postJSON sends body and decodes a 2xx answer into out. Transport failures
// and 5xx answers are ErrGatewayUnavailable; 4xx answers keep their status.
func (c *client) postJSON(ctx context.Context, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}

	_, err = resilience.Guard(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, url, header, payload, out)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%s: %w: %v", c.name, ErrGatewayUnavailable, err)
	}
	return err
}

func (c *client) do(ctx context.Context, url string, header http.Header, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("provider request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("%s: %w: %v", c.name, ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w: %v", c.name, ErrGatewayUnavailable, err)
	}
	c.logger.Debug("provider responded",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, ErrGatewayUnavailable)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: credentials refused: %w", c.name, ErrInvalidConfig)
	case resp.StatusCode >= 400:
		return resilience.WithStatus(resp.StatusCode,
			fmt.Errorf("%s: status %d: %s: %w", c.name, resp.StatusCode, truncate(data, 256), ErrProviderRejected))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %v", c.name, ErrGatewayUnavailable, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// sign returns the hex HMAC-SHA256 of message under secret.
func sign(secret string, message []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// verify compares a hex signature in constant time.
func verify(secret string, message []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(message)
	return hmac.Equal(h.Sum(nil), expected)
}
