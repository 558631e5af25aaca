package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/campuslink/platform/internal/httputil"
)

// Gateway abstracts the external payment provider.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	GetCharge(ctx context.Context, ref string) (Charge, error)
}

// ChargeRequest is sent to the provider to open a charge.
type ChargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

// Charge is the provider's view of a payment.
type Charge struct {
	Ref           string `json:"ref"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

// Provider charge states.
const (
	ChargePending   = "pending"
	ChargeSucceeded = "succeeded"
	ChargeFailed    = "failed"
)

// HTTPGateway talks to the provider's REST API.
type HTTPGateway struct {
	client *httputil.Client
}

// NewHTTPGateway creates a gateway client for the provider at baseURL.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		client: httputil.NewClient(httputil.ClientConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Timeout:    timeout,
			MaxRetries: 2,
		}),
	}
}

// CreateCharge opens a charge at the provider.
func (g *HTTPGateway) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	resp, err := g.client.Post(ctx, "/v1/charges", req)
	if err != nil {
		return Charge{}, fmt.Errorf("create charge: %w", err)
	}
	var charge Charge
	if err := httputil.DecodeResponse(resp, &charge); err != nil {
		return Charge{}, fmt.Errorf("create charge: %w", err)
	}
	if charge.Ref == "" {
		return Charge{}, fmt.Errorf("create charge: provider returned no reference")
	}
	return charge, nil
}

// GetCharge fetches the current state of a charge.
func (g *HTTPGateway) GetCharge(ctx context.Context, ref string) (Charge, error) {
	resp, err := g.client.Get(ctx, "/v1/charges/"+ref)
	if err != nil {
		return Charge{}, fmt.Errorf("get charge: %w", err)
	}
	var charge Charge
	if err := httputil.DecodeResponse(resp, &charge); err != nil {
		return Charge{}, fmt.Errorf("get charge: %w", err)
	}
	return charge, nil
}

// VerifySignature checks the provider's webhook HMAC-SHA256 signature.
func VerifySignature(secret, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload produces the signature the provider would attach; used by
// tests and the local development provider.
func SignPayload(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
