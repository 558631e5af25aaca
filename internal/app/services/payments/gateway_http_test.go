package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGatewayCreateCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/charges" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.AmountCents != 2500 || req.Currency != "USD" {
			t.Fatalf("unexpected charge request %+v", req)
		}
		json.NewEncoder(w).Encode(Charge{Ref: "ch_123", Status: ChargePending})
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, "test-key", 5*time.Second)
	charge, err := gw.CreateCharge(context.Background(), ChargeRequest{
		AmountCents: 2500,
		Currency:    "USD",
		Reference:   "pay-1",
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if charge.Ref != "ch_123" || charge.Status != ChargePending {
		t.Fatalf("unexpected charge %+v", charge)
	}
}

func TestHTTPGatewayCreateChargeMissingRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Charge{Status: ChargePending})
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, "", 5*time.Second)
	if _, err := gw.CreateCharge(context.Background(), ChargeRequest{AmountCents: 100, Currency: "USD"}); err == nil {
		t.Fatal("expected missing ref to fail")
	}
}

func TestHTTPGatewayGetCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/charges/ch_123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(Charge{Ref: "ch_123", Status: ChargeSucceeded})
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, "", 5*time.Second)
	charge, err := gw.GetCharge(context.Background(), "ch_123")
	if err != nil {
		t.Fatalf("GetCharge: %v", err)
	}
	if charge.Status != ChargeSucceeded {
		t.Fatalf("expected succeeded, got %s", charge.Status)
	}

	if _, err := gw.GetCharge(context.Background(), "missing"); err == nil {
		t.Fatal("expected unknown ref to fail")
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"data":{"ref":"ch_1","status":"succeeded"}}`)
	sig := SignPayload([]byte("secret"), payload)

	if !VerifySignature([]byte("secret"), payload, sig) {
		t.Fatal("expected signature to verify")
	}
	if VerifySignature([]byte("other"), payload, sig) {
		t.Fatal("expected wrong secret to fail")
	}
	if VerifySignature([]byte("secret"), []byte("tampered"), sig) {
		t.Fatal("expected tampered payload to fail")
	}
}
