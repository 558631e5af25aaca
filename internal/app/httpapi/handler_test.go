package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/campuslink/platform/internal/app"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/services/payments"
	"github.com/campuslink/platform/internal/config"
	"github.com/campuslink/platform/internal/middleware"
)

var testSecret = []byte("handler-test-secret")

type stubGateway struct{}

func (stubGateway) CreateCharge(ctx context.Context, req payments.ChargeRequest) (payments.Charge, error) {
	return payments.Charge{Ref: "ch_" + req.Reference, Status: payments.ChargePending}, nil
}

func (stubGateway) GetCharge(ctx context.Context, ref string) (payments.Charge, error) {
	return payments.Charge{Ref: ref, Status: payments.ChargePending}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Application) {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = string(testSecret)
	cfg.Gateway.WebhookSecret = "hook-secret"

	application, err := app.New(app.Options{Config: cfg, Gateway: stubGateway{}})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	auth := middleware.NewAuthMiddleware(testSecret, nil, nil, SkipAuthPaths())
	server := httptest.NewServer(auth.Handler(NewHandler(application, nil)))
	t.Cleanup(server.Close)
	return server, application
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerAndLogin(t *testing.T, server *httptest.Server, email, role string) (string, string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", "", map[string]interface{}{
		"email":    email,
		"name":     email,
		"password": "password123",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &session)
	return created.ID, session.Token
}

func TestRegisterLoginMe(t *testing.T) {
	server, _ := newTestServer(t)
	id, token := registerAndLogin(t, server, "ada@example.edu", "student")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decodeBody(t, resp, &me)
	if me.ID != id || me.Email != "ada@example.edu" || me.Role != "student" {
		t.Fatalf("unexpected me response: %+v", me)
	}
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/me", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	_, employerToken := registerAndLogin(t, server, "hr@acme.com", "employer")
	_, studentToken := registerAndLogin(t, server, "stu@example.edu", "student")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/listings", employerToken, map[string]interface{}{
		"kind":        "job",
		"title":       "Backend Engineer",
		"company":     "Acme",
		"description": "Build services",
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"tags":        []string{"go"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create listing: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	// Students cannot post jobs.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/listings", studentToken, map[string]interface{}{
		"kind":        "job",
		"title":       "Nope",
		"description": "nope",
		"deadline":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student job post: expected 403, got %d", resp.StatusCode)
	}

	// Search finds the open job.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/listings?kind=job&tag=go", studentToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", resp.StatusCode)
	}
	var results []struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &results)
	if len(results) != 1 || results[0].ID != created.ID {
		t.Fatalf("unexpected search results: %+v", results)
	}

	// Apply, then the employer reviews.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/listings/"+created.ID+"/applications", studentToken, map[string]string{
		"note": "please consider me",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("apply: expected 201, got %d", resp.StatusCode)
	}
	var application struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &application)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/applications/"+application.ID+"/review", employerToken, map[string]string{
		"status": "accepted",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("review: expected 200, got %d", resp.StatusCode)
	}
	var reviewed struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &reviewed)
	if reviewed.Status != "accepted" {
		t.Fatalf("expected accepted, got %s", reviewed.Status)
	}
}

func TestMessagingOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	_, adaToken := registerAndLogin(t, server, "ada@example.edu", "student")
	graceID, graceToken := registerAndLogin(t, server, "grace@example.edu", "alumni")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/messages", adaToken, map[string]string{
		"recipient_id": graceID,
		"body":         "hello grace",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d", resp.StatusCode)
	}
	var sent struct {
		ThreadID string `json:"thread_id"`
	}
	decodeBody(t, resp, &sent)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/threads", graceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("threads: expected 200, got %d", resp.StatusCode)
	}
	var threads []struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &threads)
	if len(threads) != 1 || threads[0].ID != sent.ThreadID {
		t.Fatalf("unexpected threads: %+v", threads)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/threads/"+sent.ThreadID+"/messages", graceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("messages: expected 200, got %d", resp.StatusCode)
	}
	var msgs []struct {
		Body string `json:"body"`
	}
	decodeBody(t, resp, &msgs)
	if len(msgs) != 1 || msgs[0].Body != "hello grace" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestForumAndPointsOverHTTP(t *testing.T) {
	server, application := newTestServer(t)
	adaID, _ := registerAndLogin(t, server, "ada@example.edu", "student")

	// Boards are admin-only; promote through the service directly.
	if _, err := application.Users.Promote(context.Background(), "admin", adaID, "admin"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	// Re-login so the token carries the admin role.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    "ada@example.edu",
		"password": "password123",
	})
	var session struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &session)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/boards", session.Token, map[string]string{
		"slug":  "general",
		"title": "General",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create board: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/boards/general/topics", session.Token, map[string]string{
		"title": "Welcome",
		"body":  "Introduce yourself",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The first post earned forum points.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/points/me", session.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("points: expected 200, got %d", resp.StatusCode)
	}
	var summary struct {
		Total int `json:"total"`
	}
	decodeBody(t, resp, &summary)
	if summary.Total != 5 {
		t.Fatalf("expected 5 points, got %d", summary.Total)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/leaderboard", session.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", resp.StatusCode)
	}
	var entries []struct {
		UserID string `json:"user_id"`
	}
	decodeBody(t, resp, &entries)
	if len(entries) != 1 || entries[0].UserID != adaID {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}
}

func TestPaymentWebhookOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "ada@example.edu", "student")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/payments", token, map[string]interface{}{
		"purpose":      "membership",
		"amount_cents": 2500,
		"currency":     "usd",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID         string `json:"id"`
		GatewayRef string `json:"gateway_ref"`
		Status     string `json:"status"`
	}
	decodeBody(t, resp, &created)
	if created.Status != string(payment.StatusPending) {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	payload := []byte(fmt.Sprintf(`{"data":{"ref":%q,"status":"succeeded"}}`, created.GatewayRef))
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/webhooks/payments", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build webhook request: %v", err)
	}
	req.Header.Set("X-Gateway-Signature", payments.SignPayload([]byte("hook-secret"), payload))
	webhookResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	webhookResp.Body.Close()
	if webhookResp.StatusCode != http.StatusNoContent {
		t.Fatalf("webhook: expected 204, got %d", webhookResp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/payments/"+created.ID, token, nil)
	var settled struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &settled)
	if settled.Status != string(payment.StatusSucceeded) {
		t.Fatalf("expected succeeded, got %s", settled.Status)
	}

	// The settlement queued a notification.
	var notifications []notification.Notification
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/notifications", token, nil)
	decodeBody(t, resp, &notifications)
	if len(notifications) != 1 || notifications[0].Kind != notification.KindPayment {
		t.Fatalf("expected payment notification, got %+v", notifications)
	}
}

func TestReferralFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	_, refToken := registerAndLogin(t, server, "ref@example.edu", "alumni")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/referrals/me", refToken, nil)
	var stats struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &stats)
	if stats.Code == "" {
		t.Fatal("expected a referral code")
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", "", map[string]interface{}{
		"email":         "new@example.edu",
		"name":          "New Member",
		"password":      "password123",
		"referral_code": stats.Code,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("referred register: expected 201, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/referrals/me", refToken, nil)
	var after struct {
		Total    int `json:"total"`
		Credited int `json:"credited"`
	}
	decodeBody(t, resp, &after)
	if after.Total != 1 || after.Credited != 1 {
		t.Fatalf("expected one credited referral, got %+v", after)
	}
}

func TestLogoutWithoutDenylistStillSucceeds(t *testing.T) {
	server, _ := newTestServer(t)
	_, token := registerAndLogin(t, server, "ada@example.edu", "student")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/logout", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.StatusCode)
	}
}
