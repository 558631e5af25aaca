package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/campuslink/platform/internal/app"
	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/services/payments"
	"github.com/campuslink/platform/internal/app/storage/memory"
	"github.com/campuslink/platform/internal/config"
)

type stubGateway struct{}

func (stubGateway) CreateCharge(ctx context.Context, req payments.ChargeRequest) (payments.Charge, error) {
	return payments.Charge{Ref: "ch_" + req.Reference, Status: payments.ChargePending}, nil
}

func (stubGateway) GetCharge(ctx context.Context, ref string) (payments.Charge, error) {
	return payments.Charge{Ref: ref, Status: payments.ChargePending}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "web-test-secret"
	application, err := app.New(app.Options{
		Stores: app.Stores{
			Users:         store,
			Listings:      store,
			Messages:      store,
			Forums:        store,
			Points:        store,
			Payments:      store,
			Referrals:     store,
			Notifications: store,
		},
		Config:  cfg,
		Gateway: stubGateway{},
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	handler, err := NewHandler(application, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, store
}

func fetch(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: expected 200, got %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(body)
}

func TestHomePage(t *testing.T) {
	server, _ := newTestServer(t)
	body := fetch(t, server.URL+"/pages")
	if !strings.Contains(body, "CampusLink") {
		t.Fatalf("expected branding in page, got %q", body)
	}
}

func TestListingsPage(t *testing.T) {
	server, store := newTestServer(t)

	if _, err := store.CreateListing(context.Background(), listing.Listing{
		OwnerID:  "owner",
		Kind:     listing.KindJob,
		Title:    "Backend Engineer",
		Company:  "Acme",
		Status:   listing.StatusOpen,
		Deadline: time.Now().Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	body := fetch(t, server.URL+"/pages/listings")
	if !strings.Contains(body, "Backend Engineer") {
		t.Fatalf("expected listing title in page, got %q", body)
	}
}

func TestListingsPageEmpty(t *testing.T) {
	server, _ := newTestServer(t)
	body := fetch(t, server.URL+"/pages/listings")
	if !strings.Contains(body, "No open listings") {
		t.Fatalf("expected empty state, got %q", body)
	}
}

func TestLeaderboardPage(t *testing.T) {
	server, _ := newTestServer(t)
	body := fetch(t, server.URL+"/pages/leaderboard")
	if !strings.Contains(body, "Leaderboard") {
		t.Fatalf("expected leaderboard heading, got %q", body)
	}
}
