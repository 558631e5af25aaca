package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/storage/memory"
)

var testSecret = []byte("webhook-secret")

type fakeGateway struct {
	nextStatus string
	charges    map[string]Charge
	fail       bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextStatus: ChargePending, charges: make(map[string]Charge)}
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if g.fail {
		return Charge{}, fmt.Errorf("gateway down")
	}
	charge := Charge{Ref: "ch_" + req.Reference, Status: g.nextStatus}
	g.charges[charge.Ref] = charge
	return charge, nil
}

func (g *fakeGateway) GetCharge(ctx context.Context, ref string) (Charge, error) {
	charge, ok := g.charges[ref]
	if !ok {
		return Charge{}, fmt.Errorf("unknown charge %s", ref)
	}
	return charge, nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error {
	n.sent = append(n.sent, userID)
	return nil
}

func newService(t *testing.T) (*Service, *fakeGateway, *recordingNotifier) {
	t.Helper()
	gw := newFakeGateway()
	notifier := &recordingNotifier{}
	return New(memory.New(), gw, notifier, testSecret, nil), gw, notifier
}

func TestCreatePending(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeMembership, 2500, "usd")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != payment.StatusPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if p.Currency != "USD" {
		t.Fatalf("expected normalised currency, got %s", p.Currency)
	}
	if p.GatewayRef == "" {
		t.Fatal("expected a gateway ref")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "tuition", 100, "USD"); err == nil {
		t.Fatal("expected unknown purpose to fail")
	}
	if _, err := svc.Create(ctx, "u1", payment.PurposeDonation, 0, "USD"); err == nil {
		t.Fatal("expected zero amount to fail")
	}
	if _, err := svc.Create(ctx, "u1", payment.PurposeDonation, 100, "DOLLARS"); err == nil {
		t.Fatal("expected bad currency to fail")
	}
}

func TestCreateGatewayFailure(t *testing.T) {
	svc, gw, _ := newService(t)
	gw.fail = true
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", payment.PurposeDonation, 100, "USD"); err == nil {
		t.Fatal("expected gateway failure to surface")
	}
	payments, err := svc.ListMine(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(payments) != 1 || payments[0].Status != payment.StatusFailed {
		t.Fatalf("expected failed payment record, got %+v", payments)
	}
}

func TestCreateSynchronousSettlement(t *testing.T) {
	svc, gw, notifier := newService(t)
	gw.nextStatus = ChargeSucceeded
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeJobPost, 5000, "EUR")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != payment.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", p.Status)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected settlement notification, got %v", notifier.sent)
	}
}

func webhookPayload(ref, status, reason string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.updated","data":{"ref":%q,"status":%q,"failure_reason":%q}}`, ref, status, reason))
}

func TestHandleWebhook(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeMembership, 2500, "USD")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := webhookPayload(p.GatewayRef, "succeeded", "")
	if err := svc.HandleWebhook(ctx, payload, SignPayload(testSecret, payload)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	got, err := svc.Get(ctx, "u1", "student", p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != payment.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %v", notifier.sent)
	}

	// A replayed webhook changes nothing and sends nothing.
	if err := svc.HandleWebhook(ctx, payload, SignPayload(testSecret, payload)); err != nil {
		t.Fatalf("replayed HandleWebhook: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected no duplicate notification, got %v", notifier.sent)
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	svc, _, _ := newService(t)
	payload := webhookPayload("ch_x", "succeeded", "")
	if err := svc.HandleWebhook(context.Background(), payload, "deadbeef"); err == nil {
		t.Fatal("expected bad signature to fail")
	}
}

func TestHandleWebhookFailure(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeMembership, 2500, "USD")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := webhookPayload(p.GatewayRef, "failed", "card declined")
	if err := svc.HandleWebhook(ctx, payload, SignPayload(testSecret, payload)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	got, err := svc.Get(ctx, "u1", "student", p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != payment.StatusFailed || got.FailureReason != "card declined" {
		t.Fatalf("expected failed with reason, got %+v", got)
	}
}

func TestReconcilePending(t *testing.T) {
	svc, gw, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeMembership, 2500, "USD")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Still pending at the provider.
	settled, err := svc.ReconcilePending(ctx)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if settled != 0 {
		t.Fatalf("expected nothing settled, got %d", settled)
	}

	gw.charges[p.GatewayRef] = Charge{Ref: p.GatewayRef, Status: ChargeSucceeded}
	settled, err = svc.ReconcilePending(ctx)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if settled != 1 {
		t.Fatalf("expected one settlement, got %d", settled)
	}

	got, err := svc.Get(ctx, "u1", "student", p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != payment.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
}

func TestGetOwnerOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", payment.PurposeMembership, 2500, "USD")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(ctx, "u2", "student", p.ID); err == nil {
		t.Fatal("expected stranger read to fail")
	}
	if _, err := svc.Get(ctx, "u2", "admin", p.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
}
