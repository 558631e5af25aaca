package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/storage/memory"
)

type recordingMailer struct {
	sent []string
	fail bool
}

func (m *recordingMailer) Send(to, subject, body string) error {
	if m.fail {
		return fmt.Errorf("smtp down")
	}
	m.sent = append(m.sent, to)
	return nil
}

func newService(t *testing.T) (*Service, *memory.Store, *recordingMailer) {
	t.Helper()
	store := memory.New()
	mailer := &recordingMailer{}
	return New(store, store, mailer, nil), store, mailer
}

func seedUser(t *testing.T, store *memory.Store, email string) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		Email: email,
		Name:  email,
		Role:  user.RoleStudent,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestEnqueueAndDispatch(t *testing.T) {
	svc, store, mailer := newService(t)
	ctx := context.Background()
	u := seedUser(t, store, "ada@example.edu")

	if err := svc.Enqueue(ctx, u.ID, notification.KindMessage, "New message", "hello"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sent, err := svc.DispatchPending(ctx, 10)
	if err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 dispatched, got %d", sent)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "ada@example.edu" {
		t.Fatalf("expected mail to ada, got %v", mailer.sent)
	}

	mine, err := svc.ListMine(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != notification.StatusSent {
		t.Fatalf("expected sent notification, got %+v", mine)
	}
	if mine[0].SentAt.IsZero() {
		t.Fatal("expected SentAt to be set")
	}

	// Queue is now empty.
	sent, err = svc.DispatchPending(ctx, 10)
	if err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected empty queue, got %d", sent)
	}
}

func TestDispatchMarksFailures(t *testing.T) {
	svc, store, mailer := newService(t)
	mailer.fail = true
	ctx := context.Background()
	u := seedUser(t, store, "ada@example.edu")

	if err := svc.Enqueue(ctx, u.ID, notification.KindMessage, "New message", "hello"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := svc.DispatchPending(ctx, 10); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}

	mine, err := svc.ListMine(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != notification.StatusFailed {
		t.Fatalf("expected failed notification, got %+v", mine)
	}
}

func TestDispatchDropsUnknownRecipient(t *testing.T) {
	svc, store, mailer := newService(t)
	ctx := context.Background()

	if _, err := store.CreateNotification(ctx, notification.Notification{
		UserID:  "ghost",
		Kind:    notification.KindMessage,
		Subject: "hello",
		Status:  notification.StatusPending,
	}); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if _, err := svc.DispatchPending(ctx, 10); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no mail, got %v", mailer.sent)
	}
	pending, err := store.ListPendingNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingNotifications: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected notification dropped, got %+v", pending)
	}
}

func TestEnqueueValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if err := svc.Enqueue(ctx, "", notification.KindMessage, "subject", ""); err == nil {
		t.Fatal("expected missing user to fail")
	}
	if err := svc.Enqueue(ctx, "u1", notification.KindMessage, "  ", ""); err == nil {
		t.Fatal("expected empty subject to fail")
	}
}

func TestDigestRun(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	ada := seedUser(t, store, "ada@example.edu")
	seedUser(t, store, "grace@example.edu")

	if _, err := store.CreateListing(ctx, listing.Listing{
		OwnerID:  "owner",
		Kind:     listing.KindJob,
		Title:    "Backend Engineer",
		Status:   listing.StatusOpen,
		Deadline: time.Now().Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	digest := NewDigest(svc, store, store, "", nil)
	if err := digest.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mine, err := svc.ListMine(ctx, ada.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].Kind != notification.KindDigest {
		t.Fatalf("expected a digest notification, got %+v", mine)
	}
}

func TestDigestRunNoOpenListings(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	u := seedUser(t, store, "ada@example.edu")

	digest := NewDigest(svc, store, store, "", nil)
	if err := digest.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	mine, err := svc.ListMine(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no digest with nothing to report, got %+v", mine)
	}
}
