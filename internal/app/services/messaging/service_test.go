package messaging

import (
	"context"
	"sync"
	"testing"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/storage/memory"
)

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error {
	n.sent = append(n.sent, userID)
	return nil
}

func newService(t *testing.T) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	notifier := &recordingNotifier{}
	return New(store, store, notifier, nil, nil), store, notifier
}

func seedUsers(t *testing.T, store *memory.Store, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		u, err := store.CreateUser(context.Background(), user.User{
			Email: name + "@example.edu",
			Name:  name,
			Role:  user.RoleStudent,
		})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func TestSendCreatesThreadOnce(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada", "grace")

	if _, err := svc.Send(ctx, ids[0], ids[1], "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Replying reuses the same thread regardless of direction.
	if _, err := svc.Send(ctx, ids[1], ids[0], "hi back"); err != nil {
		t.Fatalf("Send reply: %v", err)
	}

	threads, err := svc.Threads(ctx, ids[0])
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected one thread, got %d", len(threads))
	}

	msgs, err := svc.Messages(ctx, ids[0], threads[0].ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected two messages, got %d", len(msgs))
	}
}

func TestOpenThreadIdempotent(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada", "grace")

	first, err := svc.OpenThread(ctx, ids[0], ids[1])
	if err != nil {
		t.Fatalf("OpenThread: %v", err)
	}
	// Opening from the other side returns the same thread.
	second, err := svc.OpenThread(ctx, ids[1], ids[0])
	if err != nil {
		t.Fatalf("OpenThread reverse: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one thread, got %s and %s", first.ID, second.ID)
	}

	if _, err := svc.OpenThread(ctx, ids[0], ids[0]); err == nil {
		t.Fatal("expected self thread to fail")
	}
	if _, err := svc.OpenThread(ctx, ids[0], "missing"); err == nil {
		t.Fatal("expected unknown recipient to fail")
	}
}

func TestSendValidation(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada")

	if _, err := svc.Send(ctx, ids[0], ids[0], "hello me"); err == nil {
		t.Fatal("expected self-message to fail")
	}
	if _, err := svc.Send(ctx, ids[0], "missing", "hello"); err == nil {
		t.Fatal("expected unknown recipient to fail")
	}
	if _, err := svc.Send(ctx, ids[0], ids[0], "  "); err == nil {
		t.Fatal("expected empty body to fail")
	}
}

func TestSendQueuesNotificationWhenOffline(t *testing.T) {
	svc, store, notifier := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada", "grace")

	if _, err := svc.Send(ctx, ids[0], ids[1], "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != ids[1] {
		t.Fatalf("expected offline notification for recipient, got %v", notifier.sent)
	}
}

func TestMessagesParticipantsOnly(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada", "grace", "eve")

	if _, err := svc.Send(ctx, ids[0], ids[1], "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	threads, err := svc.Threads(ctx, ids[0])
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if _, err := svc.Messages(ctx, ids[2], threads[0].ID); err == nil {
		t.Fatal("expected outsider read to fail")
	}
}

func TestMessagesMarksRead(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ids := seedUsers(t, store, "ada", "grace")

	if _, err := svc.Send(ctx, ids[0], ids[1], "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	threads, err := svc.Threads(ctx, ids[1])
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}

	// The recipient reading the thread marks the sender's messages read.
	if _, err := svc.Messages(ctx, ids[1], threads[0].ID); err != nil {
		t.Fatalf("Messages: %v", err)
	}
	msgs, err := store.ListMessages(ctx, threads[0].ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if msgs[0].ReadAt.IsZero() {
		t.Fatal("expected message to be marked read")
	}
}

func TestHubDeliverDuringDisconnect(t *testing.T) {
	hub := NewHub(nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Deliver("u1", Event{Type: "message"})
				}
			}
		}()
	}

	// Clients connect and drop while deliveries are in flight. A send on a
	// channel that unregister already closed would panic here.
	for i := 0; i < 200; i++ {
		c := &client{userID: "u1", send: make(chan Event, 1024)}
		go func(c *client) {
			for range c.send {
			}
		}(c)
		hub.register(c)
		hub.unregister(c)
	}
	close(stop)
	wg.Wait()

	if hub.Connected("u1") {
		t.Fatal("expected all connections gone")
	}
}

func TestHubDeliverNoConnections(t *testing.T) {
	hub := NewHub(nil)
	if hub.Deliver("nobody", Event{Type: "message"}) {
		t.Fatal("expected delivery to fail with no connections")
	}
	if hub.Connected("nobody") {
		t.Fatal("expected no connection")
	}

	// A nil hub behaves the same.
	var nilHub *Hub
	if nilHub.Deliver("nobody", Event{}) || nilHub.Connected("nobody") {
		t.Fatal("expected nil hub to deliver nothing")
	}
}
