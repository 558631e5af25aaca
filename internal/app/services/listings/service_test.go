package listings

import (
	"context"
	"testing"
	"time"

	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/storage/memory"
)

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error {
	n.sent = append(n.sent, userID)
	return nil
}

type recordingPoints struct {
	awards []string
}

func (p *recordingPoints) Award(ctx context.Context, userID, reason, refID string) error {
	p.awards = append(p.awards, userID+":"+reason)
	return nil
}

func newService(t *testing.T) (*Service, *recordingPoints, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	pts := &recordingPoints{}
	notifier := &recordingNotifier{}
	return New(store, store, pts, notifier, nil, nil), pts, notifier
}

func jobInput() CreateInput {
	return CreateInput{
		Kind:        listing.KindJob,
		Title:       "Backend Engineer",
		Company:     "Acme",
		Description: "Build services",
		Location:    "Remote",
		Deadline:    time.Now().Add(48 * time.Hour),
		Tags:        []string{"Go", "go", " backend "},
	}
}

func TestCreateJobRequiresEmployer(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "student", jobInput()); err == nil {
		t.Fatal("expected student job post to fail")
	}

	created, err := svc.Create(ctx, "u1", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != listing.StatusOpen {
		t.Fatalf("expected open listing, got %s", created.Status)
	}
	if len(created.Tags) != 2 {
		t.Fatalf("expected deduplicated lowercase tags, got %v", created.Tags)
	}
}

func TestCreateScholarshipRequiresAdmin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	in := jobInput()
	in.Kind = listing.KindScholarship
	if _, err := svc.Create(ctx, "u1", "employer", in); err == nil {
		t.Fatal("expected employer scholarship post to fail")
	}
	if _, err := svc.Create(ctx, "u1", "admin", in); err != nil {
		t.Fatalf("Create scholarship: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	in := jobInput()
	in.Deadline = time.Now().Add(-time.Hour)
	if _, err := svc.Create(ctx, "u1", "employer", in); err == nil {
		t.Fatal("expected past deadline to be rejected")
	}

	in = jobInput()
	in.Title = " "
	if _, err := svc.Create(ctx, "u1", "employer", in); err == nil {
		t.Fatal("expected empty title to be rejected")
	}
}

func TestApplyFlow(t *testing.T) {
	svc, pts, notifier := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	app, err := svc.Apply(ctx, "student-1", "student", created.ID, "please consider me")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if app.Status != listing.ApplicationSubmitted {
		t.Fatalf("expected submitted, got %s", app.Status)
	}
	if len(pts.awards) != 1 {
		t.Fatalf("expected one point award, got %v", pts.awards)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "owner" {
		t.Fatalf("expected owner notification, got %v", notifier.sent)
	}

	// One application per listing.
	if _, err := svc.Apply(ctx, "student-1", "student", created.ID, ""); err == nil {
		t.Fatal("expected duplicate application to fail")
	}
	// Employers cannot apply.
	if _, err := svc.Apply(ctx, "emp-1", "employer", created.ID, ""); err == nil {
		t.Fatal("expected employer application to fail")
	}
	// Owners cannot apply to themselves.
	if _, err := svc.Apply(ctx, "owner", "student", created.ID, ""); err == nil {
		t.Fatal("expected self application to fail")
	}
}

func TestApplyClosedListing(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Close(ctx, "owner", "employer", created.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := svc.Apply(ctx, "student-1", "student", created.ID, ""); err == nil {
		t.Fatal("expected application to closed listing to fail")
	}
}

func TestReview(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	app, err := svc.Apply(ctx, "student-1", "student", created.ID, "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := svc.Review(ctx, "stranger", "student", app.ID, listing.ApplicationAccepted); err == nil {
		t.Fatal("expected non-owner review to fail")
	}

	reviewed, err := svc.Review(ctx, "owner", "employer", app.ID, listing.ApplicationAccepted)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != listing.ApplicationAccepted {
		t.Fatalf("expected accepted, got %s", reviewed.Status)
	}
	// Owner got the apply notice, applicant got the review notice.
	if len(notifier.sent) != 2 || notifier.sent[1] != "student-1" {
		t.Fatalf("expected applicant notification, got %v", notifier.sent)
	}
}

func TestUpdateOwnerOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "Senior Backend Engineer"
	if _, err := svc.Update(ctx, "stranger", "employer", created.ID, UpdateInput{Title: &title}); err == nil {
		t.Fatal("expected non-owner update to fail")
	}
	updated, err := svc.Update(ctx, "owner", "employer", created.ID, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
}

func TestSearchFilters(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner", "employer", jobInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	in := jobInput()
	in.Kind = listing.KindScholarship
	in.Tags = []string{"stem"}
	if _, err := svc.Create(ctx, "admin", "admin", in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	jobs, err := svc.Search(ctx, listing.Filter{Kind: listing.KindJob})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	tagged, err := svc.Search(ctx, listing.Filter{Tag: "stem"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tagged) != 1 || tagged[0].Kind != listing.KindScholarship {
		t.Fatalf("expected the scholarship, got %v", tagged)
	}
}

func TestExpireDue(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", "employer", jobInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	expired, err := svc.ExpireDue(ctx, time.Now().Add(72*time.Hour))
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expiry, got %d", expired)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != listing.StatusExpired {
		t.Fatalf("expected expired status, got %s", got.Status)
	}

	// Second sweep is a no-op.
	expired, err = svc.ExpireDue(ctx, time.Now().Add(72*time.Hour))
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected no further expiries, got %d", expired)
	}
}
