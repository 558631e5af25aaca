// Package listings implements job and scholarship postings and their
// applications.
package listings

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/cache"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

// Points awards participation points. The points service satisfies this.
type Points interface {
	Award(ctx context.Context, userID, reason, refID string) error
}

// Notifier queues out-of-band notifications. The notifications service
// satisfies this.
type Notifier interface {
	Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error
}

const searchCacheTTL = 2 * time.Minute

// Service manages listings and applications.
type Service struct {
	store    storage.ListingStore
	users    storage.UserStore
	points   Points
	notifier Notifier
	cache    *cache.Cache
	log      *logging.Logger
}

// New constructs a listings service.
func New(store storage.ListingStore, users storage.UserStore, pts Points, notifier Notifier, c *cache.Cache, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("listings")
	}
	return &Service{
		store:    store,
		users:    users,
		points:   pts,
		notifier: notifier,
		cache:    c,
		log:      log,
	}
}

// CreateInput carries a new listing.
type CreateInput struct {
	Kind         listing.Kind
	Title        string
	Company      string
	Description  string
	Location     string
	Compensation string
	Deadline     time.Time
	Tags         []string
}

// Create posts a new listing. Jobs require an employer or admin account,
// scholarships an admin account.
func (s *Service) Create(ctx context.Context, ownerID, ownerRole string, in CreateInput) (listing.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	if !in.Kind.Valid() {
		return listing.Listing{}, errors.InvalidInput("kind must be job or scholarship")
	}
	if in.Title == "" {
		return listing.Listing{}, errors.InvalidInput("title is required")
	}
	if in.Description == "" {
		return listing.Listing{}, errors.InvalidInput("description is required")
	}
	if in.Deadline.IsZero() || in.Deadline.Before(time.Now()) {
		return listing.Listing{}, errors.InvalidInput("deadline must be in the future")
	}
	switch in.Kind {
	case listing.KindJob:
		if ownerRole != string(user.RoleEmployer) && ownerRole != string(user.RoleAdmin) {
			return listing.Listing{}, errors.Forbidden("only employers can post jobs")
		}
	case listing.KindScholarship:
		if ownerRole != string(user.RoleAdmin) {
			return listing.Listing{}, errors.Forbidden("only admins can post scholarships")
		}
	}

	tags := normaliseTags(in.Tags)

	created, err := s.store.CreateListing(ctx, listing.Listing{
		OwnerID:      ownerID,
		Kind:         in.Kind,
		Title:        in.Title,
		Company:      in.Company,
		Description:  in.Description,
		Location:     in.Location,
		Compensation: strings.TrimSpace(in.Compensation),
		Deadline:     in.Deadline,
		Status:       listing.StatusOpen,
		Tags:         tags,
	})
	if err != nil {
		return listing.Listing{}, err
	}

	s.invalidateSearch(ctx)
	metrics.RecordListingEvent("created")
	s.log.WithField("listing_id", created.ID).
		WithField("kind", string(created.Kind)).
		Info("listing created")
	return created, nil
}

// UpdateInput carries optional listing edits.
type UpdateInput struct {
	Title        *string
	Company      *string
	Description  *string
	Location     *string
	Compensation *string
	Deadline     *time.Time
	Tags         []string
}

// Update edits a listing. Only the owner or an admin may edit, and only
// while the listing is open.
func (s *Service) Update(ctx context.Context, actorID, actorRole, id string, in UpdateInput) (listing.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return listing.Listing{}, err
	}
	if l.OwnerID != actorID && actorRole != string(user.RoleAdmin) {
		return listing.Listing{}, errors.Forbidden("not the listing owner")
	}
	if l.Status != listing.StatusOpen {
		return listing.Listing{}, errors.Conflict("listing is not open")
	}

	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		if trimmed == "" {
			return listing.Listing{}, errors.InvalidInput("title cannot be empty")
		}
		l.Title = trimmed
	}
	if in.Company != nil {
		l.Company = strings.TrimSpace(*in.Company)
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		if trimmed == "" {
			return listing.Listing{}, errors.InvalidInput("description cannot be empty")
		}
		l.Description = trimmed
	}
	if in.Location != nil {
		l.Location = strings.TrimSpace(*in.Location)
	}
	if in.Compensation != nil {
		l.Compensation = strings.TrimSpace(*in.Compensation)
	}
	if in.Deadline != nil {
		if in.Deadline.Before(time.Now()) {
			return listing.Listing{}, errors.InvalidInput("deadline must be in the future")
		}
		l.Deadline = *in.Deadline
	}
	if in.Tags != nil {
		l.Tags = normaliseTags(in.Tags)
	}

	updated, err := s.store.UpdateListing(ctx, l)
	if err != nil {
		return listing.Listing{}, err
	}
	s.invalidateSearch(ctx)
	s.log.WithField("listing_id", id).Info("listing updated")
	return updated, nil
}

// Close marks a listing closed. Owner or admin only.
func (s *Service) Close(ctx context.Context, actorID, actorRole, id string) (listing.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return listing.Listing{}, err
	}
	if l.OwnerID != actorID && actorRole != string(user.RoleAdmin) {
		return listing.Listing{}, errors.Forbidden("not the listing owner")
	}
	if l.Status != listing.StatusOpen {
		return l, nil
	}
	l.Status = listing.StatusClosed
	updated, err := s.store.UpdateListing(ctx, l)
	if err != nil {
		return listing.Listing{}, err
	}
	s.invalidateSearch(ctx)
	metrics.RecordListingEvent("closed")
	s.log.WithField("listing_id", id).Info("listing closed")
	return updated, nil
}

// Get returns a listing by ID.
func (s *Service) Get(ctx context.Context, id string) (listing.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return listing.Listing{}, errors.NotFound("listing")
		}
		return listing.Listing{}, err
	}
	return l, nil
}

// Search returns listings matching the filter, served from cache when warm.
func (s *Service) Search(ctx context.Context, filter listing.Filter) ([]listing.Listing, error) {
	key := searchKey(filter)
	var cached []listing.Listing
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.WithError(err).Warn("listing search cache read failed")
	} else if hit {
		return cached, nil
	}

	results, err := s.store.ListListings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, results, searchCacheTTL); err != nil {
		s.log.WithError(err).Warn("listing search cache write failed")
	}
	return results, nil
}

// Apply submits an application. Students and alumni only, one per listing.
func (s *Service) Apply(ctx context.Context, applicantID, applicantRole, listingID, note string) (listing.Application, error) {
	if applicantRole != string(user.RoleStudent) && applicantRole != string(user.RoleAlumni) {
		return listing.Application{}, errors.Forbidden("only students and alumni can apply")
	}

	l, err := s.Get(ctx, listingID)
	if err != nil {
		return listing.Application{}, err
	}
	if l.Status != listing.StatusOpen {
		return listing.Application{}, errors.Conflict("listing is not open")
	}
	if l.OwnerID == applicantID {
		return listing.Application{}, errors.InvalidInput("cannot apply to your own listing")
	}
	if _, err := s.store.GetApplicationByApplicant(ctx, listingID, applicantID); err == nil {
		return listing.Application{}, errors.Conflict("already applied to this listing")
	} else if !stderrors.Is(err, sql.ErrNoRows) {
		return listing.Application{}, err
	}

	created, err := s.store.CreateApplication(ctx, listing.Application{
		ListingID:   listingID,
		ApplicantID: applicantID,
		Note:        strings.TrimSpace(note),
		Status:      listing.ApplicationSubmitted,
	})
	if err != nil {
		return listing.Application{}, err
	}

	if s.points != nil {
		if err := s.points.Award(ctx, applicantID, points.ReasonApplication, created.ID); err != nil {
			s.log.WithError(err).Warn("application points not awarded")
		}
	}
	if s.notifier != nil {
		subject := fmt.Sprintf("New application for %q", l.Title)
		if err := s.notifier.Enqueue(ctx, l.OwnerID, notification.KindApplication, subject, "A member applied to your listing."); err != nil {
			s.log.WithError(err).Warn("application notification not queued")
		}
	}

	metrics.RecordListingEvent("application")
	s.log.WithField("application_id", created.ID).
		WithField("listing_id", listingID).
		Info("application submitted")
	return created, nil
}

// Review moves an application through the review states. Listing owner or
// admin only; the applicant is notified.
func (s *Service) Review(ctx context.Context, actorID, actorRole, applicationID string, status listing.ApplicationStatus) (listing.Application, error) {
	switch status {
	case listing.ApplicationReviewed, listing.ApplicationAccepted, listing.ApplicationRejected:
	default:
		return listing.Application{}, errors.InvalidInput("status must be reviewed, accepted or rejected")
	}

	a, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return listing.Application{}, errors.NotFound("application")
		}
		return listing.Application{}, err
	}
	l, err := s.Get(ctx, a.ListingID)
	if err != nil {
		return listing.Application{}, err
	}
	if l.OwnerID != actorID && actorRole != string(user.RoleAdmin) {
		return listing.Application{}, errors.Forbidden("not the listing owner")
	}

	a.Status = status
	updated, err := s.store.UpdateApplication(ctx, a)
	if err != nil {
		return listing.Application{}, err
	}

	if s.notifier != nil {
		subject := fmt.Sprintf("Your application for %q is %s", l.Title, status)
		if err := s.notifier.Enqueue(ctx, a.ApplicantID, notification.KindApplication, subject, "Log in to see the details."); err != nil {
			s.log.WithError(err).Warn("review notification not queued")
		}
	}
	s.log.WithField("application_id", applicationID).
		WithField("status", string(status)).
		Info("application reviewed")
	return updated, nil
}

// Applications returns the applications to a listing. Owner or admin only.
func (s *Service) Applications(ctx context.Context, actorID, actorRole, listingID string) ([]listing.Application, error) {
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actorID && actorRole != string(user.RoleAdmin) {
		return nil, errors.Forbidden("not the listing owner")
	}
	return s.store.ListApplicationsByListing(ctx, listingID)
}

// MyApplications returns the caller's own applications.
func (s *Service) MyApplications(ctx context.Context, applicantID string) ([]listing.Application, error) {
	return s.store.ListApplicationsByApplicant(ctx, applicantID)
}

// ExpireDue closes listings whose deadline has passed. The sweeper calls
// this on a schedule; it returns the number of listings expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListExpiredCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, l := range due {
		l.Status = listing.StatusExpired
		if _, err := s.store.UpdateListing(ctx, l); err != nil {
			s.log.WithError(err).WithField("listing_id", l.ID).Warn("listing not expired")
			continue
		}
		expired++
		metrics.RecordListingEvent("expired")
	}
	if expired > 0 {
		s.invalidateSearch(ctx)
		s.log.WithField("count", expired).Info("listings expired")
	}
	return expired, nil
}

func (s *Service) invalidateSearch(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, "listings:search:*"); err != nil {
		s.log.WithError(err).Warn("listing search cache invalidation failed")
	}
}

func searchKey(f listing.Filter) string {
	return fmt.Sprintf("listings:search:%s:%s:%s:%s", f.Kind, f.Tag, f.Location, f.Status)
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
