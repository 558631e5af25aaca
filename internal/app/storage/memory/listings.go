package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/listing"
)

// --- ListingStore ------------------------------------------------------------

func (s *Store) CreateListing(_ context.Context, l listing.Listing) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = newID()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	s.listings[l.ID] = l
	return l, nil
}

func (s *Store) UpdateListing(_ context.Context, l listing.Listing) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.listings[l.ID]
	if !ok {
		return listing.Listing{}, sql.ErrNoRows
	}
	l.OwnerID = existing.OwnerID
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()
	s.listings[l.ID] = l
	return l, nil
}

func (s *Store) GetListing(_ context.Context, id string) (listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, sql.ErrNoRows
	}
	return l, nil
}

func (s *Store) ListListings(_ context.Context, filter listing.Filter) ([]listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []listing.Listing
	for _, l := range s.listings {
		if filter.Kind != "" && l.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(l.Location, filter.Location) {
			continue
		}
		if filter.Tag != "" && !hasTag(l.Tags, filter.Tag) {
			continue
		}
		result = append(result, l)
	}
	sortByNewest(result, func(l listing.Listing) time.Time { return l.CreatedAt })
	return result, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (s *Store) ListExpiredCandidates(_ context.Context, now time.Time) ([]listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []listing.Listing
	for _, l := range s.listings {
		if l.Status == listing.StatusOpen && !l.Deadline.IsZero() && l.Deadline.Before(now) {
			result = append(result, l)
		}
	}
	sortByCreated(result, func(l listing.Listing) time.Time { return l.CreatedAt })
	return result, nil
}

func (s *Store) CreateApplication(_ context.Context, a listing.Application) (listing.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.applications {
		if existing.ListingID == a.ListingID && existing.ApplicantID == a.ApplicantID {
			return listing.Application{}, fmt.Errorf("application already exists for listing %s", a.ListingID)
		}
	}

	if a.ID == "" {
		a.ID = newID()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.applications[a.ID] = a
	return a, nil
}

func (s *Store) UpdateApplication(_ context.Context, a listing.Application) (listing.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.applications[a.ID]
	if !ok {
		return listing.Application{}, sql.ErrNoRows
	}
	a.ListingID = existing.ListingID
	a.ApplicantID = existing.ApplicantID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.applications[a.ID] = a
	return a, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (listing.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return listing.Application{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *Store) GetApplicationByApplicant(_ context.Context, listingID, applicantID string) (listing.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.applications {
		if a.ListingID == listingID && a.ApplicantID == applicantID {
			return a, nil
		}
	}
	return listing.Application{}, sql.ErrNoRows
}

func (s *Store) ListApplicationsByListing(_ context.Context, listingID string) ([]listing.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []listing.Application
	for _, a := range s.applications {
		if a.ListingID == listingID {
			result = append(result, a)
		}
	}
	sortByCreated(result, func(a listing.Application) time.Time { return a.CreatedAt })
	return result, nil
}

func (s *Store) ListApplicationsByApplicant(_ context.Context, applicantID string) ([]listing.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []listing.Application
	for _, a := range s.applications {
		if a.ApplicantID == applicantID {
			result = append(result, a)
		}
	}
	sortByCreated(result, func(a listing.Application) time.Time { return a.CreatedAt })
	return result, nil
}
