// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It backs tests and local prototyping.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/platform/internal/app/domain/forum"
	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/message"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/referral"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/storage"
)

// Store holds all aggregates in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	users         map[string]user.User
	listings      map[string]listing.Listing
	applications  map[string]listing.Application
	threads       map[string]message.Thread
	messages      map[string]message.Message
	boards        map[string]forum.Board
	topics        map[string]forum.Topic
	posts         map[string]forum.Post
	awards        map[string]points.Award
	badges        map[string]points.Badge
	payments      map[string]payment.Payment
	referrals     map[string]referral.Referral
	notifications map[string]notification.Notification
}

var (
	_ storage.UserStore         = (*Store)(nil)
	_ storage.ListingStore      = (*Store)(nil)
	_ storage.MessageStore      = (*Store)(nil)
	_ storage.ForumStore        = (*Store)(nil)
	_ storage.PointsStore       = (*Store)(nil)
	_ storage.PaymentStore      = (*Store)(nil)
	_ storage.ReferralStore     = (*Store)(nil)
	_ storage.NotificationStore = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		listings:      make(map[string]listing.Listing),
		applications:  make(map[string]listing.Application),
		threads:       make(map[string]message.Thread),
		messages:      make(map[string]message.Message),
		boards:        make(map[string]forum.Board),
		topics:        make(map[string]forum.Topic),
		posts:         make(map[string]forum.Post),
		awards:        make(map[string]points.Award),
		badges:        make(map[string]points.Badge),
		payments:      make(map[string]payment.Payment),
		referrals:     make(map[string]referral.Referral),
		notifications: make(map[string]notification.Notification),
	}
}

func newID() string { return uuid.NewString() }

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("user with email %s already exists", u.Email)
		}
	}

	if u.ID == "" {
		u.ID = newID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, sql.ErrNoRows
}

func (s *Store) GetUserByReferralCode(_ context.Context, code string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ReferralCode != "" && u.ReferralCode == code {
			return u, nil
		}
	}
	return user.User{}, sql.ErrNoRows
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sortByCreated(result, func(u user.User) time.Time { return u.CreatedAt })
	return result, nil
}

// sortByCreated orders items oldest first to mirror the ORDER BY created_at
// queries in the postgres store.
func sortByCreated[T any](items []T, createdAt func(T) time.Time) {
	sort.Slice(items, func(i, j int) bool {
		return createdAt(items[i]).Before(createdAt(items[j]))
	})
}

// sortByNewest orders items newest first.
func sortByNewest[T any](items []T, at func(T) time.Time) {
	sort.Slice(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}
