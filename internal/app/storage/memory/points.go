package memory

import (
	"context"
	"sort"
	"time"

	"github.com/campuslink/platform/internal/app/domain/points"
)

// --- PointsStore -------------------------------------------------------------

func (s *Store) CreateAward(_ context.Context, a points.Award) (points.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = time.Now().UTC()
	s.awards[a.ID] = a
	return a, nil
}

func (s *Store) ListAwards(_ context.Context, userID string) ([]points.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []points.Award
	for _, a := range s.awards {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sortByNewest(result, func(a points.Award) time.Time { return a.CreatedAt })
	return result, nil
}

func (s *Store) TotalPoints(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, a := range s.awards {
		if a.UserID == userID {
			total += a.Points
		}
	}
	return total, nil
}

func (s *Store) TopTotals(_ context.Context, limit int) ([]points.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	for _, a := range s.awards {
		totals[a.UserID] += a.Points
	}

	entries := make([]points.LeaderboardEntry, 0, len(totals))
	for userID, total := range totals {
		entries = append(entries, points.LeaderboardEntry{UserID: userID, Points: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Store) CreateBadge(_ context.Context, b points.Badge) (points.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = newID()
	}
	if b.AwardedAt.IsZero() {
		b.AwardedAt = time.Now().UTC()
	}
	s.badges[b.ID] = b
	return b, nil
}

func (s *Store) ListBadges(_ context.Context, userID string) ([]points.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []points.Badge
	for _, b := range s.badges {
		if b.UserID == userID {
			result = append(result, b)
		}
	}
	sortByCreated(result, func(b points.Badge) time.Time { return b.AwardedAt })
	return result, nil
}

func (s *Store) HasBadge(_ context.Context, userID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.badges {
		if b.UserID == userID && b.Name == name {
			return true, nil
		}
	}
	return false, nil
}
