// Package points implements the gamification layer: point awards, badge
// thresholds and the leaderboard.
package points

import (
	"context"

	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/cache"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

// Points granted per reason.
var reasonAmounts = map[string]int{
	points.ReasonForumPost:   5,
	points.ReasonApplication: 10,
	points.ReasonReferral:    50,
	points.ReasonReferred:    25,
}

const leaderboardSize = 20

// Service manages point awards and badges.
type Service struct {
	store storage.PointsStore
	cache *cache.Cache
	log   *logging.Logger
}

// New constructs a points service.
func New(store storage.PointsStore, c *cache.Cache, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("points")
	}
	return &Service{store: store, cache: c, log: log}
}

// Award grants the standard amount for a reason and checks badge thresholds.
// Other services call this on qualifying actions.
func (s *Service) Award(ctx context.Context, userID, reason, refID string) error {
	amount, ok := reasonAmounts[reason]
	if !ok {
		return errors.InvalidInput("unknown award reason")
	}
	if _, err := s.store.CreateAward(ctx, points.Award{
		UserID: userID,
		Points: amount,
		Reason: reason,
		RefID:  refID,
	}); err != nil {
		return err
	}

	if err := s.cache.AddScore(ctx, userID, amount); err != nil {
		s.log.WithError(err).Warn("leaderboard score not updated")
	}
	metrics.RecordPoints(reason, amount)

	if err := s.checkBadges(ctx, userID); err != nil {
		s.log.WithError(err).Warn("badge check failed")
	}
	s.log.WithField("user_id", userID).
		WithField("reason", reason).
		WithField("points", amount).
		Info("points awarded")
	return nil
}

func (s *Service) checkBadges(ctx context.Context, userID string) error {
	total, err := s.store.TotalPoints(ctx, userID)
	if err != nil {
		return err
	}
	for _, threshold := range points.BadgeThresholds {
		if total < threshold.Points {
			continue
		}
		has, err := s.store.HasBadge(ctx, userID, threshold.Name)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := s.store.CreateBadge(ctx, points.Badge{UserID: userID, Name: threshold.Name}); err != nil {
			return err
		}
		s.log.WithField("user_id", userID).
			WithField("badge", threshold.Name).
			Info("badge awarded")
	}
	return nil
}

// Summary returns a user's total, awards and badges.
func (s *Service) Summary(ctx context.Context, userID string) (int, []points.Award, []points.Badge, error) {
	total, err := s.store.TotalPoints(ctx, userID)
	if err != nil {
		return 0, nil, nil, err
	}
	awards, err := s.store.ListAwards(ctx, userID)
	if err != nil {
		return 0, nil, nil, err
	}
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return 0, nil, nil, err
	}
	return total, awards, badges, nil
}

// Leaderboard returns the top members by points. Redis serves it when warm;
// a miss rebuilds the sorted set from the store.
func (s *Service) Leaderboard(ctx context.Context) ([]points.LeaderboardEntry, error) {
	entries, hit, err := s.cache.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		s.log.WithError(err).Warn("leaderboard cache read failed")
	} else if hit {
		return entries, nil
	}

	entries, err = s.store.TopTotals(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetLeaderboard(ctx, entries); err != nil {
		s.log.WithError(err).Warn("leaderboard cache rebuild failed")
	}
	return entries, nil
}
