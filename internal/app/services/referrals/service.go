// Package referrals implements the referral growth loop: members share a
// code, signups through it earn points for both sides.
package referrals

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/referral"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

// Points awards referral points. The points service satisfies this.
type Points interface {
	Award(ctx context.Context, userID, reason, refID string) error
}

// Service manages referrals.
type Service struct {
	store  storage.ReferralStore
	users  storage.UserStore
	points Points
	log    *logging.Logger
}

// New constructs a referrals service.
func New(store storage.ReferralStore, users storage.UserStore, pts Points, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("referrals")
	}
	return &Service{store: store, users: users, points: pts, log: log}
}

// Redeem links a fresh signup to the owner of the code and credits both
// sides. The users service calls this during registration.
func (s *Service) Redeem(ctx context.Context, code, referredID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return errors.InvalidInput("referral code is required")
	}

	referrer, err := s.users.GetUserByReferralCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("referral code")
		}
		return err
	}
	if referrer.ID == referredID {
		return errors.InvalidInput("cannot redeem your own code")
	}
	if _, err := s.store.GetReferralByReferred(ctx, referredID); err == nil {
		return errors.Conflict("signup already referred")
	} else if !stderrors.Is(err, sql.ErrNoRows) {
		return err
	}

	created, err := s.store.CreateReferral(ctx, referral.Referral{
		ReferrerID: referrer.ID,
		ReferredID: referredID,
		Code:       code,
	})
	if err != nil {
		return err
	}

	if s.points != nil {
		if err := s.points.Award(ctx, referrer.ID, points.ReasonReferral, created.ID); err != nil {
			s.log.WithError(err).Warn("referrer points not awarded")
		}
		if err := s.points.Award(ctx, referredID, points.ReasonReferred, created.ID); err != nil {
			s.log.WithError(err).Warn("referred points not awarded")
		}
	}

	created.CreditedAt = time.Now().UTC()
	if _, err := s.store.UpdateReferral(ctx, created); err != nil {
		s.log.WithError(err).Warn("referral not marked credited")
	}

	s.log.WithField("referrer_id", referrer.ID).
		WithField("referred_id", referredID).
		Info("referral redeemed")
	return nil
}

// Stats summarises a member's referral activity.
func (s *Service) Stats(ctx context.Context, userID string) (referral.Stats, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return referral.Stats{}, errors.NotFound("user")
		}
		return referral.Stats{}, err
	}

	refs, err := s.store.ListReferralsByReferrer(ctx, userID)
	if err != nil {
		return referral.Stats{}, err
	}
	stats := referral.Stats{UserID: userID, Code: u.ReferralCode, Total: len(refs)}
	for _, r := range refs {
		if !r.CreditedAt.IsZero() {
			stats.Credited++
		}
	}
	return stats, nil
}
