package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/domain/referral"
)

// --- PaymentStore ------------------------------------------------------------

func (s *Store) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[p.ID]
	if !ok {
		return payment.Payment{}, sql.ErrNoRows
	}
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return payment.Payment{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPaymentByGatewayRef(_ context.Context, ref string) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.GatewayRef != "" && p.GatewayRef == ref {
			return p, nil
		}
	}
	return payment.Payment{}, sql.ErrNoRows
}

func (s *Store) ListPaymentsByUser(_ context.Context, userID string) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sortByNewest(result, func(p payment.Payment) time.Time { return p.CreatedAt })
	return result, nil
}

func (s *Store) ListPendingPayments(_ context.Context) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Payment
	for _, p := range s.payments {
		if p.Status == payment.StatusPending {
			result = append(result, p)
		}
	}
	sortByCreated(result, func(p payment.Payment) time.Time { return p.CreatedAt })
	return result, nil
}

// --- ReferralStore -----------------------------------------------------------

func (s *Store) CreateReferral(_ context.Context, r referral.Referral) (referral.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	r.CreatedAt = time.Now().UTC()
	s.referrals[r.ID] = r
	return r, nil
}

func (s *Store) UpdateReferral(_ context.Context, r referral.Referral) (referral.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.referrals[r.ID]
	if !ok {
		return referral.Referral{}, sql.ErrNoRows
	}
	r.ReferrerID = existing.ReferrerID
	r.ReferredID = existing.ReferredID
	r.Code = existing.Code
	r.CreatedAt = existing.CreatedAt
	s.referrals[r.ID] = r
	return r, nil
}

func (s *Store) GetReferralByReferred(_ context.Context, referredID string) (referral.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.referrals {
		if r.ReferredID == referredID {
			return r, nil
		}
	}
	return referral.Referral{}, sql.ErrNoRows
}

func (s *Store) ListReferralsByReferrer(_ context.Context, referrerID string) ([]referral.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []referral.Referral
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID {
			result = append(result, r)
		}
	}
	sortByCreated(result, func(r referral.Referral) time.Time { return r.CreatedAt })
	return result, nil
}

// --- NotificationStore -------------------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = newID()
	}
	if n.Status == "" {
		n.Status = notification.StatusPending
	}
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) UpdateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notifications[n.ID]
	if !ok {
		return notification.Notification{}, sql.ErrNoRows
	}
	n.UserID = existing.UserID
	n.CreatedAt = existing.CreatedAt
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (s *Store) ListNotificationsByUser(_ context.Context, userID string) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sortByNewest(result, func(n notification.Notification) time.Time { return n.CreatedAt })
	return result, nil
}

func (s *Store) ListPendingNotifications(_ context.Context, limit int) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for _, n := range s.notifications {
		if n.Status == notification.StatusPending {
			result = append(result, n)
		}
	}
	sortByCreated(result, func(n notification.Notification) time.Time { return n.CreatedAt })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
