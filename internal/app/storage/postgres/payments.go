package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/referral"
)

// --- PointsStore -------------------------------------------------------------

type awardRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Points    int       `db:"points"`
	Reason    string    `db:"reason"`
	RefID     string    `db:"ref_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) CreateAward(ctx context.Context, a points.Award) (points.Award, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO point_awards (id, user_id, points, reason, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.UserID, a.Points, a.Reason, a.RefID, a.CreatedAt)
	if err != nil {
		return points.Award{}, err
	}
	return a, nil
}

func (s *Store) ListAwards(ctx context.Context, userID string) ([]points.Award, error) {
	var rows []awardRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, points, reason, ref_id, created_at
		FROM point_awards WHERE user_id = $1 ORDER BY created_at DESC
	`, userID); err != nil {
		return nil, err
	}
	result := make([]points.Award, 0, len(rows))
	for _, row := range rows {
		result = append(result, points.Award{
			ID:        row.ID,
			UserID:    row.UserID,
			Points:    row.Points,
			Reason:    row.Reason,
			RefID:     row.RefID,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return result, nil
}

func (s *Store) TotalPoints(ctx context.Context, userID string) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(points), 0) FROM point_awards WHERE user_id = $1
	`, userID); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) TopTotals(ctx context.Context, limit int) ([]points.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []struct {
		UserID string `db:"user_id"`
		Total  int    `db:"total"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, SUM(points) AS total
		FROM point_awards
		GROUP BY user_id
		ORDER BY total DESC, user_id
		LIMIT $1
	`, limit); err != nil {
		return nil, err
	}
	entries := make([]points.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, points.LeaderboardEntry{UserID: row.UserID, Points: row.Total, Rank: i + 1})
	}
	return entries, nil
}

func (s *Store) CreateBadge(ctx context.Context, b points.Badge) (points.Badge, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.AwardedAt.IsZero() {
		b.AwardedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO badges (id, user_id, name, awarded_at)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.UserID, b.Name, b.AwardedAt)
	if err != nil {
		return points.Badge{}, err
	}
	return b, nil
}

func (s *Store) ListBadges(ctx context.Context, userID string) ([]points.Badge, error) {
	var rows []struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Name      string    `db:"name"`
		AwardedAt time.Time `db:"awarded_at"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, awarded_at FROM badges WHERE user_id = $1 ORDER BY awarded_at
	`, userID); err != nil {
		return nil, err
	}
	result := make([]points.Badge, 0, len(rows))
	for _, row := range rows {
		result = append(result, points.Badge{ID: row.ID, UserID: row.UserID, Name: row.Name, AwardedAt: row.AwardedAt.UTC()})
	}
	return result, nil
}

func (s *Store) HasBadge(ctx context.Context, userID, name string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1) FROM badges WHERE user_id = $1 AND name = $2
	`, userID, name); err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- PaymentStore ------------------------------------------------------------

type paymentRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Purpose       string    `db:"purpose"`
	AmountCents   int64     `db:"amount_cents"`
	Currency      string    `db:"currency"`
	Status        string    `db:"status"`
	GatewayRef    string    `db:"gateway_ref"`
	FailureReason string    `db:"failure_reason"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r paymentRow) toDomain() payment.Payment {
	return payment.Payment{
		ID:            r.ID,
		UserID:        r.UserID,
		Purpose:       payment.Purpose(r.Purpose),
		AmountCents:   r.AmountCents,
		Currency:      r.Currency,
		Status:        payment.Status(r.Status),
		GatewayRef:    r.GatewayRef,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

const paymentColumns = `id, user_id, purpose, amount_cents, currency, status, gateway_ref, failure_reason, created_at, updated_at`

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, purpose, amount_cents, currency, status, gateway_ref, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, p.Purpose, p.AmountCents, p.Currency, p.Status, p.GatewayRef, p.FailureReason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	existing, err := s.GetPayment(ctx, p.ID)
	if err != nil {
		return payment.Payment{}, err
	}
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, gateway_ref = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Status, p.GatewayRef, p.FailureReason, p.UpdatedAt)
	if err != nil {
		return payment.Payment{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return payment.Payment{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	var row paymentRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id); err != nil {
		return payment.Payment{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetPaymentByGatewayRef(ctx context.Context, ref string) (payment.Payment, error) {
	var row paymentRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+paymentColumns+` FROM payments WHERE gateway_ref = $1 AND gateway_ref <> ''
	`, ref); err != nil {
		return payment.Payment{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListPaymentsByUser(ctx context.Context, userID string) ([]payment.Payment, error) {
	var rows []paymentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC
	`, userID); err != nil {
		return nil, err
	}
	result := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListPendingPayments(ctx context.Context) ([]payment.Payment, error) {
	var rows []paymentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+paymentColumns+` FROM payments WHERE status = 'pending' ORDER BY created_at
	`); err != nil {
		return nil, err
	}
	result := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- ReferralStore -----------------------------------------------------------

type referralRow struct {
	ID         string       `db:"id"`
	ReferrerID string       `db:"referrer_id"`
	ReferredID string       `db:"referred_id"`
	Code       string       `db:"code"`
	CreditedAt sql.NullTime `db:"credited_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

func (r referralRow) toDomain() referral.Referral {
	return referral.Referral{
		ID:         r.ID,
		ReferrerID: r.ReferrerID,
		ReferredID: r.ReferredID,
		Code:       r.Code,
		CreditedAt: fromNullTime(r.CreditedAt),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (s *Store) CreateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_id, code, credited_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ReferrerID, r.ReferredID, r.Code, toNullTime(r.CreditedAt), r.CreatedAt)
	if err != nil {
		return referral.Referral{}, err
	}
	return r, nil
}

func (s *Store) UpdateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE referrals SET credited_at = $2 WHERE id = $1
	`, r.ID, toNullTime(r.CreditedAt))
	if err != nil {
		return referral.Referral{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return referral.Referral{}, sql.ErrNoRows
	}
	return r, nil
}

func (s *Store) GetReferralByReferred(ctx context.Context, referredID string) (referral.Referral, error) {
	var row referralRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, referrer_id, referred_id, code, credited_at, created_at
		FROM referrals WHERE referred_id = $1
	`, referredID); err != nil {
		return referral.Referral{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Referral, error) {
	var rows []referralRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, referrer_id, referred_id, code, credited_at, created_at
		FROM referrals WHERE referrer_id = $1 ORDER BY created_at
	`, referrerID); err != nil {
		return nil, err
	}
	result := make([]referral.Referral, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- NotificationStore -------------------------------------------------------

type notificationRow struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	Kind      string       `db:"kind"`
	Subject   string       `db:"subject"`
	Body      string       `db:"body"`
	Status    string       `db:"status"`
	SentAt    sql.NullTime `db:"sent_at"`
	CreatedAt time.Time    `db:"created_at"`
}

func (r notificationRow) toDomain() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      notification.Kind(r.Kind),
		Subject:   r.Subject,
		Body:      r.Body,
		Status:    notification.Status(r.Status),
		SentAt:    fromNullTime(r.SentAt),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const notificationColumns = `id, user_id, kind, subject, body, status, sent_at, created_at`

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = notification.StatusPending
	}
	n.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, subject, body, status, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, n.Kind, n.Subject, n.Body, n.Status, toNullTime(n.SentAt), n.CreatedAt)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1
	`, n.ID, n.Status, toNullTime(n.SentAt))
	if err != nil {
		return notification.Notification{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notification.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1
	`, id); err != nil {
		return notification.Notification{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC
	`, userID); err != nil {
		return nil, err
	}
	result := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListPendingNotifications(ctx context.Context, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+` FROM notifications WHERE status = 'pending' ORDER BY created_at LIMIT $1
	`, limit); err != nil {
		return nil, err
	}
	result := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
