// Package notifications implements the queued notification pipeline: feature
// services enqueue, a dispatcher drains the queue through the mailer, and a
// cron job sends the weekly digest.
package notifications

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
	"github.com/campuslink/platform/internal/mail"
)

// Service manages the notification queue.
type Service struct {
	store  storage.NotificationStore
	users  storage.UserStore
	mailer mail.Mailer
	log    *logging.Logger
}

// New constructs a notifications service.
func New(store storage.NotificationStore, users storage.UserStore, mailer mail.Mailer, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("notifications")
	}
	if mailer == nil {
		mailer = mail.NewLogMailer(log)
	}
	return &Service{store: store, users: users, mailer: mailer, log: log}
}

// Enqueue queues a notification for delivery. Feature services call this.
func (s *Service) Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if userID == "" || subject == "" {
		return errors.InvalidInput("user and subject are required")
	}
	_, err := s.store.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Kind:    kind,
		Subject: subject,
		Body:    body,
		Status:  notification.StatusPending,
	})
	return err
}

// ListMine returns the caller's notifications, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]notification.Notification, error) {
	return s.store.ListNotificationsByUser(ctx, userID)
}

// DispatchPending delivers up to limit queued notifications through the
// mailer. The dispatcher calls this on an interval; it returns how many were
// attempted.
func (s *Service) DispatchPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.ListPendingNotifications(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, n := range pending {
		s.deliver(ctx, n)
	}
	return len(pending), nil
}

func (s *Service) deliver(ctx context.Context, n notification.Notification) {
	u, err := s.users.GetUser(ctx, n.UserID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			// Recipient is gone; drop the notification.
			s.finish(ctx, n, notification.StatusFailed)
			return
		}
		s.log.WithError(err).WithField("notification_id", n.ID).Warn("recipient lookup failed")
		return
	}

	if err := s.mailer.Send(u.Email, n.Subject, n.Body); err != nil {
		s.log.WithError(err).
			WithField("notification_id", n.ID).
			Warn("notification delivery failed")
		s.finish(ctx, n, notification.StatusFailed)
		return
	}
	s.finish(ctx, n, notification.StatusSent)
}

func (s *Service) finish(ctx context.Context, n notification.Notification, status notification.Status) {
	n.Status = status
	if status == notification.StatusSent {
		n.SentAt = time.Now().UTC()
	}
	if _, err := s.store.UpdateNotification(ctx, n); err != nil {
		s.log.WithError(err).WithField("notification_id", n.ID).Warn("notification status not recorded")
		return
	}
	metrics.RecordNotification(string(status))
}
