// Package messaging implements direct messages between members, with a
// websocket fan-out for live delivery.
package messaging

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/message"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

const maxBodyLength = 4000

// Notifier queues out-of-band notifications for offline recipients.
type Notifier interface {
	Enqueue(ctx context.Context, userID string, kind notification.Kind, subject, body string) error
}

// Service manages message threads.
type Service struct {
	store    storage.MessageStore
	users    storage.UserStore
	notifier Notifier
	hub      *Hub
	log      *logging.Logger
}

// New constructs a messaging service.
func New(store storage.MessageStore, users storage.UserStore, notifier Notifier, hub *Hub, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("messaging")
	}
	return &Service{
		store:    store,
		users:    users,
		notifier: notifier,
		hub:      hub,
		log:      log,
	}
}

// Send delivers a message to another member, creating the thread on first
// contact. Live recipients get it over the websocket hub, offline ones get
// a queued notification.
func (s *Service) Send(ctx context.Context, senderID, recipientID, body string) (message.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return message.Message{}, errors.InvalidInput("message body is required")
	}
	if len(body) > maxBodyLength {
		return message.Message{}, errors.InvalidInput("message body too long")
	}
	if recipientID == "" || recipientID == senderID {
		return message.Message{}, errors.InvalidInput("recipient must be another member")
	}
	if _, err := s.users.GetUser(ctx, recipientID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return message.Message{}, errors.NotFound("recipient")
		}
		return message.Message{}, err
	}

	thread, err := s.findOrCreateThread(ctx, senderID, recipientID)
	if err != nil {
		return message.Message{}, err
	}

	created, err := s.store.CreateMessage(ctx, message.Message{
		ThreadID: thread.ID,
		SenderID: senderID,
		Body:     body,
	})
	if err != nil {
		return message.Message{}, err
	}

	delivered := s.hub.Deliver(recipientID, Event{
		Type:     "message",
		ThreadID: thread.ID,
		SenderID: senderID,
		Body:     body,
		SentAt:   created.CreatedAt,
	})
	if !delivered && s.notifier != nil {
		if err := s.notifier.Enqueue(ctx, recipientID, notification.KindMessage, "New message", "You have a new direct message."); err != nil {
			s.log.WithError(err).Warn("message notification not queued")
		}
	}

	metrics.RecordMessage()
	s.log.WithField("thread_id", thread.ID).
		WithField("message_id", created.ID).
		Info("message sent")
	return created, nil
}

func (s *Service) findOrCreateThread(ctx context.Context, a, b string) (message.Thread, error) {
	// Participant order is normalised so one pair maps to one thread.
	if a > b {
		a, b = b, a
	}
	thread, err := s.store.GetThreadByParticipants(ctx, a, b)
	if err == nil {
		return thread, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return message.Thread{}, err
	}
	return s.store.CreateThread(ctx, message.Thread{ParticipantA: a, ParticipantB: b})
}

// OpenThread returns the thread between the caller and another member,
// creating it on first contact. One pair of participants has one thread.
func (s *Service) OpenThread(ctx context.Context, userID, recipientID string) (message.Thread, error) {
	if recipientID == "" || recipientID == userID {
		return message.Thread{}, errors.InvalidInput("recipient must be another member")
	}
	if _, err := s.users.GetUser(ctx, recipientID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return message.Thread{}, errors.NotFound("recipient")
		}
		return message.Thread{}, err
	}
	return s.findOrCreateThread(ctx, userID, recipientID)
}

// Threads lists the caller's threads, most recently active first.
func (s *Service) Threads(ctx context.Context, userID string) ([]message.Thread, error) {
	return s.store.ListThreadsByUser(ctx, userID)
}

// Messages returns a thread's messages and marks the other side's messages
// as read. Participants only.
func (s *Service) Messages(ctx context.Context, userID, threadID string) ([]message.Message, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("thread")
		}
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, errors.Forbidden("not a thread participant")
	}

	msgs, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkMessagesRead(ctx, threadID, userID, time.Now().UTC()); err != nil {
		s.log.WithError(err).Warn("mark messages read failed")
	}
	return msgs, nil
}
