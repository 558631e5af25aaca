package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuslink/platform/internal/app/domain/message"
)

// --- MessageStore ------------------------------------------------------------

func (s *Store) CreateThread(_ context.Context, t message.Thread) (message.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.threads[t.ID] = t
	return t, nil
}

func (s *Store) UpdateThread(_ context.Context, t message.Thread) (message.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.threads[t.ID]
	if !ok {
		return message.Thread{}, sql.ErrNoRows
	}
	t.ParticipantA = existing.ParticipantA
	t.ParticipantB = existing.ParticipantB
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.threads[t.ID] = t
	return t, nil
}

func (s *Store) GetThread(_ context.Context, id string) (message.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return message.Thread{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) GetThreadByParticipants(_ context.Context, a, b string) (message.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.threads {
		if (t.ParticipantA == a && t.ParticipantB == b) || (t.ParticipantA == b && t.ParticipantB == a) {
			return t, nil
		}
	}
	return message.Thread{}, sql.ErrNoRows
}

func (s *Store) ListThreadsByUser(_ context.Context, userID string) ([]message.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []message.Thread
	for _, t := range s.threads {
		if t.HasParticipant(userID) {
			result = append(result, t)
		}
	}
	sortByNewest(result, func(t message.Thread) time.Time { return t.UpdatedAt })
	return result, nil
}

func (s *Store) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[m.ThreadID]; !ok {
		return message.Message{}, sql.ErrNoRows
	}
	if m.ID == "" {
		m.ID = newID()
	}
	m.CreatedAt = time.Now().UTC()
	s.messages[m.ID] = m

	thread := s.threads[m.ThreadID]
	thread.UpdatedAt = m.CreatedAt
	s.threads[m.ThreadID] = thread
	return m, nil
}

func (s *Store) ListMessages(_ context.Context, threadID string) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []message.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID {
			result = append(result, m)
		}
	}
	sortByCreated(result, func(m message.Message) time.Time { return m.CreatedAt })
	return result, nil
}

func (s *Store) MarkMessagesRead(_ context.Context, threadID, readerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.messages {
		if m.ThreadID == threadID && m.SenderID != readerID && m.ReadAt.IsZero() {
			m.ReadAt = at.UTC()
			s.messages[id] = m
		}
	}
	return nil
}
