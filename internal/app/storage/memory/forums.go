package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/campuslink/platform/internal/app/domain/forum"
)

// --- ForumStore --------------------------------------------------------------

func (s *Store) CreateBoard(_ context.Context, b forum.Board) (forum.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.boards {
		if existing.Slug == b.Slug {
			return forum.Board{}, fmt.Errorf("board with slug %s already exists", b.Slug)
		}
	}

	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt = time.Now().UTC()
	s.boards[b.ID] = b
	return b, nil
}

func (s *Store) GetBoard(_ context.Context, id string) (forum.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return forum.Board{}, sql.ErrNoRows
	}
	return b, nil
}

func (s *Store) GetBoardBySlug(_ context.Context, slug string) (forum.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.boards {
		if b.Slug == slug {
			return b, nil
		}
	}
	return forum.Board{}, sql.ErrNoRows
}

func (s *Store) ListBoards(_ context.Context) ([]forum.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]forum.Board, 0, len(s.boards))
	for _, b := range s.boards {
		result = append(result, b)
	}
	sortByCreated(result, func(b forum.Board) time.Time { return b.CreatedAt })
	return result, nil
}

func (s *Store) CreateTopic(_ context.Context, t forum.Topic) (forum.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[t.BoardID]; !ok {
		return forum.Topic{}, sql.ErrNoRows
	}
	if t.ID == "" {
		t.ID = newID()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.topics[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTopic(_ context.Context, t forum.Topic) (forum.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.topics[t.ID]
	if !ok {
		return forum.Topic{}, sql.ErrNoRows
	}
	t.BoardID = existing.BoardID
	t.AuthorID = existing.AuthorID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.topics[t.ID] = t
	return t, nil
}

func (s *Store) GetTopic(_ context.Context, id string) (forum.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return forum.Topic{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) ListTopics(_ context.Context, boardID string) ([]forum.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []forum.Topic
	for _, t := range s.topics {
		if t.BoardID == boardID {
			result = append(result, t)
		}
	}
	// Pinned topics first, then most recent activity.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Pinned != result[j].Pinned {
			return result[i].Pinned
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) CreatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[p.TopicID]; !ok {
		return forum.Post{}, sql.ErrNoRows
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p

	topic := s.topics[p.TopicID]
	topic.UpdatedAt = now
	s.topics[p.TopicID] = topic
	return p, nil
}

func (s *Store) UpdatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[p.ID]
	if !ok {
		return forum.Post{}, sql.ErrNoRows
	}
	p.TopicID = existing.TopicID
	p.AuthorID = existing.AuthorID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id string) (forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return forum.Post{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) ListPosts(_ context.Context, topicID string) ([]forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []forum.Post
	for _, p := range s.posts {
		if p.TopicID == topicID {
			result = append(result, p)
		}
	}
	sortByCreated(result, func(p forum.Post) time.Time { return p.CreatedAt })
	return result, nil
}
