package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/platform/internal/app/domain/forum"
	"github.com/campuslink/platform/internal/app/domain/message"
)

// --- MessageStore ------------------------------------------------------------

type threadRow struct {
	ID           string    `db:"id"`
	ParticipantA string    `db:"participant_a"`
	ParticipantB string    `db:"participant_b"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r threadRow) toDomain() message.Thread {
	return message.Thread{
		ID:           r.ID,
		ParticipantA: r.ParticipantA,
		ParticipantB: r.ParticipantB,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateThread(ctx context.Context, t message.Thread) (message.Thread, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, participant_a, participant_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.ParticipantA, t.ParticipantB, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return message.Thread{}, err
	}
	return t, nil
}

func (s *Store) UpdateThread(ctx context.Context, t message.Thread) (message.Thread, error) {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE threads SET updated_at = $2 WHERE id = $1
	`, t.ID, t.UpdatedAt)
	if err != nil {
		return message.Thread{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return message.Thread{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) GetThread(ctx context.Context, id string) (message.Thread, error) {
	var row threadRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, participant_a, participant_b, created_at, updated_at FROM threads WHERE id = $1
	`, id); err != nil {
		return message.Thread{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetThreadByParticipants(ctx context.Context, a, b string) (message.Thread, error) {
	var row threadRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM threads
		WHERE (participant_a = $1 AND participant_b = $2)
		   OR (participant_a = $2 AND participant_b = $1)
	`, a, b); err != nil {
		return message.Thread{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListThreadsByUser(ctx context.Context, userID string) ([]message.Thread, error) {
	var rows []threadRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM threads
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC
	`, userID); err != nil {
		return nil, err
	}
	result := make([]message.Thread, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

type messageRow struct {
	ID        string       `db:"id"`
	ThreadID  string       `db:"thread_id"`
	SenderID  string       `db:"sender_id"`
	Body      string       `db:"body"`
	ReadAt    sql.NullTime `db:"read_at"`
	CreatedAt time.Time    `db:"created_at"`
}

func (r messageRow) toDomain() message.Message {
	return message.Message{
		ID:        r.ID,
		ThreadID:  r.ThreadID,
		SenderID:  r.SenderID,
		Body:      r.Body,
		ReadAt:    fromNullTime(r.ReadAt),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (s *Store) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, body, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.ThreadID, m.SenderID, m.Body, toNullTime(m.ReadAt), m.CreatedAt)
	if err != nil {
		return message.Message{}, err
	}

	// Bump the thread so conversation lists order by recent activity.
	_, err = s.db.ExecContext(ctx, `
		UPDATE threads SET updated_at = $2 WHERE id = $1
	`, m.ThreadID, m.CreatedAt)
	if err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, threadID string) ([]message.Message, error) {
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, thread_id, sender_id, body, read_at, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at
	`, threadID); err != nil {
		return nil, err
	}
	result := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) MarkMessagesRead(ctx context.Context, threadID, readerID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET read_at = $3
		WHERE thread_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`, threadID, readerID, at.UTC())
	return err
}

// --- ForumStore --------------------------------------------------------------

type boardRow struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r boardRow) toDomain() forum.Board {
	return forum.Board{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (s *Store) CreateBoard(ctx context.Context, b forum.Board) (forum.Board, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, slug, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.Slug, b.Title, b.Description, b.CreatedAt)
	if err != nil {
		return forum.Board{}, err
	}
	return b, nil
}

func (s *Store) GetBoard(ctx context.Context, id string) (forum.Board, error) {
	var row boardRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, slug, title, description, created_at FROM boards WHERE id = $1
	`, id); err != nil {
		return forum.Board{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetBoardBySlug(ctx context.Context, slug string) (forum.Board, error) {
	var row boardRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, slug, title, description, created_at FROM boards WHERE slug = $1
	`, slug); err != nil {
		return forum.Board{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListBoards(ctx context.Context) ([]forum.Board, error) {
	var rows []boardRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, slug, title, description, created_at FROM boards ORDER BY created_at
	`); err != nil {
		return nil, err
	}
	result := make([]forum.Board, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

type topicRow struct {
	ID        string    `db:"id"`
	BoardID   string    `db:"board_id"`
	AuthorID  string    `db:"author_id"`
	Title     string    `db:"title"`
	Pinned    bool      `db:"pinned"`
	Locked    bool      `db:"locked"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r topicRow) toDomain() forum.Topic {
	return forum.Topic{
		ID:        r.ID,
		BoardID:   r.BoardID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Pinned:    r.Pinned,
		Locked:    r.Locked,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, board_id, author_id, title, pinned, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.BoardID, t.AuthorID, t.Title, t.Pinned, t.Locked, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return forum.Topic{}, err
	}
	return t, nil
}

func (s *Store) UpdateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error) {
	existing, err := s.GetTopic(ctx, t.ID)
	if err != nil {
		return forum.Topic{}, err
	}
	t.BoardID = existing.BoardID
	t.AuthorID = existing.AuthorID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE topics
		SET title = $2, pinned = $3, locked = $4, updated_at = $5
		WHERE id = $1
	`, t.ID, t.Title, t.Pinned, t.Locked, t.UpdatedAt)
	if err != nil {
		return forum.Topic{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return forum.Topic{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) GetTopic(ctx context.Context, id string) (forum.Topic, error) {
	var row topicRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, board_id, author_id, title, pinned, locked, created_at, updated_at
		FROM topics WHERE id = $1
	`, id); err != nil {
		return forum.Topic{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListTopics(ctx context.Context, boardID string) ([]forum.Topic, error) {
	var rows []topicRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, board_id, author_id, title, pinned, locked, created_at, updated_at
		FROM topics
		WHERE board_id = $1
		ORDER BY pinned DESC, updated_at DESC
	`, boardID); err != nil {
		return nil, err
	}
	result := make([]forum.Topic, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

type postRow struct {
	ID        string    `db:"id"`
	TopicID   string    `db:"topic_id"`
	AuthorID  string    `db:"author_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r postRow) toDomain() forum.Post {
	return forum.Post{
		ID:        r.ID,
		TopicID:   r.TopicID,
		AuthorID:  r.AuthorID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (s *Store) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, topic_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.TopicID, p.AuthorID, p.Body, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return forum.Post{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE topics SET updated_at = $2 WHERE id = $1
	`, p.TopicID, now)
	if err != nil {
		return forum.Post{}, err
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	existing, err := s.GetPost(ctx, p.ID)
	if err != nil {
		return forum.Post{}, err
	}
	p.TopicID = existing.TopicID
	p.AuthorID = existing.AuthorID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET body = $2, updated_at = $3 WHERE id = $1
	`, p.ID, p.Body, p.UpdatedAt)
	if err != nil {
		return forum.Post{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return forum.Post{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (forum.Post, error) {
	var row postRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT id, topic_id, author_id, body, created_at, updated_at FROM posts WHERE id = $1
	`, id); err != nil {
		return forum.Post{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListPosts(ctx context.Context, topicID string) ([]forum.Post, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, topic_id, author_id, body, created_at, updated_at
		FROM posts WHERE topic_id = $1 ORDER BY created_at
	`, topicID); err != nil {
		return nil, err
	}
	result := make([]forum.Post, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
