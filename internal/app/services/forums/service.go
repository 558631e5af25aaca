// Package forums implements discussion boards, topics and posts.
package forums

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"github.com/campuslink/platform/internal/app/domain/forum"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
)

// Points awards participation points. The points service satisfies this.
type Points interface {
	Award(ctx context.Context, userID, reason, refID string) error
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Authors may edit their own posts for this long; admins are exempt.
const defaultEditWindow = 15 * time.Minute

// Service manages the community forum.
type Service struct {
	store      storage.ForumStore
	points     Points
	editWindow time.Duration
	log        *logging.Logger
}

// New constructs a forums service.
func New(store storage.ForumStore, pts Points, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("forums")
	}
	return &Service{store: store, points: pts, editWindow: defaultEditWindow, log: log}
}

// CreateBoard adds a board. Admin only.
func (s *Service) CreateBoard(ctx context.Context, actorRole, slug, title, description string) (forum.Board, error) {
	if actorRole != string(user.RoleAdmin) {
		return forum.Board{}, errors.Forbidden("admin role required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	title = strings.TrimSpace(title)
	if !slugPattern.MatchString(slug) {
		return forum.Board{}, errors.InvalidInput("slug must be lowercase words separated by hyphens")
	}
	if title == "" {
		return forum.Board{}, errors.InvalidInput("title is required")
	}
	if _, err := s.store.GetBoardBySlug(ctx, slug); err == nil {
		return forum.Board{}, errors.Conflict("board slug already exists")
	} else if !stderrors.Is(err, sql.ErrNoRows) {
		return forum.Board{}, err
	}

	created, err := s.store.CreateBoard(ctx, forum.Board{
		Slug:        slug,
		Title:       title,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return forum.Board{}, err
	}
	s.log.WithField("board", slug).Info("board created")
	return created, nil
}

// Boards lists all boards.
func (s *Service) Boards(ctx context.Context) ([]forum.Board, error) {
	return s.store.ListBoards(ctx)
}

// Board returns a board by slug.
func (s *Service) Board(ctx context.Context, slug string) (forum.Board, error) {
	b, err := s.store.GetBoardBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return forum.Board{}, errors.NotFound("board")
		}
		return forum.Board{}, err
	}
	return b, nil
}

// CreateTopic opens a topic on a board with its first post.
func (s *Service) CreateTopic(ctx context.Context, authorID, boardSlug, title, body string) (forum.Topic, forum.Post, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return forum.Topic{}, forum.Post{}, errors.InvalidInput("title is required")
	}
	if body == "" {
		return forum.Topic{}, forum.Post{}, errors.InvalidInput("body is required")
	}

	board, err := s.Board(ctx, boardSlug)
	if err != nil {
		return forum.Topic{}, forum.Post{}, err
	}

	topic, err := s.store.CreateTopic(ctx, forum.Topic{
		BoardID:  board.ID,
		AuthorID: authorID,
		Title:    title,
	})
	if err != nil {
		return forum.Topic{}, forum.Post{}, err
	}
	post, err := s.createPost(ctx, topic, authorID, body)
	if err != nil {
		return forum.Topic{}, forum.Post{}, err
	}
	s.log.WithField("topic_id", topic.ID).WithField("board", board.Slug).Info("topic created")
	return topic, post, nil
}

// Topics lists a board's topics, pinned first.
func (s *Service) Topics(ctx context.Context, boardSlug string) ([]forum.Topic, error) {
	board, err := s.Board(ctx, boardSlug)
	if err != nil {
		return nil, err
	}
	return s.store.ListTopics(ctx, board.ID)
}

// Reply adds a post to a topic. Locked topics reject replies.
func (s *Service) Reply(ctx context.Context, authorID, topicID, body string) (forum.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return forum.Post{}, errors.InvalidInput("body is required")
	}
	topic, err := s.getTopic(ctx, topicID)
	if err != nil {
		return forum.Post{}, err
	}
	if topic.Locked {
		return forum.Post{}, errors.Conflict("topic is locked")
	}
	post, err := s.createPost(ctx, topic, authorID, body)
	if err != nil {
		return forum.Post{}, err
	}
	s.log.WithField("topic_id", topicID).WithField("post_id", post.ID).Info("reply posted")
	return post, nil
}

func (s *Service) createPost(ctx context.Context, topic forum.Topic, authorID, body string) (forum.Post, error) {
	post, err := s.store.CreatePost(ctx, forum.Post{
		TopicID:  topic.ID,
		AuthorID: authorID,
		Body:     body,
	})
	if err != nil {
		return forum.Post{}, err
	}
	if s.points != nil {
		if err := s.points.Award(ctx, authorID, points.ReasonForumPost, post.ID); err != nil {
			s.log.WithError(err).Warn("forum points not awarded")
		}
	}
	metrics.RecordForumPost()
	return post, nil
}

// Posts lists a topic's posts, oldest first.
func (s *Service) Posts(ctx context.Context, topicID string) ([]forum.Post, error) {
	if _, err := s.getTopic(ctx, topicID); err != nil {
		return nil, err
	}
	return s.store.ListPosts(ctx, topicID)
}

// EditPost updates a post's body. Author or admin only.
func (s *Service) EditPost(ctx context.Context, actorID, actorRole, postID, body string) (forum.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return forum.Post{}, errors.InvalidInput("body is required")
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return forum.Post{}, errors.NotFound("post")
		}
		return forum.Post{}, err
	}
	if actorRole != string(user.RoleAdmin) {
		if post.AuthorID != actorID {
			return forum.Post{}, errors.Forbidden("not the post author")
		}
		if time.Since(post.CreatedAt) > s.editWindow {
			return forum.Post{}, errors.Forbidden("edit window has closed")
		}
	}
	post.Body = body
	return s.store.UpdatePost(ctx, post)
}

// Moderate pins or locks a topic. Admin only.
func (s *Service) Moderate(ctx context.Context, actorRole, topicID string, pinned, locked *bool) (forum.Topic, error) {
	if actorRole != string(user.RoleAdmin) {
		return forum.Topic{}, errors.Forbidden("admin role required")
	}
	topic, err := s.getTopic(ctx, topicID)
	if err != nil {
		return forum.Topic{}, err
	}
	if pinned != nil {
		topic.Pinned = *pinned
	}
	if locked != nil {
		topic.Locked = *locked
	}
	updated, err := s.store.UpdateTopic(ctx, topic)
	if err != nil {
		return forum.Topic{}, err
	}
	s.log.WithField("topic_id", topicID).
		WithField("pinned", topic.Pinned).
		WithField("locked", topic.Locked).
		Info("topic moderated")
	return updated, nil
}

func (s *Service) getTopic(ctx context.Context, id string) (forum.Topic, error) {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return forum.Topic{}, errors.NotFound("topic")
		}
		return forum.Topic{}, err
	}
	return topic, nil
}
