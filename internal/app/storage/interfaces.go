// Package storage defines the persistence interfaces consumed by the feature
// services. PostgreSQL backs production; the memory implementation backs
// tests.
package storage

import (
	"context"
	"time"

	"github.com/campuslink/platform/internal/app/domain/forum"
	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/message"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/app/domain/referral"
	"github.com/campuslink/platform/internal/app/domain/user"
)

// UserStore persists member accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// ListingStore persists listings and applications.
type ListingStore interface {
	CreateListing(ctx context.Context, l listing.Listing) (listing.Listing, error)
	UpdateListing(ctx context.Context, l listing.Listing) (listing.Listing, error)
	GetListing(ctx context.Context, id string) (listing.Listing, error)
	ListListings(ctx context.Context, filter listing.Filter) ([]listing.Listing, error)
	ListExpiredCandidates(ctx context.Context, now time.Time) ([]listing.Listing, error)

	CreateApplication(ctx context.Context, a listing.Application) (listing.Application, error)
	UpdateApplication(ctx context.Context, a listing.Application) (listing.Application, error)
	GetApplication(ctx context.Context, id string) (listing.Application, error)
	GetApplicationByApplicant(ctx context.Context, listingID, applicantID string) (listing.Application, error)
	ListApplicationsByListing(ctx context.Context, listingID string) ([]listing.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]listing.Application, error)
}

// MessageStore persists threads and messages.
type MessageStore interface {
	CreateThread(ctx context.Context, t message.Thread) (message.Thread, error)
	UpdateThread(ctx context.Context, t message.Thread) (message.Thread, error)
	GetThread(ctx context.Context, id string) (message.Thread, error)
	GetThreadByParticipants(ctx context.Context, a, b string) (message.Thread, error)
	ListThreadsByUser(ctx context.Context, userID string) ([]message.Thread, error)

	CreateMessage(ctx context.Context, m message.Message) (message.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]message.Message, error)
	MarkMessagesRead(ctx context.Context, threadID, readerID string, at time.Time) error
}

// ForumStore persists boards, topics and posts.
type ForumStore interface {
	CreateBoard(ctx context.Context, b forum.Board) (forum.Board, error)
	GetBoard(ctx context.Context, id string) (forum.Board, error)
	GetBoardBySlug(ctx context.Context, slug string) (forum.Board, error)
	ListBoards(ctx context.Context) ([]forum.Board, error)

	CreateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error)
	UpdateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error)
	GetTopic(ctx context.Context, id string) (forum.Topic, error)
	ListTopics(ctx context.Context, boardID string) ([]forum.Topic, error)

	CreatePost(ctx context.Context, p forum.Post) (forum.Post, error)
	UpdatePost(ctx context.Context, p forum.Post) (forum.Post, error)
	GetPost(ctx context.Context, id string) (forum.Post, error)
	ListPosts(ctx context.Context, topicID string) ([]forum.Post, error)
}

// PointsStore persists point awards and badges.
type PointsStore interface {
	CreateAward(ctx context.Context, a points.Award) (points.Award, error)
	ListAwards(ctx context.Context, userID string) ([]points.Award, error)
	TotalPoints(ctx context.Context, userID string) (int, error)
	TopTotals(ctx context.Context, limit int) ([]points.LeaderboardEntry, error)

	CreateBadge(ctx context.Context, b points.Badge) (points.Badge, error)
	ListBadges(ctx context.Context, userID string) ([]points.Badge, error)
	HasBadge(ctx context.Context, userID, name string) (bool, error)
}

// PaymentStore persists payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	GetPayment(ctx context.Context, id string) (payment.Payment, error)
	GetPaymentByGatewayRef(ctx context.Context, ref string) (payment.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]payment.Payment, error)
	ListPendingPayments(ctx context.Context) ([]payment.Payment, error)
}

// ReferralStore persists referral records.
type ReferralStore interface {
	CreateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error)
	UpdateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error)
	GetReferralByReferred(ctx context.Context, referredID string) (referral.Referral, error)
	ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Referral, error)
}

// NotificationStore persists queued notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID string) ([]notification.Notification, error)
	ListPendingNotifications(ctx context.Context, limit int) ([]notification.Notification, error)
}
