// Package users implements account registration, authentication and profile
// management.
package users

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/cache"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/logging"
	"github.com/campuslink/platform/internal/middleware"
)

// Referrals credits a redeemed referral code during signup. The referrals
// service satisfies this.
type Referrals interface {
	Redeem(ctx context.Context, code, referredID string) error
}

// Service manages member accounts and session tokens.
type Service struct {
	store     storage.UserStore
	referrals Referrals
	denylist  *cache.Cache
	secret    []byte
	tokenTTL  time.Duration
	log       *logging.Logger
}

// New constructs a users service.
func New(store storage.UserStore, referrals Referrals, denylist *cache.Cache, secret []byte, tokenTTL time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("users")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:     store,
		referrals: referrals,
		denylist:  denylist,
		secret:    secret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Email          string
	Name           string
	Password       string
	Role           user.Role
	GraduationYear int
	ReferralCode   string
}

// Register creates a new account. A valid referral code credits both sides.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)

	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return user.User{}, errors.InvalidInput("a valid email is required")
	}
	if in.Name == "" {
		return user.User{}, errors.InvalidInput("name is required")
	}
	if len(in.Password) < 8 {
		return user.User{}, errors.InvalidInput("password must be at least 8 characters")
	}
	if in.Role == "" {
		in.Role = user.RoleStudent
	}
	if !in.Role.Valid() || in.Role == user.RoleAdmin {
		return user.User{}, errors.InvalidInput("role must be student, alumni or employer")
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return user.User{}, errors.Conflict("email already registered")
	} else if !stderrors.Is(err, sql.ErrNoRows) {
		return user.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Internal("hash password", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email:          in.Email,
		Name:           in.Name,
		Role:           in.Role,
		PasswordHash:   string(hash),
		GraduationYear: in.GraduationYear,
		ReferralCode:   newReferralCode(),
	})
	if err != nil {
		return user.User{}, err
	}

	if in.ReferralCode != "" && s.referrals != nil {
		if err := s.referrals.Redeem(ctx, in.ReferralCode, created.ID); err != nil {
			// Signup stands even when the code is stale.
			s.log.WithField("user_id", created.ID).WithError(err).Warn("referral code not redeemed")
		}
	}

	metrics.RecordRegistration()
	s.log.WithField("user_id", created.ID).
		WithField("role", string(created.Role)).
		Info("user registered")
	return created, nil
}

// Authenticate verifies credentials and issues a session token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return user.User{}, "", errors.InvalidInput("email and password are required")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return user.User{}, "", errors.Unauthorized("invalid credentials")
		}
		return user.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", errors.Unauthorized("invalid credentials")
	}

	token, err := middleware.IssueToken(s.secret, u.ID, u.Email, string(u.Role), s.tokenTTL)
	if err != nil {
		return user.User{}, "", errors.Internal("issue token", err)
	}
	s.log.WithField("user_id", u.ID).Info("user authenticated")
	return u, token, nil
}

// Logout revokes a session token by its ID until its natural expiry.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if err := s.denylist.DenyToken(ctx, jti, ttl); err != nil {
		return errors.Internal("revoke token", err)
	}
	return nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return user.User{}, errors.NotFound("user")
		}
		return user.User{}, err
	}
	return u, nil
}

// UpdateProfile updates mutable profile fields on the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, id string, name, bio *string, graduationYear *int) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return user.User{}, errors.InvalidInput("name cannot be empty")
		}
		u.Name = trimmed
	}
	if bio != nil {
		u.Bio = strings.TrimSpace(*bio)
	}
	if graduationYear != nil {
		u.GraduationYear = *graduationYear
	}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).Info("profile updated")
	return updated, nil
}

// Promote changes a user's role. Admin only; enforced at the API layer and
// re-checked here.
func (s *Service) Promote(ctx context.Context, actorRole, id string, role user.Role) (user.User, error) {
	if actorRole != string(user.RoleAdmin) {
		return user.User{}, errors.Forbidden("admin role required")
	}
	if !role.Valid() {
		return user.User{}, errors.InvalidInput("unknown role")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Role = role
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).WithField("role", string(role)).Info("role changed")
	return updated, nil
}

// Verify marks an account as verified (alumni and employer vetting).
func (s *Service) Verify(ctx context.Context, actorRole, id string) (user.User, error) {
	if actorRole != string(user.RoleAdmin) {
		return user.User{}, errors.Forbidden("admin role required")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Verified = true
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).Info("user verified")
	return updated, nil
}

// List returns all users. Admin only; enforced at the API layer.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

func newReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
