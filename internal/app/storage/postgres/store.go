// Package postgres implements the storage interfaces over PostgreSQL using
// sqlx. Row structs stay private to this package; domain types carry no
// persistence tags.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var (
	_ storage.UserStore         = (*Store)(nil)
	_ storage.ListingStore      = (*Store)(nil)
	_ storage.MessageStore      = (*Store)(nil)
	_ storage.ForumStore        = (*Store)(nil)
	_ storage.PointsStore       = (*Store)(nil)
	_ storage.PaymentStore      = (*Store)(nil)
	_ storage.ReferralStore     = (*Store)(nil)
	_ storage.NotificationStore = (*Store)(nil)
)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Connect opens a pooled connection to the given PostgreSQL URL.
func Connect(url string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// --- UserStore ---------------------------------------------------------------

type userRow struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	Name           string    `db:"name"`
	Role           string    `db:"role"`
	PasswordHash   string    `db:"password_hash"`
	Bio            string    `db:"bio"`
	GraduationYear int       `db:"graduation_year"`
	Verified       bool      `db:"verified"`
	ReferralCode   string    `db:"referral_code"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r userRow) toDomain() user.User {
	return user.User{
		ID:             r.ID,
		Email:          r.Email,
		Name:           r.Name,
		Role:           user.Role(r.Role),
		PasswordHash:   r.PasswordHash,
		Bio:            r.Bio,
		GraduationYear: r.GraduationYear,
		Verified:       r.Verified,
		ReferralCode:   r.ReferralCode,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const userColumns = `id, email, name, role, password_hash, bio, graduation_year, verified, referral_code, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, bio, graduation_year, verified, referral_code, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.Bio, u.GraduationYear, u.Verified, u.ReferralCode, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, role = $3, password_hash = $4, bio = $5, graduation_year = $6, verified = $7, referral_code = $8, updated_at = $9
		WHERE id = $1
	`, u.ID, u.Name, u.Role, u.PasswordHash, u.Bio, u.GraduationYear, u.Verified, u.ReferralCode, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id); err != nil {
		return user.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+` FROM users WHERE email = lower($1)
	`, email); err != nil {
		return user.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+` FROM users WHERE referral_code = $1 AND referral_code <> ''
	`, code); err != nil {
		return user.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users ORDER BY created_at
	`); err != nil {
		return nil, err
	}
	result := make([]user.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
