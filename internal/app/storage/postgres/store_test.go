package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/user"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func userRowsFor(u user.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "role", "password_hash", "bio",
		"graduation_year", "verified", "referral_code", "created_at", "updated_at",
	}).AddRow(u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.Bio,
		u.GraduationYear, u.Verified, u.ReferralCode, u.CreatedAt, u.UpdatedAt)
}

func TestCreateUserInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(sqlmock.AnyArg(), "ada@uni.edu", "Ada", "student", "hash", "",
			0, false, "ADA12345", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.CreateUser(context.Background(), user.User{
		Email:        "ada@uni.edu",
		Name:         "Ada",
		Role:         user.RoleStudent,
		PasswordHash: "hash",
		ReferralCode: "ADA12345",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmailLowercases(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	stored := user.User{
		ID: "u-1", Email: "ada@uni.edu", Name: "Ada", Role: user.RoleStudent,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = lower($1)`)).
		WithArgs("Ada@Uni.edu").
		WillReturnRows(userRowsFor(stored))

	got, err := store.GetUserByEmail(context.Background(), "Ada@Uni.edu")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)
	require.Equal(t, user.RoleStudent, got.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateUserMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	stored := user.User{ID: "u-1", Email: "ada@uni.edu", CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("u-1").
		WillReturnRows(userRowsFor(stored))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateUser(context.Background(), user.User{ID: "u-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListListingsAppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "kind", "title", "company", "description", "location",
		"compensation", "deadline", "status", "tags", "created_at", "updated_at",
	}).AddRow("l-1", "u-1", "job", "Backend Intern", "Acme", "desc", "remote",
		"paid", sql.NullTime{}, "open", "{go,backend}", now, now)

	mock.ExpectQuery(`SELECT .+ FROM listings`).
		WithArgs("job", "open", "", "").
		WillReturnRows(rows)

	found, err := store.ListListings(context.Background(), listing.Filter{
		Kind:   listing.KindJob,
		Status: listing.StatusOpen,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Backend Intern", found[0].Title)
	require.Equal(t, []string{"go", "backend"}, found[0].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}
