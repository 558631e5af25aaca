package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campuslink/platform/internal/app/domain/listing"
)

// --- ListingStore ------------------------------------------------------------

type listingRow struct {
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	Kind         string         `db:"kind"`
	Title        string         `db:"title"`
	Company      string         `db:"company"`
	Description  string         `db:"description"`
	Location     string         `db:"location"`
	Compensation string         `db:"compensation"`
	Deadline     sql.NullTime   `db:"deadline"`
	Status       string         `db:"status"`
	Tags         pq.StringArray `db:"tags"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r listingRow) toDomain() listing.Listing {
	return listing.Listing{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Kind:         listing.Kind(r.Kind),
		Title:        r.Title,
		Company:      r.Company,
		Description:  r.Description,
		Location:     r.Location,
		Compensation: r.Compensation,
		Deadline:     fromNullTime(r.Deadline),
		Status:       listing.Status(r.Status),
		Tags:         []string(r.Tags),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const listingColumns = `id, owner_id, kind, title, company, description, location, compensation, deadline, status, tags, created_at, updated_at`

func (s *Store) CreateListing(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (id, owner_id, kind, title, company, description, location, compensation, deadline, status, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.OwnerID, l.Kind, l.Title, l.Company, l.Description, l.Location, l.Compensation,
		toNullTime(l.Deadline), l.Status, pq.StringArray(l.Tags), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return listing.Listing{}, err
	}
	return l, nil
}

func (s *Store) UpdateListing(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	existing, err := s.GetListing(ctx, l.ID)
	if err != nil {
		return listing.Listing{}, err
	}
	l.OwnerID = existing.OwnerID
	l.Kind = existing.Kind
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET title = $2, company = $3, description = $4, location = $5, compensation = $6, deadline = $7, status = $8, tags = $9, updated_at = $10
		WHERE id = $1
	`, l.ID, l.Title, l.Company, l.Description, l.Location, l.Compensation,
		toNullTime(l.Deadline), l.Status, pq.StringArray(l.Tags), l.UpdatedAt)
	if err != nil {
		return listing.Listing{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return listing.Listing{}, sql.ErrNoRows
	}
	return l, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (listing.Listing, error) {
	var row listingRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+listingColumns+` FROM listings WHERE id = $1
	`, id); err != nil {
		return listing.Listing{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListListings(ctx context.Context, filter listing.Filter) ([]listing.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR lower(location) = lower($3))
		  AND ($4 = '' OR $4 = ANY(tags))
		ORDER BY created_at DESC
	`, string(filter.Kind), string(filter.Status), filter.Location, filter.Tag); err != nil {
		return nil, err
	}
	result := make([]listing.Listing, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListExpiredCandidates(ctx context.Context, now time.Time) ([]listing.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE status = 'open' AND deadline IS NOT NULL AND deadline < $1
		ORDER BY created_at
	`, now.UTC()); err != nil {
		return nil, err
	}
	result := make([]listing.Listing, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- applications ------------------------------------------------------------

type applicationRow struct {
	ID          string    `db:"id"`
	ListingID   string    `db:"listing_id"`
	ApplicantID string    `db:"applicant_id"`
	Note        string    `db:"note"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r applicationRow) toDomain() listing.Application {
	return listing.Application{
		ID:          r.ID,
		ListingID:   r.ListingID,
		ApplicantID: r.ApplicantID,
		Note:        r.Note,
		Status:      listing.ApplicationStatus(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const applicationColumns = `id, listing_id, applicant_id, note, status, created_at, updated_at`

func (s *Store) CreateApplication(ctx context.Context, a listing.Application) (listing.Application, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, listing_id, applicant_id, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.ListingID, a.ApplicantID, a.Note, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return listing.Application{}, err
	}
	return a, nil
}

func (s *Store) UpdateApplication(ctx context.Context, a listing.Application) (listing.Application, error) {
	existing, err := s.GetApplication(ctx, a.ID)
	if err != nil {
		return listing.Application{}, err
	}
	a.ListingID = existing.ListingID
	a.ApplicantID = existing.ApplicantID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET note = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, a.ID, a.Note, a.Status, a.UpdatedAt)
	if err != nil {
		return listing.Application{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return listing.Application{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (listing.Application, error) {
	var row applicationRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+applicationColumns+` FROM applications WHERE id = $1
	`, id); err != nil {
		return listing.Application{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetApplicationByApplicant(ctx context.Context, listingID, applicantID string) (listing.Application, error) {
	var row applicationRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT `+applicationColumns+` FROM applications WHERE listing_id = $1 AND applicant_id = $2
	`, listingID, applicantID); err != nil {
		return listing.Application{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListApplicationsByListing(ctx context.Context, listingID string) ([]listing.Application, error) {
	return s.listApplications(ctx, `listing_id = $1`, listingID)
}

func (s *Store) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]listing.Application, error) {
	return s.listApplications(ctx, `applicant_id = $1`, applicantID)
}

func (s *Store) listApplications(ctx context.Context, where string, arg interface{}) ([]listing.Application, error) {
	var rows []applicationRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+applicationColumns+` FROM applications WHERE `+where+` ORDER BY created_at
	`, arg); err != nil {
		return nil, err
	}
	result := make([]listing.Application, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
