package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository reads customer declaration records.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{
		pool: pool,
	}
}

const profileColumns = `
	customer_id, full_name, date_of_birth, pan, existing_loan, phone, email, created_at
`

// ByCustomerID fetches the profile for a customer. Returns (nil, nil) when
// the customer has no profile; an absent profile is not an error.
func (r *ProfileRepository) ByCustomerID(ctx context.Context, customerID string) (*domain.CustomerProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM customer_profiles
		WHERE customer_id = $1
	`
	return r.scanOne(ctx, query, customerID)
}

// ByName fetches the profile whose declared full name matches, ignoring
// case. Used as a fallback when the document carries no customer ID.
func (r *ProfileRepository) ByName(ctx context.Context, fullName string) (*domain.CustomerProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM customer_profiles
		WHERE LOWER(full_name) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(ctx, query, fullName)
}

func (r *ProfileRepository) scanOne(ctx context.Context, query string, arg interface{}) (*domain.CustomerProfile, error) {
	var p domain.CustomerProfile
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.CustomerID, &p.FullName, &p.DateOfBirth, &p.PAN,
		&p.ExistingLoan, &p.Phone, &p.Email, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query customer profile: %w", err)
	}
	return &p, nil
}

// Upsert stores a profile received from the profile events topic.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.CustomerProfile) error {
	const query = `
		INSERT INTO customer_profiles (
			customer_id, full_name, date_of_birth, pan, existing_loan, phone, email, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (customer_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			pan = EXCLUDED.pan,
			existing_loan = EXCLUDED.existing_loan,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
	`
	_, err := r.pool.Exec(ctx, query,
		profile.CustomerID, profile.FullName, profile.DateOfBirth, profile.PAN,
		profile.ExistingLoan, profile.Phone, profile.Email, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert customer profile: %w", err)
	}
	return nil
}
