package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
)

// ErrEmailTaken is returned when another profile already uses the email.
var ErrEmailTaken = errors.New("email already in use")

// Repository handles profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an accounts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfile returns the profile of userID.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const q = `SELECT user_id, COALESCE(first_name,''), COALESCE(last_name,''), COALESCE(email,''), COALESCE(bio,''), updated_at
		FROM profiles WHERE user_id = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Bio, &p.UpdatedAt)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &p, nil
}

// EmailInUse reports whether email, compared case-insensitively, belongs to
// a profile other than userID's.
func (r *Repository) EmailInUse(ctx context.Context, email string, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE LOWER(email) = LOWER($1) AND user_id <> $2)`,
		email, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// UpdateProfile saves p. A concurrent duplicate email surfaces as ErrEmailTaken.
func (r *Repository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	const q = `UPDATE profiles SET first_name = NULLIF($2,''), last_name = NULLIF($3,''), email = NULLIF($4,''), bio = NULLIF($5,''), updated_at = NOW()
		WHERE user_id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, p.UserID, p.FirstName, p.LastName, p.Email, p.Bio).Scan(&p.UpdatedAt)
	if database.IsUniqueViolation(err, "profiles_email_lower_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", database.NotFound(err))
	}
	return nil
}
