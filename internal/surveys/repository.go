package surveys

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/slug"
)

// ReservedSlugs collide with static path segments under /surveys/.
var ReservedSlugs = []string{"create"}

// slugRetries bounds retries after a concurrent insert took the same slug.
const slugRetries = 3

// Repository handles survey persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a survey repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const surveyColumns = `id, user_id, title, COALESCE(description,''), slug, created, created_at, updated_at`

func scanSurvey(row pgx.Row) (*models.Survey, error) {
	var s models.Survey
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Slug, &s.Created, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, database.NotFound(err)
	}
	return &s, nil
}

// slugTaken reports whether any survey other than exclude has a slug
// starting with prefix, compared case-insensitively.
func (r *Repository) slugTaken(exclude uuid.UUID) slug.ExistsFunc {
	return func(ctx context.Context, prefix string) (bool, error) {
		var taken bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM surveys WHERE starts_with(LOWER(slug), LOWER($1)) AND id <> $2)`,
			prefix, exclude).Scan(&taken)
		return taken, err
	}
}

// Create assigns a unique slug to s and inserts it. The slug is never
// regenerated after this first save.
func (r *Repository) Create(ctx context.Context, s *models.Survey) error {
	const q = `INSERT INTO surveys (user_id, title, description, slug)
		VALUES ($1, $2, NULLIF($3,''), $4)
		RETURNING ` + surveyColumns
	for attempt := 0; ; attempt++ {
		sl, err := slug.Unique(ctx, s.Title, r.slugTaken(uuid.Nil), ReservedSlugs...)
		if err != nil {
			return fmt.Errorf("generate slug: %w", err)
		}
		created, err := scanSurvey(r.pool.QueryRow(ctx, q, s.UserID, s.Title, s.Description, sl))
		if database.IsUniqueViolation(err, "surveys_slug_key") && attempt < slugRetries {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert survey: %w", err)
		}
		*s = *created
		return nil
	}
}

// GetBySlug returns the survey with slug.
func (r *Repository) GetBySlug(ctx context.Context, sl string) (*models.Survey, error) {
	return scanSurvey(r.pool.QueryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE slug = $1`, sl))
}

// ListByOwner returns the surveys of userID, newest first.
func (r *Repository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Survey, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Survey
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// ListAll returns every survey with its owner for the admin listing.
func (r *Repository) ListAll(ctx context.Context) ([]models.SurveyListing, error) {
	const q = `SELECT s.id, s.title, s.slug, s.user_id, u.username, s.created,
		(SELECT COUNT(*) FROM questions q WHERE q.survey_id = s.id)
		FROM surveys s JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SurveyListing
	for rows.Next() {
		var l models.SurveyListing
		if err := rows.Scan(&l.ID, &l.Title, &l.Slug, &l.OwnerID, &l.OwnerUsername, &l.Created, &l.QuestionCount); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// UpdateDescription sets the description of survey id.
func (r *Repository) UpdateDescription(ctx context.Context, id uuid.UUID, description string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE surveys SET description = NULLIF($2,''), updated_at = NOW() WHERE id = $1`, id, description)
	if err != nil {
		return fmt.Errorf("update survey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes survey id; questions, choices, answers and exports cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
