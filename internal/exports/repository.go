package exports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
)

// Repository handles export records and the answer rows they render.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an export repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const exportColumns = `e.id, e.survey_id, e.requested_by, e.status, COALESCE(e.s3_key,''), e.size_bytes, COALESCE(e.error_message,''), e.created_at, e.updated_at`

func scanExport(row pgx.Row) (*models.Export, error) {
	var e models.Export
	err := row.Scan(&e.ID, &e.SurveyID, &e.RequestedBy, &e.Status, &e.S3Key, &e.SizeBytes, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &e, nil
}

// Create inserts a pending export.
func (r *Repository) Create(ctx context.Context, surveyID, requestedBy uuid.UUID) (*models.Export, error) {
	e, err := scanExport(r.pool.QueryRow(ctx, `INSERT INTO exports AS e (survey_id, requested_by)
		VALUES ($1, $2) RETURNING `+exportColumns, surveyID, requestedBy))
	if err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}
	return e, nil
}

// GetByID returns an export by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	return scanExport(r.pool.QueryRow(ctx, `SELECT `+exportColumns+` FROM exports e WHERE e.id = $1`, id))
}

// GetOwned returns an export of a survey owned by ownerID.
func (r *Repository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Export, error) {
	return scanExport(r.pool.QueryRow(ctx, `SELECT `+exportColumns+`
		FROM exports e JOIN surveys s ON s.id = e.survey_id
		WHERE e.id = $1 AND s.user_id = $2`, id, ownerID))
}

// MarkCompleted records the uploaded object.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, key string, size int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE exports SET status = $2, s3_key = $3, size_bytes = $4, error_message = NULL, updated_at = NOW()
		WHERE id = $1`, id, models.ExportStatusCompleted, key, size)
	if err != nil {
		return fmt.Errorf("complete export: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// MarkFailed records the final error of an export.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	_, err := r.pool.Exec(ctx, `UPDATE exports SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1`, id, models.ExportStatusFailed, msg)
	if err != nil {
		return fmt.Errorf("fail export: %w", err)
	}
	return nil
}

// Rows lists every answer of surveyID in question order, then by respondent.
func (r *Repository) Rows(ctx context.Context, surveyID uuid.UUID) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT q.title, q.question_type, u.username,
			COALESCE(c.title, a.text_answer, ''), a.created_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		JOIN users u ON u.id = a.user_id
		LEFT JOIN choices c ON c.id = a.choice_id
		WHERE q.survey_id = $1
		ORDER BY q.position, q.created_at, u.username`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Question, &row.Type, &row.Respondent, &row.Answer, &row.AnsweredAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
