package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind Results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counts aggregates the answers of surveyID.
func (r *Repository) Counts(ctx context.Context, surveyID uuid.UUID) (Counts, error) {
	counts := Counts{Choices: map[uuid.UUID]int{}, Text: map[uuid.UUID]int{}}

	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT a.user_id)
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.survey_id = $1`, surveyID).Scan(&counts.Respondents)
	if err != nil {
		return counts, fmt.Errorf("count respondents: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT a.choice_id, COUNT(*)
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.survey_id = $1 AND a.choice_id IS NOT NULL
		GROUP BY a.choice_id`, surveyID)
	if err != nil {
		return counts, fmt.Errorf("count choices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return counts, err
		}
		counts.Choices[id] = n
	}
	if err := rows.Err(); err != nil {
		return counts, err
	}

	rows, err = r.pool.Query(ctx, `SELECT a.question_id, COUNT(*)
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.survey_id = $1 AND a.text_answer IS NOT NULL
		GROUP BY a.question_id`, surveyID)
	if err != nil {
		return counts, fmt.Errorf("count text answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return counts, err
		}
		counts.Text[id] = n
	}
	return counts, rows.Err()
}
