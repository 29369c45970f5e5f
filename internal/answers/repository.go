package answers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
)

// Repository handles answer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an answer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Submit stores all answers of one submission in a single transaction.
// An earlier answer of the same user to the same question is replaced.
func (r *Repository) Submit(ctx context.Context, list []models.Answer) error {
	const q = `INSERT INTO answers (user_id, question_id, choice_id, text_answer)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT answers_user_question_key
		DO UPDATE SET choice_id = EXCLUDED.choice_id, text_answer = EXCLUDED.text_answer, created_at = NOW()
		RETURNING id, created_at`
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range list {
			a := &list[i]
			if err := tx.QueryRow(ctx, q, a.UserID, a.QuestionID, a.ChoiceID, a.TextAnswer).Scan(&a.ID, &a.CreatedAt); err != nil {
				return fmt.Errorf("store answer for question %s: %w", a.QuestionID, err)
			}
		}
		return nil
	})
}

// ForUser returns userID's answers to the questions of surveyID keyed by question id.
func (r *Repository) ForUser(ctx context.Context, surveyID, userID uuid.UUID) (map[uuid.UUID]models.Answer, error) {
	const q = `SELECT a.id, a.user_id, a.question_id, a.choice_id, a.text_answer, a.created_at
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE q.survey_id = $1 AND a.user_id = $2`
	rows, err := r.pool.Query(ctx, q, surveyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]models.Answer)
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.ChoiceID, &a.TextAnswer, &a.CreatedAt); err != nil {
			return nil, err
		}
		out[a.QuestionID] = a
	}
	return out, rows.Err()
}
