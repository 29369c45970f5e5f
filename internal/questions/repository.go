package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
)

// ErrTooFewChoices is returned when a save would leave a multiple choice
// question with fewer than forms.MinChoices choices.
var ErrTooFewChoices = errors.New("multiple choice question needs at least 2 choices")

// ErrDuplicateChoices is returned when a save would leave two choices of a
// question whose titles differ only by case or surrounding whitespace.
var ErrDuplicateChoices = errors.New("duplicate choice titles")

// Repository handles question and choice persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a question repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const questionColumns = `id, survey_id, title, question_type, position, created_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var typ string
	if err := row.Scan(&q.ID, &q.SurveyID, &q.Title, &typ, &q.Position, &q.CreatedAt); err != nil {
		return nil, database.NotFound(err)
	}
	q.Type = models.QuestionType(typ)
	return &q, nil
}

// ListBySurvey returns the questions of a survey in position order, each
// with its choices.
func (r *Repository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE survey_id = $1 ORDER BY position, created_at`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Question
	index := map[uuid.UUID]int{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		index[q.ID] = len(list)
		list = append(list, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, q := range list {
		ids = append(ids, q.ID)
	}
	choices, err := listChoices(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, ch := range choices {
		i := index[ch.QuestionID]
		list[i].Choices = append(list[i].Choices, ch)
	}
	return list, nil
}

func listChoices(ctx context.Context, db querier, questionIDs []uuid.UUID) ([]models.Choice, error) {
	rows, err := db.Query(ctx,
		`SELECT id, question_id, title, position FROM choices WHERE question_id = ANY($1) ORDER BY question_id, position, title`,
		questionIDs)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	defer rows.Close()
	var list []models.Choice
	for rows.Next() {
		var ch models.Choice
		if err := rows.Scan(&ch.ID, &ch.QuestionID, &ch.Title, &ch.Position); err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// Get returns question id of surveyID with its choices.
func (r *Repository) Get(ctx context.Context, surveyID, id uuid.UUID) (*models.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1 AND survey_id = $2`, id, surveyID))
	if err != nil {
		return nil, err
	}
	q.Choices, err = listChoices(ctx, r.pool, []uuid.UUID{q.ID})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Save inserts or updates q and applies changes to its choices in one
// transaction. Switching to text removes every choice and with them the
// choice answers; switching to multiple choice removes the text answers.
// The stored result is re-checked: fewer than two choices aborts with
// ErrTooFewChoices, duplicate titles with ErrDuplicateChoices.
// On success q.Choices holds the stored choices.
func (r *Repository) Save(ctx context.Context, q *models.Question, changes forms.ChoiceChanges) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if q.ID == uuid.Nil {
			err := tx.QueryRow(ctx, `INSERT INTO questions (survey_id, title, question_type, position)
				VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE survey_id = $1))
				RETURNING id, position, created_at`,
				q.SurveyID, q.Title, string(q.Type)).Scan(&q.ID, &q.Position, &q.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
		} else {
			tag, err := tx.Exec(ctx, `UPDATE questions SET title = $3, question_type = $4 WHERE id = $1 AND survey_id = $2`,
				q.ID, q.SurveyID, q.Title, string(q.Type))
			if err != nil {
				return fmt.Errorf("update question: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return database.ErrNotFound
			}
		}

		if !q.IsMultipleChoice() {
			if _, err := tx.Exec(ctx, `DELETE FROM choices WHERE question_id = $1`, q.ID); err != nil {
				return fmt.Errorf("clear choices: %w", err)
			}
			q.Choices = nil
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM answers WHERE question_id = $1 AND text_answer IS NOT NULL`, q.ID); err != nil {
			return fmt.Errorf("clear text answers: %w", err)
		}
		if err := applyChoiceChanges(ctx, tx, q.ID, changes); err != nil {
			return err
		}
		var count int
		var duplicates bool
		err := tx.QueryRow(ctx, `SELECT COUNT(*),
				COUNT(*) <> COUNT(DISTINCT LOWER(BTRIM(title)))
			FROM choices WHERE question_id = $1`, q.ID).Scan(&count, &duplicates)
		if err != nil {
			return fmt.Errorf("count choices: %w", err)
		}
		if count < forms.MinChoices {
			return ErrTooFewChoices
		}
		if duplicates {
			return ErrDuplicateChoices
		}
		choices, err := listChoices(ctx, tx, []uuid.UUID{q.ID})
		if err != nil {
			return err
		}
		q.Choices = choices
		return nil
	})
}

func applyChoiceChanges(ctx context.Context, tx pgx.Tx, questionID uuid.UUID, changes forms.ChoiceChanges) error {
	if len(changes.Delete) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM choices WHERE question_id = $1 AND id = ANY($2)`, questionID, changes.Delete); err != nil {
			return fmt.Errorf("delete choices: %w", err)
		}
	}
	batch := &pgx.Batch{}
	for _, ch := range changes.Update {
		batch.Queue(`UPDATE choices SET title = $3, position = $4 WHERE id = $1 AND question_id = $2`,
			ch.ID, questionID, ch.Title, ch.Position)
	}
	for _, ch := range changes.Create {
		batch.Queue(`INSERT INTO choices (question_id, title, position) VALUES ($1, $2, $3)`,
			questionID, ch.Title, ch.Position)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write choices: %w", err)
	}
	return nil
}

// Delete removes question id of surveyID with its choices and answers.
func (r *Repository) Delete(ctx context.Context, surveyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1 AND survey_id = $2`, id, surveyID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
