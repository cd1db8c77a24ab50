package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge-backend/internal/models"
)

type QuizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

func (r *QuizRepo) Create(ctx context.Context, q *models.Quiz) error {
	q.ID = uuid.New()
	query := `INSERT INTO quizzes (id, title, description, category, difficulty, time_limit_minutes, max_attempts, created_by, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.Title, q.Description, q.Category, q.Difficulty,
		q.TimeLimitMinutes, q.MaxAttempts, q.CreatedBy, q.IsPublished,
	).Scan(&q.CreatedAt)
}

func (r *QuizRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q := &models.Quiz{}
	query := `SELECT id, title, description, category, difficulty, time_limit_minutes, max_attempts, created_by, is_published, created_at
		FROM quizzes WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.Title, &q.Description, &q.Category, &q.Difficulty,
		&q.TimeLimitMinutes, &q.MaxAttempts, &q.CreatedBy, &q.IsPublished, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *QuizRepo) ListPublished(ctx context.Context) ([]*models.Quiz, error) {
	return r.list(ctx, "WHERE is_published = TRUE", nil)
}

func (r *QuizRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Quiz, error) {
	return r.list(ctx, "WHERE created_by = $1", []interface{}{creatorID})
}

func (r *QuizRepo) list(ctx context.Context, where string, args []interface{}) ([]*models.Quiz, error) {
	query := `SELECT id, title, description, category, difficulty, time_limit_minutes, max_attempts, created_by, is_published, created_at
		FROM quizzes ` + where + ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []*models.Quiz
	for rows.Next() {
		q := &models.Quiz{}
		err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Category, &q.Difficulty,
			&q.TimeLimitMinutes, &q.MaxAttempts, &q.CreatedBy, &q.IsPublished, &q.CreatedAt)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *QuizRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	_, err := r.pool.Exec(ctx, "UPDATE quizzes SET is_published = $1 WHERE id = $2", published, id)
	return err
}

// Count returns the total number of quizzes for the KPI block.
func (r *QuizRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM quizzes").Scan(&n)
	return n, err
}

// Questions

// CreateQuestions inserts a batch inside one transaction, continuing the
// quiz's order_index sequence. A single bad row aborts the whole batch.
func (r *QuizRepo) CreateQuestions(ctx context.Context, quizID uuid.UUID, questions []models.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(order_index) + 1, 0) FROM questions WHERE quiz_id = $1", quizID,
	).Scan(&next)
	if err != nil {
		return err
	}

	query := `INSERT INTO questions (id, quiz_id, question_text, options, correct_answer, points, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i := range questions {
		questions[i].ID = uuid.New()
		questions[i].QuizID = quizID
		questions[i].OrderIndex = next + i

		_, err := tx.Exec(ctx, query,
			questions[i].ID, quizID, questions[i].QuestionText, questions[i].Options,
			questions[i].CorrectAnswer, questions[i].Points, questions[i].OrderIndex,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListQuestions returns a quiz's questions in traversal order.
func (r *QuizRepo) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error) {
	query := `SELECT id, quiz_id, question_text, options, correct_answer, points, order_index
		FROM questions WHERE quiz_id = $1 ORDER BY order_index`

	rows, err := r.pool.Query(ctx, query, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		err := rows.Scan(&q.ID, &q.QuizID, &q.QuestionText, &q.Options, &q.CorrectAnswer, &q.Points, &q.OrderIndex)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ErrNotFound re-exported for handlers checking repo misses.
var ErrNotFound = pgx.ErrNoRows
