package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge-backend/internal/models"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

// Create inserts one completed attempt. Attempts are never updated after
// this point.
func (r *AttemptRepo) Create(ctx context.Context, a *models.Attempt) error {
	a.ID = uuid.New()
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}

	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}

	query := `INSERT INTO quiz_attempts (id, user_id, quiz_id, score, total_questions, time_taken_seconds, completed_at, answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.QuizID, a.Score, a.TotalQuestions,
		a.TimeTakenSeconds, a.CompletedAt, answersJSON,
	)
	return err
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Attempt, error) {
	a := &models.Attempt{}
	var answersJSON []byte
	query := `SELECT id, user_id, quiz_id, score, total_questions, time_taken_seconds, completed_at, answers
		FROM quiz_attempts WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions,
		&a.TimeTakenSeconds, &a.CompletedAt, &answersJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attempt, error) {
	query := `SELECT id, user_id, quiz_id, score, total_questions, time_taken_seconds, completed_at, answers
		FROM quiz_attempts WHERE user_id = $1 ORDER BY completed_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		a := &models.Attempt{}
		var answersJSON []byte
		err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions,
			&a.TimeTakenSeconds, &a.CompletedAt, &answersJSON)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountByUserAndQuiz backs the max_attempts check at session start.
func (r *AttemptRepo) CountByUserAndQuiz(ctx context.Context, userID, quizID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2",
		userID, quizID,
	).Scan(&n)
	return n, err
}

// ListAllWithQuiz returns every attempt left-joined with its quiz's title
// and category, the snapshot the admin aggregation reduces. Attempts whose
// quiz was deleted come back with empty title/category.
func (r *AttemptRepo) ListAllWithQuiz(ctx context.Context) ([]models.AttemptRecord, error) {
	query := `SELECT a.id, a.user_id, a.quiz_id, a.score, a.total_questions, a.time_taken_seconds, a.completed_at,
			COALESCE(q.title, ''), COALESCE(q.category, '')
		FROM quiz_attempts a
		LEFT JOIN quizzes q ON q.id = a.quiz_id
		ORDER BY a.completed_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AttemptRecord
	for rows.Next() {
		var rec models.AttemptRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizID, &rec.Score, &rec.TotalQuestions,
			&rec.TimeTakenSeconds, &rec.CompletedAt, &rec.QuizTitle, &rec.QuizCategory)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRecentWithQuiz returns the newest attempts with quiz metadata, the
// context window fed to the intelligence report.
func (r *AttemptRepo) ListRecentWithQuiz(ctx context.Context, limit int) ([]models.AttemptRecord, error) {
	query := `SELECT a.id, a.user_id, a.quiz_id, a.score, a.total_questions, a.time_taken_seconds, a.completed_at,
			COALESCE(q.title, ''), COALESCE(q.category, '')
		FROM quiz_attempts a
		LEFT JOIN quizzes q ON q.id = a.quiz_id
		ORDER BY a.completed_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AttemptRecord
	for rows.Next() {
		var rec models.AttemptRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizID, &rec.Score, &rec.TotalQuestions,
			&rec.TimeTakenSeconds, &rec.CompletedAt, &rec.QuizTitle, &rec.QuizCategory)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
