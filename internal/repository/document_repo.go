package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge-backend/internal/models"
)

// DocumentRepo stores embedded chunks of reference material in a pgvector
// column and serves the similarity lookups behind answer explanations.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func (r *DocumentRepo) Create(ctx context.Context, quizID uuid.UUID, content string, embedding []float32) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO quiz_documents (id, quiz_id, content, embedding) VALUES ($1, $2, $3, $4)",
		uuid.New(), quizID, content, vectorLiteral(embedding),
	)
	return err
}

// MatchDocuments returns up to count chunks for the quiz whose cosine
// similarity against the query embedding clears the threshold, most
// similar first.
func (r *DocumentRepo) MatchDocuments(ctx context.Context, quizID uuid.UUID, embedding []float32, threshold float64, count int) ([]models.QuizDocument, error) {
	query := `SELECT id, quiz_id, content
		FROM quiz_documents
		WHERE quiz_id = $1 AND 1 - (embedding <=> $2::vector) > $3
		ORDER BY embedding <=> $2::vector
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, quizID, vectorLiteral(embedding), threshold, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.QuizDocument
	for rows.Next() {
		var d models.QuizDocument
		if err := rows.Scan(&d.ID, &d.QuizID, &d.Content); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM quiz_documents WHERE quiz_id = $1", quizID,
	).Scan(&n)
	return n, err
}

func (r *DocumentRepo) DeleteByQuiz(ctx context.Context, quizID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM quiz_documents WHERE quiz_id = $1", quizID)
	return err
}

// vectorLiteral renders a float slice in pgvector's input syntax.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
