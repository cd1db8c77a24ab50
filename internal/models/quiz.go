package models

import (
	"time"

	"github.com/google/uuid"
)

type Quiz struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty"` // "easy" | "medium" | "hard"
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	MaxAttempts      int       `json:"max_attempts"`
	CreatedBy        uuid.UUID `json:"created_by"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
}

type Question struct {
	ID            uuid.UUID `json:"id"`
	QuizID        uuid.UUID `json:"quiz_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correct_answer"` // index into Options
	Points        int       `json:"points"`
	OrderIndex    int       `json:"order_index"`
}

// Attempt is one completed submission of a quiz. Rows are insert-only;
// Answers maps question id to the selected option index, and a missing
// key means the question was skipped.
type Attempt struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	QuizID           uuid.UUID         `json:"quiz_id"`
	Score            int               `json:"score"`
	TotalQuestions   int               `json:"total_questions"`
	TimeTakenSeconds int               `json:"time_taken_seconds"`
	CompletedAt      time.Time         `json:"completed_at"`
	Answers          map[uuid.UUID]int `json:"answers"`
}

// AttemptRecord is an attempt enriched with its quiz's title and category,
// the shape the analytics pipeline consumes. Title/Category stay empty when
// the referenced quiz no longer exists.
type AttemptRecord struct {
	Attempt
	QuizTitle    string `json:"quiz_title"`
	QuizCategory string `json:"quiz_category"`
}

type CreateQuizRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Difficulty       string `json:"difficulty"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	MaxAttempts      int    `json:"max_attempts"`
}

type CreateQuestionRequest struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Points        int      `json:"points"`
}

// QuizDocument is one embedded chunk of ingested reference material,
// searched by vector similarity when explaining answers.
type QuizDocument struct {
	ID      uuid.UUID `json:"id"`
	QuizID  uuid.UUID `json:"quiz_id"`
	Content string    `json:"content"`
}
