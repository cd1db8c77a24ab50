// Package scoring grades a submitted answer map against a question set.
package scoring

import (
	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

type QuestionResult struct {
	QuestionID uuid.UUID `json:"question_id"`
	Correct    bool      `json:"correct"`
}

type Result struct {
	EarnedPoints int              `json:"earned_points"`
	CorrectCount int              `json:"correct_count"`
	PerQuestion  []QuestionResult `json:"per_question"`
}

// Score computes earned points and per-question correctness. A question is
// correct only when the answer map holds exactly its correct option index;
// a missing entry means skipped and an out-of-range index is simply wrong.
// Answer keys that don't belong to the quiz are ignored. No partial credit,
// no negative scoring, no failure modes.
func Score(questions []models.Question, answers map[uuid.UUID]int) Result {
	res := Result{PerQuestion: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		selected, answered := answers[q.ID]
		correct := answered && selected == q.CorrectAnswer
		if correct {
			res.EarnedPoints += q.Points
			res.CorrectCount++
		}
		res.PerQuestion = append(res.PerQuestion, QuestionResult{
			QuestionID: q.ID,
			Correct:    correct,
		})
	}

	return res
}

// TotalPoints sums the points of a question set, the maximum any attempt
// on that quiz can score.
func TotalPoints(questions []models.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}
