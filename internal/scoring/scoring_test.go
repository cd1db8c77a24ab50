package scoring

import (
	"testing"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

func makeQuestions(n, points int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            uuid.New(),
			QuestionText:  "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Points:        points,
			OrderIndex:    i,
		}
	}
	return qs
}

func TestScore_AllCorrect(t *testing.T) {
	qs := makeQuestions(8, 10)
	answers := make(map[uuid.UUID]int)
	for _, q := range qs {
		answers[q.ID] = q.CorrectAnswer
	}

	res := Score(qs, answers)

	if res.EarnedPoints != 80 {
		t.Errorf("Expected 80 points, got %d", res.EarnedPoints)
	}
	if res.CorrectCount != 8 {
		t.Errorf("Expected 8 correct, got %d", res.CorrectCount)
	}
	for _, pq := range res.PerQuestion {
		if !pq.Correct {
			t.Errorf("Question %s should be correct", pq.QuestionID)
		}
	}
}

func TestScore_NoneAnswered(t *testing.T) {
	qs := makeQuestions(5, 10)

	res := Score(qs, map[uuid.UUID]int{})

	if res.EarnedPoints != 0 {
		t.Errorf("Expected 0 points, got %d", res.EarnedPoints)
	}
	if res.CorrectCount != 0 {
		t.Errorf("Expected 0 correct, got %d", res.CorrectCount)
	}
	if len(res.PerQuestion) != 5 {
		t.Errorf("Expected 5 per-question results, got %d", len(res.PerQuestion))
	}
}

func TestScore_SkippedIsNeverIndexZero(t *testing.T) {
	q := models.Question{
		ID:            uuid.New(),
		Options:       []string{"a", "b"},
		CorrectAnswer: 0,
		Points:        10,
	}

	// No entry for the question: must not be treated as answer 0.
	res := Score([]models.Question{q}, map[uuid.UUID]int{})
	if res.CorrectCount != 0 {
		t.Errorf("Skipped question graded as correct")
	}
}

func TestScore_ForeignAndOutOfRangeAnswers(t *testing.T) {
	qs := makeQuestions(3, 5)
	answers := map[uuid.UUID]int{
		uuid.New():  1,  // not in the quiz
		qs[0].ID:    99, // out of option range: incorrect, not an error
		qs[1].ID:    qs[1].CorrectAnswer,
	}

	res := Score(qs, answers)

	if res.CorrectCount != 1 {
		t.Errorf("Expected 1 correct, got %d", res.CorrectCount)
	}
	if res.EarnedPoints != 5 {
		t.Errorf("Expected 5 points, got %d", res.EarnedPoints)
	}
}

func TestScore_InvariantToMapConstructionOrder(t *testing.T) {
	qs := makeQuestions(6, 10)

	forward := make(map[uuid.UUID]int)
	for _, q := range qs {
		forward[q.ID] = q.CorrectAnswer
	}
	backward := make(map[uuid.UUID]int)
	for i := len(qs) - 1; i >= 0; i-- {
		backward[qs[i].ID] = qs[i].CorrectAnswer
	}

	a := Score(qs, forward)
	b := Score(qs, backward)

	if a.EarnedPoints != b.EarnedPoints || a.CorrectCount != b.CorrectCount {
		t.Errorf("Scoring depends on answer-map construction order: %+v vs %+v", a, b)
	}
}

func TestTotalPoints(t *testing.T) {
	qs := makeQuestions(4, 10)
	qs[3].Points = 5

	if got := TotalPoints(qs); got != 35 {
		t.Errorf("Expected 35, got %d", got)
	}
	if got := TotalPoints(nil); got != 0 {
		t.Errorf("Expected 0 for empty set, got %d", got)
	}
}
