package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

func TestStripJSONFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fences", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```  ", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripJSONFences(tt.in); got != tt.want {
				t.Errorf("stripJSONFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeFeedbackEnforcesTwoByTwoContract(t *testing.T) {
	tests := []struct {
		name string
		in   models.AttemptFeedback
		ok   bool
	}{
		{"exact fit", models.AttemptFeedback{
			Strengths:      []string{"s1", "s2"},
			Weaknesses:     []string{"w1", "w2"},
			Recommendation: "study more",
		}, true},
		{"overlong lists truncated", models.AttemptFeedback{
			Strengths:      []string{"s1", "s2", "s3"},
			Weaknesses:     []string{"w1", "w2", "w3"},
			Recommendation: "study more",
		}, true},
		{"short strengths rejected", models.AttemptFeedback{
			Strengths:      []string{"s1"},
			Weaknesses:     []string{"w1", "w2"},
			Recommendation: "study more",
		}, false},
		{"nil weaknesses rejected", models.AttemptFeedback{
			Strengths:      []string{"s1", "s2"},
			Weaknesses:     nil,
			Recommendation: "study more",
		}, false},
		{"blank recommendation rejected", models.AttemptFeedback{
			Strengths:      []string{"s1", "s2"},
			Weaknesses:     []string{"w1", "w2"},
			Recommendation: "  ",
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in
			if got := normalizeFeedback(&f); got != tt.ok {
				t.Fatalf("normalizeFeedback = %v, want %v", got, tt.ok)
			}
			if !tt.ok {
				return
			}
			if !reflect.DeepEqual(f.Strengths, []string{"s1", "s2"}) {
				t.Errorf("strengths = %v, want exactly two entries", f.Strengths)
			}
			if !reflect.DeepEqual(f.Weaknesses, []string{"w1", "w2"}) {
				t.Errorf("weaknesses = %v, want exactly two entries", f.Weaknesses)
			}
		})
	}
}

func TestIncorrectQuestionsCountsSkippedAsWrong(t *testing.T) {
	questions := make([]models.Question, 3)
	for i := range questions {
		questions[i] = models.Question{
			ID:            uuid.New(),
			QuestionText:  "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
		}
	}

	answers := map[uuid.UUID]int{
		questions[0].ID: 1, // correct
		questions[1].ID: 3, // wrong
		// questions[2] skipped
	}

	incorrect := incorrectQuestions(questions, answers)
	if len(incorrect) != 2 {
		t.Fatalf("Expected 2 incorrect questions, got %d", len(incorrect))
	}
	if incorrect[0].ID != questions[1].ID || incorrect[1].ID != questions[2].ID {
		t.Errorf("Wrong questions flagged incorrect: %v", incorrect)
	}

	if got := incorrectQuestions(questions, map[uuid.UUID]int{
		questions[0].ID: 1, questions[1].ID: 1, questions[2].ID: 1,
	}); len(got) != 0 {
		t.Errorf("Perfect attempt produced %d incorrect questions", len(got))
	}
}

func TestBuildAnalysisPromptMarksSkippedAnswers(t *testing.T) {
	q := models.Question{
		ID:            uuid.New(),
		QuestionText:  "What does pgvector store?",
		Options:       []string{"graphs", "embeddings", "logs", "queues"},
		CorrectAnswer: 1,
	}

	prompt := buildAnalysisPrompt([]models.Question{q}, map[uuid.UUID]int{})
	if !strings.Contains(prompt, `User Answer: "Skipped"`) {
		t.Errorf("Skipped question not marked as such:\n%s", prompt)
	}
	if !strings.Contains(prompt, `Correct Answer: "embeddings"`) {
		t.Errorf("Correct option text missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, q.ID.String()) {
		t.Errorf("Question ID missing from prompt, the model cannot key its output")
	}
}
