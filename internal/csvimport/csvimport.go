// Package csvimport parses the mentor-facing bulk question format:
// one question per line, six comma-separated columns.
//
//	Question, Option1, Option2, Option3, Option4, CorrectIndex(1-4)
//
// The split is a literal comma split; options containing commas are not
// supported. Known limitation of the format, not something to fix here.
package csvimport

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPoints is assigned to every imported question.
const DefaultPoints = 10

type QuestionData struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // 0-based
	Points        int      `json:"points"`
}

// Parse walks the text line by line, collecting valid questions and
// per-line error strings. A bad line never aborts the lines after it.
// An optional header is skipped when its first cell mentions "question".
func Parse(text string) ([]QuestionData, []string) {
	lines := strings.Split(text, "\n")

	var questions []QuestionData
	var errs []string

	start := 0
	if len(lines) > 0 && strings.Contains(strings.ToLower(lines[0]), "question") {
		start = 1
	}

	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		cols := strings.Split(line, ",")
		for j := range cols {
			cols[j] = strings.TrimSpace(cols[j])
		}

		if len(cols) < 6 {
			errs = append(errs, fmt.Sprintf("Line %d: Not enough columns. Expected 6.", i+1))
			continue
		}

		idx, err := strconv.Atoi(cols[5])
		if err != nil || idx < 1 || idx > 4 {
			errs = append(errs, fmt.Sprintf("Line %d: Invalid correct answer index. Must be 1-4.", i+1))
			continue
		}

		questions = append(questions, QuestionData{
			QuestionText:  cols[0],
			Options:       cols[1:5],
			CorrectAnswer: idx - 1,
			Points:        DefaultPoints,
		})
	}

	return questions, errs
}
