package csvimport

import (
	"reflect"
	"testing"
)

func TestParse_ValidLine(t *testing.T) {
	questions, errs := Parse("What is 2+2?,3,4,5,6,2")

	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}

	q := questions[0]
	if q.QuestionText != "What is 2+2?" {
		t.Errorf("Expected question text 'What is 2+2?', got %q", q.QuestionText)
	}
	if !reflect.DeepEqual(q.Options, []string{"3", "4", "5", "6"}) {
		t.Errorf("Unexpected options: %v", q.Options)
	}
	if q.CorrectAnswer != 1 {
		t.Errorf("Expected correct_answer 1 (0-based), got %d", q.CorrectAnswer)
	}
	if q.Points != 10 {
		t.Errorf("Expected default 10 points, got %d", q.Points)
	}
}

func TestParse_IndexOutOfRange(t *testing.T) {
	questions, errs := Parse("Q1,A,B,C,D,5")

	if len(questions) != 0 {
		t.Errorf("Out-of-range index must contribute zero questions, got %d", len(questions))
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
}

func TestParse_BadLinesDoNotAbort(t *testing.T) {
	text := "Q1,A,B,C,D,1\n" +
		"too,few,columns\n" +
		"Q2,A,B,C,D,zero\n" +
		"Q3,A,B,C,D,4"

	questions, errs := Parse(text)

	if len(questions) != 2 {
		t.Errorf("Expected 2 valid questions, got %d", len(questions))
	}
	if len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %v", errs)
	}
	if len(questions) == 2 && questions[1].CorrectAnswer != 3 {
		t.Errorf("Later valid lines must still parse, got %+v", questions[1])
	}
}

func TestParse_HeaderSkipped(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"lowercase header", "question,opt1,opt2,opt3,opt4,answer\nQ1,A,B,C,D,1", 1},
		{"uppercase header", "Question,Option1,Option2,Option3,Option4,Correct\nQ1,A,B,C,D,1", 1},
		{"no header", "Q1,A,B,C,D,1\nQ2,A,B,C,D,2", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			questions, errs := Parse(tc.text)
			if len(errs) != 0 {
				t.Fatalf("Unexpected errors: %v", errs)
			}
			if len(questions) != tc.want {
				t.Errorf("Expected %d questions, got %d", tc.want, len(questions))
			}
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := "Q1,A,B,C,D,1\nQ2,E,F,G,H,3\n\nQ3,I,J,K,L,2"

	first, errs1 := Parse(text)
	second, errs2 := Parse(text)

	if len(errs1) != 0 || len(errs2) != 0 {
		t.Fatalf("Unexpected errors: %v %v", errs1, errs2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parsing the same input twice produced different results")
	}
}

func TestParse_EmptyAndBlankLines(t *testing.T) {
	questions, errs := Parse("\n\n   \n")
	if len(questions) != 0 || len(errs) != 0 {
		t.Errorf("Blank input should yield nothing, got %d questions, %v", len(questions), errs)
	}
}
