package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

func testQuiz(timeLimitMinutes int) (*models.Quiz, []models.Question) {
	quiz := &models.Quiz{
		ID:               uuid.New(),
		Title:            "Go Basics",
		TimeLimitMinutes: timeLimitMinutes,
		MaxAttempts:      3,
	}
	questions := make([]models.Question, 4)
	for i := range questions {
		questions[i] = models.Question{
			ID:            uuid.New(),
			QuizID:        quiz.ID,
			QuestionText:  "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
			Points:        10,
			OrderIndex:    i,
		}
	}
	return quiz, questions
}

func TestSelectOption_OverwritesWithoutAdvancing(t *testing.T) {
	quiz, questions := testQuiz(5)
	s := New(uuid.New(), quiz, questions)

	s.SelectOption(0)
	s.SelectOption(2) // overwrite

	snap := s.Snapshot()
	if snap.CurrentIndex != 0 {
		t.Errorf("Selecting an option must not advance, index is %d", snap.CurrentIndex)
	}
	if snap.Answers[0] != 2 {
		t.Errorf("Expected answer 2 for question 0, got %d", snap.Answers[0])
	}
}

func TestNavigation_ClampsAtBothEnds(t *testing.T) {
	quiz, questions := testQuiz(5)
	s := New(uuid.New(), quiz, questions)

	s.Previous()
	if got := s.Snapshot().CurrentIndex; got != 0 {
		t.Errorf("Previous at start should clamp to 0, got %d", got)
	}

	for i := 0; i < 10; i++ {
		s.Next()
	}
	if got := s.Snapshot().CurrentIndex; got != 3 {
		t.Errorf("Next past the end should clamp to 3, got %d", got)
	}

	// Advancing never requires an answer.
	if len(s.Snapshot().Answers) != 0 {
		t.Errorf("No answers should have been recorded")
	}
}

func TestFinish_ScoresAndKeysAnswersByQuestionID(t *testing.T) {
	quiz, questions := testQuiz(5)
	s := New(uuid.New(), quiz, questions)

	s.SelectOption(1) // correct
	s.Next()
	s.SelectOption(3) // wrong
	s.Next()
	// question 2 skipped
	s.Next()
	s.SelectOption(1) // correct

	outcome, ok := s.Finish()
	if !ok {
		t.Fatal("Finish failed on in-progress session")
	}
	if s.State() != StateSubmitting {
		t.Errorf("Expected submitting state, got %s", s.State())
	}
	if outcome.Result.EarnedPoints != 20 || outcome.Result.CorrectCount != 2 {
		t.Errorf("Unexpected score: %+v", outcome.Result)
	}
	if len(outcome.Answers) != 3 {
		t.Errorf("Expected 3 answered questions, got %d", len(outcome.Answers))
	}
	if _, present := outcome.Answers[questions[2].ID]; present {
		t.Errorf("Skipped question must be absent from the answer map")
	}
}

func TestTick_AutoSubmitsExactlyOnce(t *testing.T) {
	quiz, questions := testQuiz(0)
	quiz.TimeLimitMinutes = 0
	s := New(uuid.New(), quiz, questions)
	s.remaining = 2

	if _, expired := s.Tick(); expired {
		t.Fatal("Timer expired a second early")
	}

	outcome, expired := s.Tick()
	if !expired || outcome == nil {
		t.Fatal("Timer should force a submit at zero")
	}
	if !outcome.AutoSubmitted {
		t.Errorf("Forced submit must be flagged auto")
	}

	// Re-entrant ticks must never submit again.
	for i := 0; i < 3; i++ {
		if _, again := s.Tick(); again {
			t.Fatal("Tick submitted twice")
		}
	}
}

func TestStateMachine_TerminalTransitions(t *testing.T) {
	quiz, questions := testQuiz(5)
	s := New(uuid.New(), quiz, questions)

	outcome, _ := s.Finish()

	// While submitting, interaction is dead.
	if s.SelectOption(1) {
		t.Errorf("SelectOption allowed outside InProgress")
	}
	if _, again := s.Finish(); again {
		t.Errorf("Second Finish allowed")
	}

	s.FailSubmit()
	if s.State() != StateSubmitFailed {
		t.Fatalf("Expected submit_failed, got %s", s.State())
	}

	// Failed submit never returns to InProgress, only manual resubmit.
	retry, ok := s.Resubmit()
	if !ok || retry != outcome {
		t.Fatal("Resubmit should replay the scored outcome")
	}

	s.CompleteSubmit()
	if s.State() != StateCompleted {
		t.Fatalf("Expected completed, got %s", s.State())
	}
	if _, ok := s.Resubmit(); ok {
		t.Errorf("Completed session allowed a resubmit")
	}
}

func TestSnapshot_HidesCorrectAnswer(t *testing.T) {
	quiz, questions := testQuiz(5)
	s := New(uuid.New(), quiz, questions)

	snap := s.Snapshot()
	if snap.Question == nil {
		t.Fatal("Snapshot missing current question")
	}
	if snap.Question.CorrectAnswer != -1 {
		t.Errorf("Correct answer leaked to the client: %d", snap.Question.CorrectAnswer)
	}
	if snap.RemainingSecond != 300 {
		t.Errorf("Expected 300s countdown, got %d", snap.RemainingSecond)
	}
}

type fakePersister struct {
	fail  bool
	saved []*Outcome
}

func (f *fakePersister) SaveAttempt(o *Outcome) (*models.Attempt, error) {
	if f.fail {
		return nil, errors.New("store unavailable")
	}
	f.saved = append(f.saved, o)
	return &models.Attempt{ID: uuid.New(), UserID: o.UserID, QuizID: o.QuizID, Score: o.Result.EarnedPoints}, nil
}

func TestManager_SubmitSettlesState(t *testing.T) {
	quiz, questions := testQuiz(5)
	persist := &fakePersister{}
	m := NewManager(persist)

	s := New(uuid.New(), quiz, questions)
	m.Add(s)

	outcome, _ := s.Finish()
	if _, err := m.Submit(s, outcome); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if s.State() != StateCompleted {
		t.Errorf("Expected completed, got %s", s.State())
	}
	if len(persist.saved) != 1 {
		t.Errorf("Expected one persisted attempt, got %d", len(persist.saved))
	}
}

func TestManager_FailedPersistLeavesSubmitFailed(t *testing.T) {
	quiz, questions := testQuiz(5)
	persist := &fakePersister{fail: true}
	m := NewManager(persist)

	s := New(uuid.New(), quiz, questions)
	m.Add(s)

	outcome, _ := s.Finish()
	if _, err := m.Submit(s, outcome); err == nil {
		t.Fatal("Expected persistence error")
	}
	if s.State() != StateSubmitFailed {
		t.Errorf("Expected submit_failed, got %s", s.State())
	}

	// Manual resubmit after the store recovers.
	persist.fail = false
	retry, ok := s.Resubmit()
	if !ok {
		t.Fatal("Resubmit refused")
	}
	if _, err := m.Submit(s, retry); err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if s.State() != StateCompleted {
		t.Errorf("Expected completed after resubmit, got %s", s.State())
	}
}

func TestManager_EvictsAutoSubmittedSessionAfterGrace(t *testing.T) {
	quiz, questions := testQuiz(5)
	m := NewManager(&fakePersister{})

	s := New(uuid.New(), quiz, questions)
	m.Add(s)
	s.remaining = 1

	m.tickAll() // timer hits zero, forced submit completes

	if s.State() != StateCompleted {
		t.Fatalf("Expected completed after expiry, got %s", s.State())
	}
	// Inside the grace window a late poll can still read the snapshot.
	if _, ok := m.Get(s.ID); !ok {
		t.Fatal("Completed session evicted before its grace window")
	}

	m.sweep(time.Now().Add(completedRetention))
	if _, ok := m.Get(s.ID); ok {
		t.Errorf("Completed session still held by manager after its grace window")
	}
}

func TestManager_SweepsAbandonedFailedSubmit(t *testing.T) {
	quiz, questions := testQuiz(5)
	m := NewManager(&fakePersister{fail: true})

	s := New(uuid.New(), quiz, questions)
	m.Add(s)
	s.remaining = 1

	m.tickAll() // forced submit, persistence fails

	if s.State() != StateSubmitFailed {
		t.Fatalf("Expected submit_failed, got %s", s.State())
	}
	// Failed submits outlive the completed-session grace so the user can
	// still resubmit.
	m.sweep(time.Now().Add(completedRetention))
	if _, ok := m.Get(s.ID); !ok {
		t.Fatal("Failed session evicted while still resubmittable")
	}

	m.sweep(time.Now().Add(submitFailedRetention))
	if _, ok := m.Get(s.ID); ok {
		t.Errorf("Abandoned failed session never swept")
	}
}

func TestManager_ActiveForQuiz(t *testing.T) {
	quiz, questions := testQuiz(5)
	m := NewManager(&fakePersister{})
	userID := uuid.New()

	s := New(userID, quiz, questions)
	m.Add(s)

	if !m.ActiveForQuiz(userID, quiz.ID) {
		t.Errorf("Expected an active session")
	}
	if m.ActiveForQuiz(uuid.New(), quiz.ID) {
		t.Errorf("Other users should have no active session")
	}

	outcome, _ := s.Finish()
	m.Submit(s, outcome)
	if m.ActiveForQuiz(userID, quiz.ID) {
		t.Errorf("Completed session still reported active")
	}
}
