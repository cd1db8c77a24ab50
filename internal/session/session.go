// Package session holds the server-side state of an in-flight quiz take:
// a linear walk over an ordered question list with a countdown timer and a
// single terminal submission.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/scoring"
)

type State string

const (
	StateInProgress   State = "in_progress"
	StateSubmitting   State = "submitting"
	StateCompleted    State = "completed"
	StateSubmitFailed State = "submit_failed"
)

// Retention windows for settled sessions the handler never removed:
// timer-expired sessions nobody polls again, and failed submits the user
// walked away from. Completed sessions linger briefly so a late poll can
// still read the final snapshot; failed ones linger long enough for a
// manual resubmit.
const (
	completedRetention    = time.Minute
	submitFailedRetention = 30 * time.Minute
)

// Outcome is what a submission hands to the persistence layer.
type Outcome struct {
	SessionID        uuid.UUID
	UserID           uuid.UUID
	QuizID           uuid.UUID
	Answers          map[uuid.UUID]int
	Result           scoring.Result
	TotalQuestions   int
	TimeTakenSeconds int
	AutoSubmitted    bool
}

// Session is one user's walk through one quiz. All methods are safe for
// concurrent use; the handler goroutines and the manager's ticker both
// touch it.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID
	QuizID uuid.UUID

	mu        sync.Mutex
	questions []models.Question
	current   int
	answers   map[int]int // question index → selected option index
	remaining int         // seconds until auto-submit
	limit     int         // seeded countdown, seconds
	state     State
	outcome   *Outcome
	settledAt time.Time // when the session last entered a terminal state
}

func New(userID uuid.UUID, quiz *models.Quiz, questions []models.Question) *Session {
	limit := quiz.TimeLimitMinutes * 60
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		QuizID:    quiz.ID,
		questions: questions,
		answers:   make(map[int]int),
		remaining: limit,
		limit:     limit,
		state:     StateInProgress,
	}
}

// SelectOption records (or overwrites) the answer for the current question.
// It never advances the index.
func (s *Session) SelectOption(optionIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return false
	}
	s.answers[s.current] = optionIndex
	return true
}

// Next moves forward one question, clamped to the last index. An answer is
// not required to advance.
func (s *Session) Next() {
	s.move(1)
}

// Previous moves back one question, clamped to index 0.
func (s *Session) Previous() {
	s.move(-1)
}

func (s *Session) move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return
	}
	s.current += delta
	if s.current < 0 {
		s.current = 0
	}
	if max := len(s.questions) - 1; s.current > max {
		s.current = max
	}
	if s.current < 0 {
		s.current = 0
	}
}

// Tick counts one second down. When the timer reaches zero it performs the
// forced submit exactly once and returns its outcome; every later call is
// a no-op because the state has already left InProgress.
func (s *Session) Tick() (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return nil, false
	}

	s.remaining--
	if s.remaining > 0 {
		return nil, false
	}
	s.remaining = 0
	return s.beginSubmit(true), true
}

// Finish is the explicit submit. Allowed from any question index; answered
// count is irrelevant.
func (s *Session) Finish() (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return nil, false
	}
	return s.beginSubmit(false), true
}

// beginSubmit scores the answer map and moves to Submitting. Caller holds
// the lock.
func (s *Session) beginSubmit(auto bool) *Outcome {
	s.state = StateSubmitting

	answers := make(map[uuid.UUID]int, len(s.answers))
	for qi, oi := range s.answers {
		if qi >= 0 && qi < len(s.questions) {
			answers[s.questions[qi].ID] = oi
		}
	}

	s.outcome = &Outcome{
		SessionID:        s.ID,
		UserID:           s.UserID,
		QuizID:           s.QuizID,
		Answers:          answers,
		Result:           scoring.Score(s.questions, answers),
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: s.limit - s.remaining,
		AutoSubmitted:    auto,
	}
	return s.outcome
}

// CompleteSubmit marks the attempt as persisted. Terminal.
func (s *Session) CompleteSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.state = StateCompleted
		s.settledAt = time.Now()
	}
}

// FailSubmit records a persistence failure. The session never returns to
// InProgress; the user resubmits manually via Resubmit.
func (s *Session) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.state = StateSubmitFailed
		s.settledAt = time.Now()
	}
}

// Resubmit re-enters Submitting with the already-scored outcome after a
// failed persist. There is no automatic retry anywhere; this is the manual
// path.
func (s *Session) Resubmit() (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitFailed || s.outcome == nil {
		return nil, false
	}
	s.state = StateSubmitting
	s.settledAt = time.Time{}
	return s.outcome, true
}

// evictable reports whether the session has sat in a terminal state past
// its retention window. Only the manager's sweep calls this.
func (s *Session) evictable(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCompleted:
		return now.Sub(s.settledAt) >= completedRetention
	case StateSubmitFailed:
		return now.Sub(s.settledAt) >= submitFailedRetention
	default:
		return false
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot is the handler-facing view of the session.
type Snapshot struct {
	ID              uuid.UUID         `json:"id"`
	QuizID          uuid.UUID         `json:"quiz_id"`
	State           State             `json:"state"`
	CurrentIndex    int               `json:"current_index"`
	TotalQuestions  int               `json:"total_questions"`
	Answers         map[int]int       `json:"answers"`
	RemainingSecond int               `json:"remaining_seconds"`
	Question        *models.Question  `json:"question,omitempty"`
}

// Snapshot returns the current view. The current question is stripped of
// its correct answer before it leaves the server.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:              s.ID,
		QuizID:          s.QuizID,
		State:           s.state,
		CurrentIndex:    s.current,
		TotalQuestions:  len(s.questions),
		Answers:         make(map[int]int, len(s.answers)),
		RemainingSecond: s.remaining,
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}

	if s.current >= 0 && s.current < len(s.questions) {
		q := s.questions[s.current]
		q.CorrectAnswer = -1
		snap.Question = &q
	}
	return snap
}

// Persister stores one completed attempt.
type Persister interface {
	SaveAttempt(outcome *Outcome) (*models.Attempt, error)
}

// Manager owns the live sessions and drives their countdowns with a
// one-second ticker. Expired sessions are force-submitted through the
// persister exactly once.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	persist  Persister
	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(persist Persister) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		persist:  persist,
		stop:     make(chan struct{}),
	}
}

func (m *Manager) Start() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.tickAll()
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a finished session from the live set.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// ActiveForQuiz reports whether the user already has an in-progress
// session on the quiz.
func (m *Manager) ActiveForQuiz(userID, quizID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.QuizID == quizID && s.State() == StateInProgress {
			return true
		}
	}
	return false
}

func (m *Manager) tickAll() {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	for _, s := range live {
		if outcome, expired := s.Tick(); expired {
			m.Submit(s, outcome)
		}
	}

	m.sweep(time.Now())
}

// sweep evicts settled sessions no handler removed. Without it every
// timer-expired session would stay in the map for the life of the process.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.evictable(now) {
			delete(m.sessions, id)
		}
	}
}

// Submit persists an outcome and settles the session's terminal state.
func (m *Manager) Submit(s *Session, outcome *Outcome) (*models.Attempt, error) {
	attempt, err := m.persist.SaveAttempt(outcome)
	if err != nil {
		s.FailSubmit()
		return nil, err
	}
	s.CompleteSubmit()
	return attempt, nil
}
