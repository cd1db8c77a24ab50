package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/repository"
	"quizforge-backend/internal/session"
)

type SessionHandler struct {
	manager     *session.Manager
	quizRepo    *repository.QuizRepo
	attemptRepo *repository.AttemptRepo
}

func NewSessionHandler(manager *session.Manager, quizRepo *repository.QuizRepo, attemptRepo *repository.AttemptRepo) *SessionHandler {
	return &SessionHandler{
		manager:     manager,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
	}
}

// Start opens a session on a published quiz. One live session per user per
// quiz; max_attempts counts completed attempts, not live sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID uuid.UUID `json:"quiz_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "quiz_id is required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	quiz, err := h.quizRepo.GetByID(r.Context(), req.QuizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch quiz", r))
		}
		return
	}
	if !quiz.IsPublished {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz not found", r))
		return
	}

	if h.manager.ActiveForQuiz(userID, quiz.ID) {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "You already have an active session on this quiz", r))
		return
	}

	used, err := h.attemptRepo.CountByUserAndQuiz(r.Context(), userID, quiz.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check attempts", r))
		return
	}
	if used >= quiz.MaxAttempts {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Maximum attempts reached for this quiz", r))
		return
	}

	questions, err := h.quizRepo.ListQuestions(r.Context(), quiz.ID)
	if err != nil || len(questions) == 0 {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load quiz questions", r))
		return
	}

	s := session.New(userID, quiz, questions)
	h.manager.Add(s)

	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Answer overwrites the current question's selected option. It never
// advances the cursor.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req struct {
		OptionIndex int `json:"option_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.OptionIndex < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "option_index must be non-negative", r))
		return
	}

	if !s.SelectOption(req.OptionIndex) {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is no longer in progress", r))
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	s.Next()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	s.Previous()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Finish submits the session and persists the attempt synchronously, so the
// response carries the final score or the submit_failed state.
func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	outcome, started := s.Finish()
	if !started {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is no longer in progress", r))
		return
	}

	h.settle(w, r, s, outcome)
}

// Resubmit retries persistence after a failed submit. This is the only
// retry path; nothing retries automatically.
func (h *SessionHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	outcome, started := s.Resubmit()
	if !started {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is not awaiting resubmission", r))
		return
	}

	h.settle(w, r, s, outcome)
}

func (h *SessionHandler) settle(w http.ResponseWriter, r *http.Request, s *session.Session, outcome *session.Outcome) {
	attempt, err := h.manager.Submit(s, outcome)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to save attempt; resubmit to retry", r))
		return
	}

	h.manager.Remove(s.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attempt":        attempt,
		"correct_count":  outcome.Result.CorrectCount,
		"auto_submitted": outcome.AutoSubmitted,
	})
}

func (h *SessionHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	s, ok := h.manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	if s.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return s, true
}
