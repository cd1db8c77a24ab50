package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"quizforge-backend/internal/csvimport"
	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
)

const maxCSVBytes = 1 << 20

type QuizHandler struct {
	quizRepo    *repository.QuizRepo
	attemptRepo *repository.AttemptRepo
}

func NewQuizHandler(quizRepo *repository.QuizRepo, attemptRepo *repository.AttemptRepo) *QuizHandler {
	return &QuizHandler{quizRepo: quizRepo, attemptRepo: attemptRepo}
}

func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "Title is required"
	}
	switch req.Difficulty {
	case "easy", "medium", "hard":
	default:
		fields["difficulty"] = "Difficulty must be easy, medium, or hard"
	}
	if req.TimeLimitMinutes <= 0 {
		fields["time_limit_minutes"] = "Time limit must be positive"
	}
	if req.MaxAttempts <= 0 {
		fields["max_attempts"] = "Max attempts must be positive"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	quiz := &models.Quiz{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MaxAttempts:      req.MaxAttempts,
		CreatedBy:        middleware.GetUserID(r.Context()),
	}

	if err := h.quizRepo.Create(r.Context(), quiz); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create quiz", r))
		return
	}

	writeJSON(w, http.StatusCreated, quiz)
}

// List returns published quizzes. Mentors and admins additionally see their
// own drafts via ?mine=true.
func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		quizzes []*models.Quiz
		err     error
	)

	if r.URL.Query().Get("mine") == "true" && middleware.GetRole(r.Context()) != models.RoleStudent {
		quizzes, err = h.quizRepo.ListByCreator(r.Context(), middleware.GetUserID(r.Context()))
	} else {
		quizzes, err = h.quizRepo.ListPublished(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch quizzes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, questions, ok := h.loadQuiz(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	isOwner := quiz.CreatedBy == userID || middleware.IsAdmin(r.Context())

	if !isOwner && !quiz.IsPublished {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz not found", r))
		return
	}

	// Takers never see the answer key.
	if !isOwner {
		for i := range questions {
			questions[i].CorrectAnswer = -1
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quiz":      quiz,
		"questions": questions,
	})
}

func (h *QuizHandler) Publish(w http.ResponseWriter, r *http.Request) {
	quiz, questions, ok := h.loadQuizOwned(w, r)
	if !ok {
		return
	}

	if len(questions) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Cannot publish a quiz with no questions", r))
		return
	}

	if err := h.quizRepo.SetPublished(r.Context(), quiz.ID, true); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to publish quiz", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz published"})
}

// AddQuestions appends a manually authored batch.
func (h *QuizHandler) AddQuestions(w http.ResponseWriter, r *http.Request) {
	quiz, _, ok := h.loadQuizOwned(w, r)
	if !ok {
		return
	}

	var reqs []models.CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil || len(reqs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Expected a non-empty array of questions", r))
		return
	}

	questions := make([]models.Question, len(reqs))
	for i, q := range reqs {
		if q.QuestionText == "" || len(q.Options) < 2 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Each question needs text and at least 2 options", r))
			return
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Correct answer index out of range", r))
			return
		}
		points := q.Points
		if points <= 0 {
			points = csvimport.DefaultPoints
		}
		questions[i] = models.Question{
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
		}
	}

	if err := h.quizRepo.CreateQuestions(r.Context(), quiz.ID, questions); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save questions", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"created": len(questions)})
}

// ImportCSV parses a question CSV and inserts the batch. Any malformed line
// rejects the whole upload so a partial import never silently succeeds.
func (h *QuizHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	quiz, _, ok := h.loadQuizOwned(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCSVBytes))
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Empty CSV body", r))
		return
	}

	parsed, parseErrors := csvimport.Parse(string(body))
	if len(parseErrors) > 0 || len(parsed) == 0 {
		if len(parseErrors) == 0 {
			parseErrors = []string{"No valid questions found in CSV"}
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": models.APIError{
				Code:      "CSV_IMPORT_ERROR",
				Message:   "CSV contains invalid rows",
				RequestID: r.Header.Get("X-Request-ID"),
			},
			"line_errors": parseErrors,
		})
		return
	}

	questions := make([]models.Question, len(parsed))
	for i, q := range parsed {
		questions[i] = models.Question{
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		}
	}

	if err := h.quizRepo.CreateQuestions(r.Context(), quiz.ID, questions); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save questions", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"imported": len(questions)})
}

// History returns the caller's attempt history.
func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.attemptRepo.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch attempts", r))
		return
	}
	if attempts == nil {
		attempts = []*models.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *QuizHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return
	}

	attempt, err := h.attemptRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attempt not found", r))
		return
	}

	if attempt.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, attempt)
}

// loadQuiz resolves the {id} URL param. Writes the error response itself so
// callers can just bail on !ok.
func (h *QuizHandler) loadQuiz(w http.ResponseWriter, r *http.Request) (*models.Quiz, []models.Question, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid quiz ID", r))
		return nil, nil, false
	}

	quiz, err := h.quizRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch quiz", r))
		}
		return nil, nil, false
	}

	questions, err := h.quizRepo.ListQuestions(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return nil, nil, false
	}

	return quiz, questions, true
}

func (h *QuizHandler) loadQuizOwned(w http.ResponseWriter, r *http.Request) (*models.Quiz, []models.Question, bool) {
	quiz, questions, ok := h.loadQuiz(w, r)
	if !ok {
		return nil, nil, false
	}

	if quiz.CreatedBy != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, nil, false
	}

	return quiz, questions, true
}
