package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/models"
	"quizforge-backend/internal/services"
)

type AIHandler struct {
	gemini *services.GeminiService
}

func NewAIHandler(gemini *services.GeminiService) *AIHandler {
	return &AIHandler{gemini: gemini}
}

// Explain returns a tutoring explanation grounded in the quiz's ingested
// reference material.
func (h *AIHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.QuizID == uuid.Nil {
		fields["quiz_id"] = "quiz_id is required"
	}
	if req.Question == "" {
		fields["question"] = "question is required"
	}
	if len(req.Options) < 2 {
		fields["options"] = "at least 2 options are required"
	}
	if req.CorrectAnswer < 0 || req.CorrectAnswer >= len(req.Options) {
		fields["correct_answer"] = "correct_answer index out of range"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	explanation, err := h.gemini.ExplainAnswer(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

// Summary returns structured strengths/weaknesses feedback on an attempt.
func (h *AIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(req.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "questions must not be empty", r))
		return
	}

	feedback, err := h.gemini.AttemptSummary(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, feedback)
}

// Analysis diagnoses every wrong answer of a stored attempt in one batch
// model call.
func (h *AIHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttemptID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "attempt_id is required", r))
		return
	}

	analysis, err := h.gemini.MistakeAnalysis(
		r.Context(),
		req.AttemptID,
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
