package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
)

const maxUploadBytes = 25 * 1024 * 1024

type DocumentHandler struct {
	quizRepo    *repository.QuizRepo
	docRepo     *repository.DocumentRepo
	jobRepo     *repository.JobRepo
	redis       *redis.Client
	storagePath string
}

func NewDocumentHandler(quizRepo *repository.QuizRepo, docRepo *repository.DocumentRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, storagePath string) *DocumentHandler {
	return &DocumentHandler{
		quizRepo:    quizRepo,
		docRepo:     docRepo,
		jobRepo:     jobRepo,
		redis:       redisClient,
		storagePath: storagePath,
	}
}

// Upload accepts a PDF of reference material and queues its ingestion:
// extraction, chunking and embedding all happen in the worker.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid quiz ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	quiz, err := h.quizRepo.GetByID(r.Context(), quizID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz not found", r))
		return
	}
	if quiz.CreatedBy != userID && !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 25MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	// Magic byte check
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	mimeType := http.DetectContentType(buf[:n])
	if mimeType != "application/pdf" && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only PDF files are supported", r))
		return
	}
	file.Seek(0, io.SeekStart)

	fileID := uuid.New()
	dir := filepath.Join(h.storagePath, "quizzes", quizID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	path := filepath.Join(dir, fileID.String()+".pdf")

	dst, err := os.Create(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	dst.Close()

	config, _ := json.Marshal(map[string]string{
		"file_path": path,
		"filename":  header.Filename,
	})
	job := &models.Job{
		UserID:      userID,
		Type:        "document-ingest",
		ReferenceID: quizID,
		ConfigJSON:  config,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:document-ingest", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"quiz_id":  quizID,
		"filename": header.Filename,
	})
}

// Count reports how many chunks a quiz has ingested so mentors can see
// whether explanations will find reference material.
func (h *DocumentHandler) Count(w http.ResponseWriter, r *http.Request) {
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid quiz ID", r))
		return
	}

	n, err := h.docRepo.CountByQuiz(r.Context(), quizID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to count documents", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"chunks": n})
}

// GetJob exposes ingestion job status to its owner.
func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}
	if job.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}
