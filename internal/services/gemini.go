package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
)

const (
	generativeModelName = "gemini-3-flash-preview"
	embeddingModelName  = "text-embedding-004"

	// Cosine similarity floor for retrieved document chunks.
	matchThreshold = 0.5
	matchCount     = 3
)

type GeminiService struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	embedder    *genai.EmbeddingModel
	docRepo     *repository.DocumentRepo
	attemptRepo *repository.AttemptRepo
	quizRepo    *repository.QuizRepo
	redis       *redis.Client
	rateChan    chan struct{} // Token bucket
}

func NewGeminiService(
	apiKey string,
	concurrentReqs int,
	docRepo *repository.DocumentRepo,
	attemptRepo *repository.AttemptRepo,
	quizRepo *repository.QuizRepo,
	redisClient *redis.Client,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(generativeModelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:      client,
		model:       model,
		embedder:    client.EmbeddingModel(embeddingModelName),
		docRepo:     docRepo,
		attemptRepo: attemptRepo,
		quizRepo:    quizRepo,
		redis:       redisClient,
		rateChan:    rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// PublishAdminEvent fans an event out to every connected admin dashboard.
func (s *GeminiService) PublishAdminEvent(ctx context.Context, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, adminEventsChannel, string(data))
}

// Embed returns the 768-dimension embedding for a piece of text.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	resp, err := s.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("Gemini embedding error: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("Gemini returned empty embedding")
	}
	return resp.Embedding.Values, nil
}

// ExplainAnswer grounds an explanation of a quiz question in the quiz's
// uploaded reference material. Retrieval finds the closest document chunks
// by cosine similarity; when nothing clears the threshold the model is told
// so rather than left to guess.
func (s *GeminiService) ExplainAnswer(ctx context.Context, req models.ExplainRequest) (string, error) {
	embedding, err := s.Embed(ctx, req.Question)
	if err != nil {
		return "", &UpstreamError{Message: "Failed to embed question"}
	}

	chunks, err := s.docRepo.MatchDocuments(ctx, req.QuizID, embedding, matchThreshold, matchCount)
	if err != nil {
		return "", &UpstreamError{Message: "Failed to search reference material"}
	}

	reference := "No reference material found."
	if len(chunks) > 0 {
		var b strings.Builder
		for i, c := range chunks {
			if i > 0 {
				b.WriteString("\n---\n")
			}
			b.WriteString(c.Content)
		}
		reference = b.String()
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildExplainPrompt(req, reference)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UpstreamError{Message: "Gemini API error"}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		log.Println("WARNING: Gemini returned empty explanation. Using fallback.")
		text = "We could not generate an explanation for this question right now. Please try again later."
	}
	return text, nil
}

// AttemptSummary asks the model for structured feedback on a finished
// attempt: two strengths, two weaknesses, one recommendation.
func (s *GeminiService) AttemptSummary(ctx context.Context, req models.FeedbackRequest) (*models.AttemptFeedback, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildFeedbackPrompt(req)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &UpstreamError{Message: "Gemini API error"}
	}

	rawText := stripJSONFences(extractText(resp))

	var feedback models.AttemptFeedback
	if err := json.Unmarshal([]byte(rawText), &feedback); err != nil {
		// Try to extract JSON object
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(rawText[start:end+1]), &feedback); err != nil {
				return nil, &UpstreamError{Message: "Gemini returned malformed feedback"}
			}
		} else {
			return nil, &UpstreamError{Message: "Gemini returned malformed feedback"}
		}
	}

	if !normalizeFeedback(&feedback) {
		return nil, &UpstreamError{Message: "Gemini returned malformed feedback"}
	}
	return &feedback, nil
}

// MistakeAnalysis diagnoses every incorrectly answered or skipped question
// of a stored attempt in one model call. Only the attempt's owner (or an
// admin) may request it.
func (s *GeminiService) MistakeAnalysis(ctx context.Context, attemptID, userID uuid.UUID, isAdmin bool) (*models.MistakeAnalysis, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Attempt not found"}
		}
		return nil, &UpstreamError{Message: "Failed to load attempt"}
	}
	if attempt.UserID != userID && !isAdmin {
		return nil, &ForbiddenError{Message: "Access denied"}
	}

	questions, err := s.quizRepo.ListQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, &UpstreamError{Message: "Failed to load quiz questions"}
	}

	incorrect := incorrectQuestions(questions, attempt.Answers)
	if len(incorrect) == 0 {
		return &models.MistakeAnalysis{
			Message:  "Perfect score! No incorrect answers to analyze.",
			Analysis: []models.MistakeBreakdown{},
		}, nil
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildAnalysisPrompt(incorrect, attempt.Answers)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &UpstreamError{Message: "Gemini API error"}
	}

	rawText := stripJSONFences(extractText(resp))

	var analysis models.MistakeAnalysis
	if err := json.Unmarshal([]byte(rawText), &analysis); err != nil {
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return nil, &UpstreamError{Message: "Gemini returned malformed analysis"}
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &analysis); err != nil {
			return nil, &UpstreamError{Message: "Gemini returned malformed analysis"}
		}
	}
	if analysis.Analysis == nil {
		analysis.Analysis = []models.MistakeBreakdown{}
	}
	analysis.Message = ""
	return &analysis, nil
}

// NarrativeReport produces the markdown intelligence report for the admin
// dashboard from the most recent attempts across the platform. An optional
// focus steers the report toward whatever the admin asked about.
func (s *GeminiService) NarrativeReport(ctx context.Context, focus string) (string, error) {
	attempts, err := s.attemptRepo.ListRecentWithQuiz(ctx, 50)
	if err != nil {
		return "", &UpstreamError{Message: "Failed to load recent attempts"}
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildReportPrompt(attempts, focus)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UpstreamError{Message: "Gemini API error"}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", &UpstreamError{Message: "Gemini returned empty report"}
	}
	return text, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeFeedback enforces the two-strengths/two-weaknesses contract:
// overlong lists are truncated, short ones mean the model ignored the
// schema and the whole response is rejected.
func normalizeFeedback(f *models.AttemptFeedback) bool {
	if len(f.Strengths) < 2 || len(f.Weaknesses) < 2 || strings.TrimSpace(f.Recommendation) == "" {
		return false
	}
	f.Strengths = f.Strengths[:2]
	f.Weaknesses = f.Weaknesses[:2]
	return true
}

func buildExplainPrompt(req models.ExplainRequest, reference string) string {
	var b strings.Builder

	b.WriteString("You are a patient tutor. Explain the answer to the quiz question below.\n\n")

	b.WriteString("Question: ")
	b.WriteString(req.Question)
	b.WriteString("\n")
	for i, opt := range req.Options {
		marker := " "
		if i == req.CorrectAnswer {
			marker = "correct"
		}
		b.WriteString(fmt.Sprintf("Option %d (%s): %s\n", i+1, marker, opt))
	}
	if req.UserAnswer >= 0 && req.UserAnswer < len(req.Options) {
		b.WriteString(fmt.Sprintf("\nThe student selected option %d.\n", req.UserAnswer+1))
	}

	b.WriteString("\nGround your explanation in this reference material. If it says no reference material was found, say the explanation is based on general knowledge:\n\n")
	b.WriteString(reference)
	b.WriteString("\n\nKeep the explanation under 150 words. Plain text only, no markdown.\n")

	return b.String()
}

func buildFeedbackPrompt(req models.FeedbackRequest) string {
	var b strings.Builder

	b.WriteString("You are an expert learning coach. Analyze this quiz attempt and return feedback.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	if req.QuizTitle != "" {
		b.WriteString(fmt.Sprintf("Quiz: %s\n", req.QuizTitle))
	}
	b.WriteString(fmt.Sprintf("Score: %d out of %d points.\n\n", req.Score, req.TotalPoints))

	b.WriteString("Per-question results:\n")
	for i, q := range req.Questions {
		status := "skipped"
		if i < len(req.UserAnswers) && req.UserAnswers[i] >= 0 {
			if req.UserAnswers[i] == q.CorrectAnswer {
				status = "correct"
			} else {
				status = "wrong"
			}
		}
		b.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, status, q.QuestionText))
	}

	b.WriteString(`
JSON schema:
{"strengths": ["string", "string"], "weaknesses": ["string", "string"], "recommendation": "string"}

Exactly 2 strengths, exactly 2 weaknesses, 1 recommendation. Each entry under 25 words.
`)

	return b.String()
}

// incorrectQuestions keeps the questions the attempt got wrong. A question
// absent from the answer map was skipped and counts as incorrect.
func incorrectQuestions(questions []models.Question, answers map[uuid.UUID]int) []models.Question {
	var incorrect []models.Question
	for _, q := range questions {
		if ans, ok := answers[q.ID]; !ok || ans != q.CorrectAnswer {
			incorrect = append(incorrect, q)
		}
	}
	return incorrect
}

func buildAnalysisPrompt(incorrect []models.Question, answers map[uuid.UUID]int) string {
	var b strings.Builder

	b.WriteString("You are an expert tutor. Analyze the following incorrect quiz answers. For each question, explain the likely misconception behind the student's choice (if skipped, why it might be difficult) and the correct concept in simple terms.\n\n")

	b.WriteString("Input data:\n")
	for i, q := range incorrect {
		if i > 0 {
			b.WriteString("----------------\n")
		}
		userAnsText := "Skipped"
		if ans, ok := answers[q.ID]; ok && ans >= 0 && ans < len(q.Options) {
			userAnsText = q.Options[ans]
		}
		correctAnsText := ""
		if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) {
			correctAnsText = q.Options[q.CorrectAnswer]
		}
		b.WriteString(fmt.Sprintf("Question ID: %s\n", q.ID))
		b.WriteString(fmt.Sprintf("Question: %q\n", q.QuestionText))
		b.WriteString(fmt.Sprintf("User Answer: %q\n", userAnsText))
		b.WriteString(fmt.Sprintf("Correct Answer: %q\n", correctAnsText))
	}

	b.WriteString(`
Return ONLY a valid JSON object. No preamble, no markdown, no backticks.

JSON schema:
{"analysis": [{"question_id": "string, matches input ID", "misconception": "string, 1-2 sentences on why the student was wrong", "correct_concept": "string, 1-2 sentences on the right answer", "study_topic": "string, 2-3 words, the core topic to review"}]}
`)

	return b.String()
}

func buildReportPrompt(attempts []models.AttemptRecord, focus string) string {
	var b strings.Builder

	b.WriteString("You are the Chief Data Officer of an e-learning platform. Write an executive intelligence report in markdown based on the recent quiz activity below.\n\n")
	b.WriteString("Cover: overall engagement, strongest and weakest subject areas, notable score patterns, and 3 concrete recommendations. Use ## section headers. Keep it under 400 words.\n\n")

	if focus != "" {
		b.WriteString("The administrator specifically asked about: ")
		b.WriteString(focus)
		b.WriteString("\n\n")
	}

	b.WriteString("---RECENT ATTEMPTS---\n")
	for _, a := range attempts {
		b.WriteString(fmt.Sprintf("quiz=%q category=%q score=%d time_s=%d at=%s\n",
			a.QuizTitle, a.QuizCategory, a.Score, a.TimeTakenSeconds, a.CompletedAt.Format(time.RFC3339)))
	}
	b.WriteString("---END---\n")

	return b.String()
}
