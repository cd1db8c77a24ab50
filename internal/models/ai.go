package models

import "github.com/google/uuid"

// ExplainRequest carries one answered question to the explanation endpoint.
// The quiz id scopes the vector search to that quiz's reference material.
type ExplainRequest struct {
	QuizID        uuid.UUID `json:"quiz_id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	UserAnswer    int       `json:"user_answer"`
	CorrectAnswer int       `json:"correct_answer"`
}

type FeedbackQuestion struct {
	QuestionText  string `json:"question_text"`
	CorrectAnswer int    `json:"correct_answer"`
}

// FeedbackRequest is a finished attempt flattened for the summary endpoint.
// UserAnswers is parallel to Questions; -1 marks a skipped question.
type FeedbackRequest struct {
	QuizTitle   string             `json:"quiz_title"`
	Score       int                `json:"score"`
	TotalPoints int                `json:"total_points"`
	Questions   []FeedbackQuestion `json:"questions"`
	UserAnswers []int              `json:"user_answers"`
}

type IntelligenceRequest struct {
	Prompt string `json:"prompt"`
}

type AnalysisRequest struct {
	AttemptID uuid.UUID `json:"attempt_id"`
}

// MistakeBreakdown is the model's diagnosis of one incorrectly answered
// (or skipped) question.
type MistakeBreakdown struct {
	QuestionID     string `json:"question_id"`
	Misconception  string `json:"misconception"`
	CorrectConcept string `json:"correct_concept"`
	StudyTopic     string `json:"study_topic"`
}

// MistakeAnalysis is the batch analysis of an attempt's wrong answers.
// Message is set instead of breakdowns when there was nothing to analyze.
type MistakeAnalysis struct {
	Message  string             `json:"message,omitempty"`
	Analysis []MistakeBreakdown `json:"analysis"`
}
