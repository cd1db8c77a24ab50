package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
	"quizforge-backend/internal/session"
)

const adminEventsChannel = "admin_events"

// AttemptPersister stores finished session outcomes as attempt rows and
// announces each one on the admin pub/sub channel. It is the single write
// path for attempts, shared by explicit finishes and timer expiries.
type AttemptPersister struct {
	attemptRepo *repository.AttemptRepo
	quizRepo    *repository.QuizRepo
	redis       *redis.Client
}

func NewAttemptPersister(attemptRepo *repository.AttemptRepo, quizRepo *repository.QuizRepo, redisClient *redis.Client) *AttemptPersister {
	return &AttemptPersister{
		attemptRepo: attemptRepo,
		quizRepo:    quizRepo,
		redis:       redisClient,
	}
}

func (p *AttemptPersister) SaveAttempt(outcome *session.Outcome) (*models.Attempt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attempt := &models.Attempt{
		UserID:           outcome.UserID,
		QuizID:           outcome.QuizID,
		Score:            outcome.Result.EarnedPoints,
		TotalQuestions:   outcome.TotalQuestions,
		TimeTakenSeconds: outcome.TimeTakenSeconds,
		Answers:          outcome.Answers,
	}
	if err := p.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	title := ""
	if quiz, err := p.quizRepo.GetByID(ctx, outcome.QuizID); err == nil {
		title = quiz.Title
	}

	event, _ := json.Marshal(models.WSMessage{
		Type: "attempt_completed",
		Payload: models.AttemptCompletedEvent{
			AttemptID: attempt.ID,
			QuizID:    attempt.QuizID,
			QuizTitle: title,
			Score:     attempt.Score,
		},
	})
	p.redis.Publish(ctx, adminEventsChannel, string(event))

	return attempt, nil
}
