package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
)

var seedCategories = []string{
	"Mathematics", "Science", "History", "Geography",
	"Literature", "Technology", "Art", "Music",
}

var seedFirstNames = []string{
	"Aigerim", "Daniyar", "Elena", "Marat", "Sofia", "Timur", "Anna", "Olzhas",
	"Maria", "Ruslan", "Dana", "Ivan", "Aliya", "Nikita", "Zarina", "Pavel",
	"Kamila", "Sergey", "Madina", "Arman",
}

// SeedService fills an empty development database with demo data so the
// admin dashboard has something to aggregate. Volumes: one quiz per
// category, twenty students, five hundred attempts spread over the last
// thirty days.
type SeedService struct {
	userRepo    *repository.UserRepo
	quizRepo    *repository.QuizRepo
	attemptRepo *repository.AttemptRepo
}

func NewSeedService(userRepo *repository.UserRepo, quizRepo *repository.QuizRepo, attemptRepo *repository.AttemptRepo) *SeedService {
	return &SeedService{
		userRepo:    userRepo,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
	}
}

type SeedResult struct {
	Users    int `json:"users"`
	Quizzes  int `json:"quizzes"`
	Attempts int `json:"attempts"`
}

func (s *SeedService) Run(ctx context.Context, adminID uuid.UUID) (*SeedResult, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// One shared hash keeps seeding fast; every demo account logs in with
	// the same password.
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), 12)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	users := make([]*models.User, 0, len(seedFirstNames))
	for i, name := range seedFirstNames {
		u := &models.User{
			Email:        fmt.Sprintf("%s.demo%d@quizforge.dev", lowerASCII(name), i),
			PasswordHash: string(hash),
			FullName:     name + " Demo",
			Role:         models.RoleStudent,
		}
		if err := s.userRepo.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		users = append(users, u)
	}

	quizzes := make([]*models.Quiz, 0, len(seedCategories))
	for _, category := range seedCategories {
		q := &models.Quiz{
			Title:            category + " Fundamentals",
			Description:      "Auto-generated demo quiz for " + category + ".",
			Category:         category,
			Difficulty:       []string{"easy", "medium", "hard"}[rng.Intn(3)],
			TimeLimitMinutes: 15,
			MaxAttempts:      5,
			CreatedBy:        adminID,
			IsPublished:      true,
		}
		if err := s.quizRepo.Create(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to seed quiz %s: %w", q.Title, err)
		}

		questions := make([]models.Question, 20)
		for i := range questions {
			questions[i] = models.Question{
				QuizID:        q.ID,
				QuestionText:  fmt.Sprintf("%s question %d: which option is correct?", category, i+1),
				Options:       []string{"Option A", "Option B", "Option C", "Option D"},
				CorrectAnswer: rng.Intn(4),
				Points:        1,
			}
		}
		if err := s.quizRepo.CreateQuestions(ctx, q.ID, questions); err != nil {
			return nil, fmt.Errorf("failed to seed questions for %s: %w", q.Title, err)
		}
		quizzes = append(quizzes, q)
	}

	const attemptCount = 500
	for i := 0; i < attemptCount; i++ {
		user := users[rng.Intn(len(users))]
		quiz := quizzes[rng.Intn(len(quizzes))]

		a := &models.Attempt{
			UserID:           user.ID,
			QuizID:           quiz.ID,
			Score:            biasedScore(rng),
			TotalQuestions:   20,
			TimeTakenSeconds: 120 + rng.Intn(780),
			CompletedAt:      now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
			Answers:          map[uuid.UUID]int{},
		}
		if err := s.attemptRepo.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to seed attempt %d: %w", i, err)
		}
	}

	return &SeedResult{
		Users:    len(users),
		Quizzes:  len(quizzes),
		Attempts: attemptCount,
	}, nil
}

// biasedScore draws from 0..20 with most mass in the middle of the range,
// which makes the distribution chart look like real student data.
func biasedScore(rng *rand.Rand) int {
	score := (rng.Intn(21) + rng.Intn(21)) / 2
	if score > 20 {
		score = 20
	}
	return score
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
