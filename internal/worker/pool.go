package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
	"quizforge-backend/internal/services"
)

const ingestQueue = "queue:document-ingest"

type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	jobRepo     *repository.JobRepo
	docRepo     *repository.DocumentRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	docRepo *repository.DocumentRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		fileExtract: fileExtract,
		jobRepo:     jobRepo,
		docRepo:     docRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, ingestQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case "document-ingest":
			processErr = p.processIngest(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processIngest turns an uploaded PDF into embedded chunks: extract text,
// split on word boundaries, embed each chunk, store the rows. The source
// file is removed once every chunk is stored.
func (p *Pool) processIngest(ctx context.Context, job *models.Job) error {
	var config struct {
		FilePath string `json:"file_path"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("failed to parse job config: %w", err)
	}
	if config.FilePath == "" {
		return fmt.Errorf("ingest job has no file path")
	}

	text, err := p.fileExtract.ExtractTextFromPath(config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", config.Filename, err)
	}

	chunks := services.ChunkText(text)
	if len(chunks) == 0 {
		return fmt.Errorf("no ingestable text in %s", config.Filename)
	}

	quizID := job.ReferenceID
	for i, chunk := range chunks {
		embedding, err := p.gemini.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if err := p.docRepo.Create(ctx, quizID, chunk, embedding); err != nil {
			return fmt.Errorf("failed to store chunk %d/%d: %w", i+1, len(chunks), err)
		}

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "ingest_progress",
			Payload: models.IngestProgressEvent{
				JobID:       job.ID,
				QuizID:      quizID,
				ChunksDone:  i + 1,
				ChunksTotal: len(chunks),
			},
		})
	}

	if err := os.Remove(config.FilePath); err != nil {
		log.Printf("failed to remove ingested file %s: %v", config.FilePath, err)
	}

	log.Printf("Ingested %d chunks for quiz %s from %s", len(chunks), quizID, config.Filename)
	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: map[string]interface{}{
			"job_id":  job.ID,
			"quiz_id": job.ReferenceID,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), ingestQueue, string(jobBytes))
		})
	} else {
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: map[string]interface{}{
				"job_id":        job.ID,
				"error_code":    "JOB_FAILED",
				"error_message": errMsg,
			},
		})
	}
}
