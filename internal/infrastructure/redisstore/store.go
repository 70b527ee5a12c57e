// Package redisstore provides a Redis-backed job registry with the same
// contract as the in-memory store, for deployments that want download
// history to survive restarts.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "mediagrab/internal/domain/download"
)

const (
	jobKeyPrefix = "job:"
	indexKey     = "jobs:index"
	seqKey       = "jobs:seq"

	opTimeout = 5 * time.Second
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store persists jobs as JSON values keyed by id, ordered by a monotonic
// sequence kept in a sorted set.
type Store struct {
	rdb         *redis.Client
	maxRetained int
}

// New connects to Redis, verifies the connection, and returns a store.
func New(cfg Config, maxRetained int) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if maxRetained <= 0 {
		maxRetained = 1000
	}
	return &Store{rdb: rdb, maxRetained: maxRetained}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

type jobRecord struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	Quality   string `json:"quality,omitempty"`
	AudioType string `json:"audio_type,omitempty"`
	State     string `json:"state"`
	Progress  int    `json:"progress"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`

	Result *resultRecord `json:"result,omitempty"`
}

type resultRecord struct {
	FileName        string `json:"file_name,omitempty"`
	FileSizeBytes   int64  `json:"file_size_bytes,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	DownloadURI     string `json:"download_uri,omitempty"`
	Title           string `json:"title,omitempty"`
	Uploader        string `json:"uploader,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Create registers a new queued job and trims history past the retention cap.
func (s *Store) Create(req domain.DownloadRequest) (domain.Job, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	now := time.Now().UTC()
	job := domain.Job{
		ID:        uuid.NewString(),
		Request:   req,
		State:     domain.StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	seq, err := s.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return domain.Job{}, fmt.Errorf("allocate sequence: %w", err)
	}

	data, err := json.Marshal(toRecord(job))
	if err != nil {
		return domain.Job{}, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(seq), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Job{}, fmt.Errorf("store job: %w", err)
	}

	s.evict(ctx, s.maxRetained)
	return job, nil
}

// Get returns the stored job or ErrNotFound.
func (s *Store) Get(id string) (domain.Job, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return s.get(ctx, id)
}

// Update applies a mutation under an optimistic WATCH transaction. A lost
// race surfaces as an error the caller may retry.
func (s *Store) Update(id string, mutate func(*domain.Job) error) (domain.Job, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	key := jobKeyPrefix + id
	var updated domain.Job

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var rec jobRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode job %s: %w", id, err)
		}
		job := fromRecord(rec)
		if err := mutate(&job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()

		next, err := json.Marshal(toRecord(job))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = job
		return nil
	}, key)
	if err != nil {
		return domain.Job{}, err
	}
	return updated, nil
}

// List returns up to limit jobs most-recent-first, starting strictly after
// the cursor.
func (s *Store) List(cursor string, limit int) ([]domain.Job, string, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	maxScore := "+inf"
	if cursor != "" {
		if _, err := strconv.ParseUint(cursor, 10, 64); err == nil {
			maxScore = "(" + cursor
		}
	}

	entries, err := s.rdb.ZRevRangeByScoreWithScores(ctx, indexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(entries))
	var lastSeq float64
	for _, entry := range entries {
		id, _ := entry.Member.(string)
		job, err := s.get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		jobs = append(jobs, job)
		lastSeq = entry.Score
	}

	next := ""
	if len(entries) == limit && len(jobs) > 0 {
		next = strconv.FormatInt(int64(lastSeq), 10)
	}
	return jobs, next, nil
}

// CountByState returns the number of retained jobs per state.
func (s *Store) CountByState() (map[domain.JobState]int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	counts := make(map[domain.JobState]int, 4)
	err := s.scan(ctx, func(job domain.Job) {
		counts[job.State]++
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CompletedBytes sums the file sizes of retained completed jobs.
func (s *Store) CompletedBytes() (int64, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	var total int64
	err := s.scan(ctx, func(job domain.Job) {
		if job.State == domain.StateCompleted && job.Result != nil {
			total += job.Result.FileSizeBytes
		}
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) scan(ctx context.Context, visit func(domain.Job)) error {
	ids, err := s.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("scan index: %w", err)
	}
	for _, id := range ids {
		job, err := s.get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		visit(job)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (domain.Job, error) {
	data, err := s.rdb.Get(ctx, jobKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return domain.Job{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("fetch job %s: %w", id, err)
	}
	var rec jobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return fromRecord(rec), nil
}

func (s *Store) evict(ctx context.Context, maxRetained int) {
	size, err := s.rdb.ZCard(ctx, indexKey).Result()
	if err != nil || size <= int64(maxRetained) {
		return
	}
	excess := size - int64(maxRetained)

	oldest, err := s.rdb.ZRange(ctx, indexKey, 0, excess-1).Result()
	if err != nil || len(oldest) == 0 {
		return
	}

	pipe := s.rdb.TxPipeline()
	for _, id := range oldest {
		pipe.Del(ctx, jobKeyPrefix+id)
		pipe.ZRem(ctx, indexKey, id)
	}
	_, _ = pipe.Exec(ctx)
}

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func toRecord(job domain.Job) jobRecord {
	rec := jobRecord{
		ID:        job.ID,
		URL:       job.Request.URL,
		Platform:  string(job.Request.Platform),
		Quality:   job.Request.Quality,
		AudioType: job.Request.AudioType,
		State:     string(job.State),
		Progress:  job.Progress,
		CreatedAt: job.CreatedAt.UnixMilli(),
		UpdatedAt: job.UpdatedAt.UnixMilli(),
	}
	if job.Result != nil {
		rec.Result = &resultRecord{
			FileName:        job.Result.FileName,
			FileSizeBytes:   job.Result.FileSizeBytes,
			DurationSeconds: job.Result.DurationSeconds,
			DownloadURI:     job.Result.DownloadURI,
			Title:           job.Result.Title,
			Uploader:        job.Result.Uploader,
			ErrorKind:       string(job.Result.ErrorKind),
			Message:         job.Result.Message,
		}
	}
	return rec
}

func fromRecord(rec jobRecord) domain.Job {
	job := domain.Job{
		ID: rec.ID,
		Request: domain.DownloadRequest{
			URL:       rec.URL,
			Platform:  domain.Platform(rec.Platform),
			Quality:   rec.Quality,
			AudioType: rec.AudioType,
		},
		State:     domain.JobState(rec.State),
		Progress:  rec.Progress,
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(rec.UpdatedAt).UTC(),
	}
	if rec.Result != nil {
		job.Result = &domain.Result{
			FileName:        rec.Result.FileName,
			FileSizeBytes:   rec.Result.FileSizeBytes,
			DurationSeconds: rec.Result.DurationSeconds,
			DownloadURI:     rec.Result.DownloadURI,
			Title:           rec.Result.Title,
			Uploader:        rec.Result.Uploader,
			ErrorKind:       domain.ErrorKind(rec.Result.ErrorKind),
			Message:         rec.Result.Message,
		}
	}
	return job
}
