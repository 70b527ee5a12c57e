package download

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "mediagrab/internal/domain/download"
)

const defaultWorkers = 4

// Service accepts download submissions and drives accepted jobs through
// their lifecycle against the extraction gateway.
type Service struct {
	store   JobStore
	gateway ExtractionGateway
	logger  *zap.Logger

	// slots bounds concurrent gateway invocations; excess jobs stay queued
	// until a slot frees.
	slots chan struct{}
}

// NewService creates a dispatcher with a bounded worker pool.
func NewService(store JobStore, gateway ExtractionGateway, logger *zap.Logger, workers int) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		store:   store,
		gateway: gateway,
		logger:  logger,
		slots:   make(chan struct{}, workers),
	}
}

// Submit validates a raw request and, if accepted, creates a queued job and
// schedules its execution. It returns without waiting for a worker slot.
func (s *Service) Submit(ctx context.Context, raw domain.RawRequest) (domain.Job, error) {
	req, err := domain.Validate(raw)
	if err != nil {
		return domain.Job{}, err
	}

	job, err := s.store.Create(req)
	if err != nil {
		return domain.Job{}, err
	}

	s.logger.Info("job accepted",
		zap.String("job_id", job.ID),
		zap.String("platform", string(req.Platform)),
		zap.String("url", req.URL))

	go s.run(job.ID, req)
	return job, nil
}

// Job returns the current snapshot of one job.
func (s *Service) Job(id string) (domain.Job, error) {
	return s.store.Get(id)
}

// ListJobs returns the most recent jobs first with a stable pagination cursor.
func (s *Service) ListJobs(cursor string, limit int) ([]domain.Job, string, error) {
	return s.store.List(cursor, limit)
}

// VideoInfo fetches remote media metadata without starting a download.
func (s *Service) VideoInfo(ctx context.Context, url string) (domain.VideoInfo, error) {
	return s.gateway.Info(ctx, url)
}

func (s *Service) run(id string, req domain.DownloadRequest) {
	s.slots <- struct{}{}
	defer func() { <-s.slots }()

	if _, err := s.update(id, func(j *domain.Job) error {
		return j.SetState(domain.StateRunning)
	}); err != nil {
		s.logger.Error("job could not start", zap.String("job_id", id), zap.Error(err))
		s.failJob(id, domain.InternalError, "job could not be started")
		return
	}

	result, err := s.gateway.Execute(context.Background(), req, func(percent int) {
		if _, perr := s.store.Update(id, func(j *domain.Job) error {
			return j.SetProgress(percent)
		}); perr != nil {
			s.logger.Warn("progress update dropped", zap.String("job_id", id), zap.Error(perr))
		}
	})
	if err != nil {
		kind, message := domain.FailureKind(err)
		s.logger.Warn("job failed",
			zap.String("job_id", id),
			zap.String("error_kind", string(kind)),
			zap.String("message", message))
		s.failJob(id, kind, message)
		return
	}

	if _, err := s.update(id, func(j *domain.Job) error {
		return j.Complete(result)
	}); err != nil {
		s.logger.Error("completion lost", zap.String("job_id", id), zap.Error(err))
		s.failJob(id, domain.InternalError, "completion could not be recorded")
		return
	}

	s.logger.Info("job completed",
		zap.String("job_id", id),
		zap.String("file", result.FileName),
		zap.Int64("bytes", result.FileSizeBytes))
}

// update applies a mutation with a single retry for store-level faults such
// as a lost optimistic transaction. Domain rejections are not retried.
func (s *Service) update(id string, mutate func(*domain.Job) error) (domain.Job, error) {
	job, err := s.store.Update(id, mutate)
	if err == nil || errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
		return job, err
	}
	return s.store.Update(id, mutate)
}

func (s *Service) failJob(id string, kind domain.ErrorKind, message string) {
	if _, err := s.update(id, func(j *domain.Job) error {
		return j.Fail(kind, message)
	}); err != nil {
		s.logger.Error("failure could not be recorded", zap.String("job_id", id), zap.Error(err))
	}
}
