package download

import (
	"context"

	domain "mediagrab/internal/domain/download"
)

// JobStore is an application port for the job registry. All job mutations go
// through Update, which applies the mutation atomically against the stored
// record and persists it only when the mutation succeeds.
type JobStore interface {
	Create(req domain.DownloadRequest) (domain.Job, error)
	Get(id string) (domain.Job, error)
	Update(id string, mutate func(*domain.Job) error) (domain.Job, error)
	List(cursor string, limit int) ([]domain.Job, string, error)
}

// ProbeInfo is what a reachable extraction service reports about itself.
type ProbeInfo struct {
	Version string
}

// ExtractionGateway is an application port for the external service that
// performs the platform-specific fetch and transcode. Execute blocks until
// the remote download reaches a terminal outcome, invoking onProgress zero or
// more times with non-decreasing percentages along the way.
type ExtractionGateway interface {
	Probe(ctx context.Context) (ProbeInfo, error)
	Execute(ctx context.Context, req domain.DownloadRequest, onProgress func(int)) (domain.Result, error)
	Info(ctx context.Context, url string) (domain.VideoInfo, error)
}
