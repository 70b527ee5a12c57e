// Package status aggregates gateway reachability, job counters, and resource
// gauges into one snapshot for the status endpoint.
package status

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	app "mediagrab/internal/application/download"
	domain "mediagrab/internal/domain/download"
	"mediagrab/internal/infrastructure/sysinfo"
)

// Reachability describes whether the extraction service answered the probe.
type Reachability string

const (
	GatewayOnline  Reachability = "online"
	GatewayOffline Reachability = "offline"
	GatewayError   Reachability = "error"
)

// GatewayStatus is the probe outcome.
type GatewayStatus struct {
	Reachability Reachability
	LatencyMs    int64
	Version      string
}

// JobCounters summarizes the job registry by state.
type JobCounters struct {
	Active         int
	Queued         int
	Running        int
	Completed      int
	Failed         int
	CompletedBytes int64
}

// Snapshot is recomputed on every query and never persisted.
type Snapshot struct {
	Gateway     GatewayStatus
	Jobs        JobCounters
	Resources   sysinfo.Resources
	GeneratedAt time.Time
}

// Prober issues the gateway liveness check.
type Prober interface {
	Probe(ctx context.Context) (app.ProbeInfo, error)
}

// JobCounter reads aggregate registry counters.
type JobCounter interface {
	CountByState() (map[domain.JobState]int, error)
	CompletedBytes() (int64, error)
}

// ResourceReader samples process and host gauges.
type ResourceReader interface {
	Read() sysinfo.Resources
}

const defaultProbeTimeout = 3 * time.Second

// Service builds status snapshots.
type Service struct {
	prober       Prober
	counter      JobCounter
	resources    ResourceReader
	logger       *zap.Logger
	probeTimeout time.Duration
}

// NewService creates a status aggregator with a bounded probe timeout.
func NewService(prober Prober, counter JobCounter, resources ResourceReader, logger *zap.Logger, probeTimeout time.Duration) *Service {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Service{
		prober:       prober,
		counter:      counter,
		resources:    resources,
		logger:       logger,
		probeTimeout: probeTimeout,
	}
}

// Snapshot always succeeds; a failed probe is data, not an error.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Gateway:     s.probe(ctx),
		Resources:   s.resources.Read(),
		GeneratedAt: time.Now().UTC(),
	}

	counts, err := s.counter.CountByState()
	if err != nil {
		s.logger.Warn("job counters unavailable", zap.Error(err))
	} else {
		snap.Jobs.Queued = counts[domain.StateQueued]
		snap.Jobs.Running = counts[domain.StateRunning]
		snap.Jobs.Active = snap.Jobs.Queued + snap.Jobs.Running
		snap.Jobs.Completed = counts[domain.StateCompleted]
		snap.Jobs.Failed = counts[domain.StateFailed]
	}

	if bytes, err := s.counter.CompletedBytes(); err == nil {
		snap.Jobs.CompletedBytes = bytes
	}

	return snap
}

// probe measures gateway round-trip time. A transport fault reads as offline;
// a gateway that answered but reported a fault reads as error.
func (s *Service) probe(ctx context.Context) GatewayStatus {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	info, err := s.prober.Probe(probeCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		reach := GatewayOffline
		var ee *domain.ExtractionError
		if errors.As(err, &ee) {
			reach = GatewayError
		}
		s.logger.Debug("gateway probe failed", zap.String("reachability", string(reach)), zap.Error(err))
		return GatewayStatus{Reachability: reach, LatencyMs: latency}
	}

	return GatewayStatus{Reachability: GatewayOnline, LatencyMs: latency, Version: info.Version}
}
