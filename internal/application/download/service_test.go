package download

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	domain "mediagrab/internal/domain/download"
	"mediagrab/internal/infrastructure/memstore"
)

type stubGateway struct {
	mu         sync.Mutex
	running    int
	maxRunning int

	progress []int
	result   domain.Result
	err      error

	// when set, Execute blocks until the channel is closed.
	release chan struct{}
}

func (g *stubGateway) Probe(_ context.Context) (ProbeInfo, error) {
	return ProbeInfo{Version: "1.0.0"}, nil
}

func (g *stubGateway) Info(_ context.Context, _ string) (domain.VideoInfo, error) {
	return domain.VideoInfo{Title: "stub"}, nil
}

func (g *stubGateway) Execute(_ context.Context, _ domain.DownloadRequest, onProgress func(int)) (domain.Result, error) {
	g.mu.Lock()
	g.running++
	if g.running > g.maxRunning {
		g.maxRunning = g.running
	}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.running--
		g.mu.Unlock()
	}()

	for _, p := range g.progress {
		onProgress(p)
	}
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return domain.Result{}, g.err
	}
	return g.result, nil
}

func (g *stubGateway) peakConcurrency() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxRunning
}

func waitForState(t *testing.T, store JobStore, id string, want domain.JobState) domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if job.State == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.Get(id)
	t.Fatalf("job %s never reached %s, stuck at %s", id, want, job.State)
	return domain.Job{}
}

func TestSubmit_CompletesWithProgressAndResult(t *testing.T) {
	store := memstore.New(10)
	gw := &stubGateway{
		progress: []int{0, 45, 100},
		result:   domain.Result{FileName: "abc.mp4", FileSizeBytes: 1 << 20},
	}
	svc := NewService(store, gw, zap.NewNop(), 2)

	job, err := svc.Submit(context.Background(), domain.RawRequest{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.State != domain.StateQueued {
		t.Fatalf("expected queued job on submit, got %s", job.State)
	}

	done := waitForState(t, store, job.ID, domain.StateCompleted)
	if done.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", done.Progress)
	}
	if done.Result == nil || done.Result.FileName != "abc.mp4" {
		t.Fatalf("unexpected result: %+v", done.Result)
	}
}

func TestSubmit_RejectsInvalidRequestWithoutCreatingJob(t *testing.T) {
	store := memstore.New(10)
	svc := NewService(store, &stubGateway{}, zap.NewNop(), 2)

	_, err := svc.Submit(context.Background(), domain.RawRequest{
		URL:      "https://instagram.com/p/xyz",
		Platform: "youtube",
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Kind != domain.PlatformMismatch {
		t.Fatalf("expected PlatformMismatch, got %v", err)
	}

	jobs, _, err := store.List("", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no job created, found %d", len(jobs))
	}
}

func TestSubmit_GatewayFailureRecordedAsTerminal(t *testing.T) {
	store := memstore.New(10)
	gw := &stubGateway{err: &domain.ExtractionError{Kind: domain.NetworkFailure, Message: "connection refused"}}
	svc := NewService(store, gw, zap.NewNop(), 2)

	job, err := svc.Submit(context.Background(), domain.RawRequest{URL: "https://youtu.be/abc"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	failed := waitForState(t, store, job.ID, domain.StateFailed)
	if failed.Result == nil || failed.Result.ErrorKind != domain.NetworkFailure {
		t.Fatalf("unexpected failure result: %+v", failed.Result)
	}

	// Late progress reports against a terminal job must be rejected.
	if _, err := store.Update(job.ID, func(j *domain.Job) error { return j.SetProgress(50) }); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSubmit_UnclassifiedErrorMapsToNetworkFailure(t *testing.T) {
	store := memstore.New(10)
	gw := &stubGateway{err: errors.New("dial tcp: connection refused")}
	svc := NewService(store, gw, zap.NewNop(), 1)

	job, _ := svc.Submit(context.Background(), domain.RawRequest{URL: "https://youtu.be/abc"})
	failed := waitForState(t, store, job.ID, domain.StateFailed)
	if failed.Result.ErrorKind != domain.NetworkFailure {
		t.Fatalf("expected NetworkFailure, got %s", failed.Result.ErrorKind)
	}
}

func TestSubmit_RespectsWorkerPoolBound(t *testing.T) {
	const poolSize = 2
	const submissions = poolSize + 5

	store := memstore.New(submissions)
	gw := &stubGateway{release: make(chan struct{})}
	svc := NewService(store, gw, zap.NewNop(), poolSize)

	ids := make([]string, 0, submissions)
	for i := 0; i < submissions; i++ {
		job, err := svc.Submit(context.Background(), domain.RawRequest{URL: "https://youtu.be/abc"})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, job.ID)
	}

	// Let the pool saturate, then check the bound held and the overflow
	// stayed queued.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		counts, _ := store.CountByState()
		if counts[domain.StateRunning] == poolSize {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	counts, _ := store.CountByState()
	if counts[domain.StateRunning] != poolSize {
		t.Fatalf("expected %d running, got %+v", poolSize, counts)
	}
	if counts[domain.StateQueued] != submissions-poolSize {
		t.Fatalf("expected %d queued, got %+v", submissions-poolSize, counts)
	}

	close(gw.release)
	for _, id := range ids {
		waitForState(t, store, id, domain.StateCompleted)
	}
	if gw.peakConcurrency() > poolSize {
		t.Fatalf("pool bound violated: peak %d > %d", gw.peakConcurrency(), poolSize)
	}
}
