// Package memstore provides the default in-memory job registry with bounded
// retention and stable cursor pagination.
package memstore

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "mediagrab/internal/domain/download"
)

const defaultMaxRetained = 1000

type record struct {
	job domain.Job
	seq uint64
}

// Store is a mutex-guarded job table keyed by id. It is the single mutable
// shared structure of the system; every mutation goes through Create/Update.
type Store struct {
	mu          sync.Mutex
	jobs        map[string]*record
	nextSeq     uint64
	maxRetained int
	now         func() time.Time
}

// New creates a store retaining at most maxRetained jobs, oldest evicted first.
func New(maxRetained int) *Store {
	if maxRetained <= 0 {
		maxRetained = defaultMaxRetained
	}
	return &Store{
		jobs:        make(map[string]*record),
		nextSeq:     1,
		maxRetained: maxRetained,
		now:         time.Now,
	}
}

// Create registers a new queued job for a validated request.
func (s *Store) Create(req domain.DownloadRequest) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	job := domain.Job{
		ID:        uuid.NewString(),
		Request:   req,
		State:     domain.StateQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = &record{job: job, seq: s.nextSeq}
	s.nextSeq++

	s.evictLocked(s.maxRetained)
	return job, nil
}

// Get returns a copy of the job or ErrNotFound.
func (s *Store) Get(id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return copyJob(rec.job), nil
}

// Update applies a mutation atomically. The stored record changes only when
// the mutation succeeds; a rejected mutation leaves the job untouched.
func (s *Store) Update(id string, mutate func(*domain.Job) error) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}

	next := copyJob(rec.job)
	if err := mutate(&next); err != nil {
		return domain.Job{}, err
	}
	next.UpdatedAt = s.now().UTC()
	rec.job = next
	return copyJob(next), nil
}

// List returns up to limit jobs most-recent-first, starting strictly after
// the cursor. The returned cursor is empty when the listing is exhausted.
func (s *Store) List(cursor string, limit int) ([]domain.Job, string, error) {
	if limit <= 0 {
		limit = 20
	}
	after := parseCursor(cursor)

	s.mu.Lock()
	recs := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if after == 0 || rec.seq < after {
			recs = append(recs, rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	if len(recs) > limit {
		recs = recs[:limit]
	}
	jobs := make([]domain.Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, copyJob(rec.job))
	}

	next := ""
	if len(recs) == limit && len(recs) > 0 {
		next = strconv.FormatUint(recs[len(recs)-1].seq, 10)
	}
	return jobs, next, nil
}

// CountByState returns the number of retained jobs per state.
func (s *Store) CountByState() (map[domain.JobState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.JobState]int, 4)
	for _, rec := range s.jobs {
		counts[rec.job.State]++
	}
	return counts, nil
}

// CompletedBytes sums the file sizes of retained completed jobs.
func (s *Store) CompletedBytes() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, rec := range s.jobs {
		if rec.job.State == domain.StateCompleted && rec.job.Result != nil {
			total += rec.job.Result.FileSizeBytes
		}
	}
	return total, nil
}

// evictLocked drops the oldest jobs until at most maxRetained remain.
// Terminal jobs go first; live jobs are evicted only when the table is full
// of them.
func (s *Store) evictLocked(maxRetained int) {
	excess := len(s.jobs) - maxRetained
	if excess <= 0 {
		return
	}

	recs := make([]*record, 0, len(s.jobs))
	ids := make(map[*record]string, len(s.jobs))
	for id, rec := range s.jobs {
		recs = append(recs, rec)
		ids[rec] = id
	}
	sort.Slice(recs, func(i, j int) bool {
		ti, tj := recs[i].job.State.Terminal(), recs[j].job.State.Terminal()
		if ti != tj {
			return ti
		}
		return recs[i].seq < recs[j].seq
	})

	for _, rec := range recs[:excess] {
		delete(s.jobs, ids[rec])
	}
}

func parseCursor(cursor string) uint64 {
	if cursor == "" {
		return 0
	}
	v, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func copyJob(j domain.Job) domain.Job {
	out := j
	if j.Result != nil {
		res := *j.Result
		out.Result = &res
	}
	return out
}
