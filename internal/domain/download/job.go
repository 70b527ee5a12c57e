package download

import "time"

// JobState describes where a job is in its lifecycle.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether moving from one state to another is legal.
// Jobs only move forward: queued -> running -> completed/failed. A queued job
// may fail directly when its execution could not be started.
func CanTransition(from, to JobState) bool {
	switch from {
	case StateQueued:
		return to == StateRunning || to == StateFailed
	case StateRunning:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}

// Result carries the terminal outcome of a job. On success the error fields
// are empty; on failure only ErrorKind and Message are set.
type Result struct {
	FileName        string
	FileSizeBytes   int64
	DurationSeconds int64
	DownloadURI     string
	Title           string
	Uploader        string

	ErrorKind ErrorKind
	Message   string
}

// Job is one tracked download request and its lifecycle state. It is owned
// and mutated exclusively through the job store; readers get copies.
type Job struct {
	ID        string
	Request   DownloadRequest
	State     JobState
	Progress  int
	CreatedAt time.Time
	UpdatedAt time.Time
	Result    *Result
}

// SetState transitions the job, rejecting illegal moves.
func (j *Job) SetState(to JobState) error {
	if !CanTransition(j.State, to) {
		return ErrInvalidTransition
	}
	j.State = to
	return nil
}

// SetProgress records a progress report. Terminal jobs reject updates; a
// report lower than the current value is kept at the current value so the
// recorded sequence stays non-decreasing.
func (j *Job) SetProgress(percent int) error {
	if j.State.Terminal() {
		return ErrInvalidTransition
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
	}
	return nil
}

// Complete moves the job to completed and stamps the success result.
func (j *Job) Complete(res Result) error {
	if err := j.SetState(StateCompleted); err != nil {
		return err
	}
	j.Progress = 100
	j.Result = &res
	return nil
}

// Fail moves the job to failed and stamps the structured failure.
func (j *Job) Fail(kind ErrorKind, message string) error {
	if err := j.SetState(StateFailed); err != nil {
		return err
	}
	j.Result = &Result{ErrorKind: kind, Message: message}
	return nil
}
