package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// JobRecord tracks one collection job across its lifetime.
type JobRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	Reviews   int       `json:"reviews"`
	Expected  int       `json:"expected_total,omitempty"`
	Output    string    `json:"output,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// JobLedger persists job records as one JSON document. An empty filename
// keeps the ledger in memory only.
type JobLedger struct {
	mu       sync.RWMutex
	jobs     map[string]*JobRecord
	filename string
}

// NewJobLedger creates a ledger, loading filename when it exists.
func NewJobLedger(filename string) (*JobLedger, error) {
	l := &JobLedger{
		jobs:     make(map[string]*JobRecord),
		filename: filename,
	}

	if filename != "" {
		if err := l.Load(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load job ledger: %w", err)
		}
	}

	return l, nil
}

// Add stores a new record as pending.
func (l *JobLedger) Add(job *JobRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}

	now := time.Now()
	job.AddedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusPending
	}

	l.jobs[job.ID] = job
	return l.save()
}

// Get returns a copy of the record.
func (l *JobLedger) Get(id string) (JobRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	job, exists := l.jobs[id]
	if !exists {
		return JobRecord{}, false
	}
	return *job, true
}

// List returns copies of all records, oldest first.
func (l *JobLedger) List() []JobRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]JobRecord, 0, len(l.jobs))
	for _, job := range l.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// GetPending returns the records still waiting to run, oldest first.
func (l *JobLedger) GetPending() []JobRecord {
	var pending []JobRecord
	for _, job := range l.List() {
		if job.Status == StatusPending {
			pending = append(pending, job)
		}
	}
	return pending
}

// MarkRunning marks a job as started.
func (l *JobLedger) MarkRunning(id string) error {
	return l.update(id, func(job *JobRecord) {
		job.Status = StatusRunning
		job.Error = ""
	})
}

// Finish records the outcome of a job. A job with no reviews is marked empty.
func (l *JobLedger) Finish(id string, reviews, expected int, output string) error {
	return l.update(id, func(job *JobRecord) {
		job.Status = StatusCompleted
		if reviews == 0 {
			job.Status = StatusEmpty
		}
		job.Reviews = reviews
		job.Expected = expected
		job.Output = output
	})
}

// Fail marks a job as failed with the given error code.
func (l *JobLedger) Fail(id, errorMsg string) error {
	return l.update(id, func(job *JobRecord) {
		job.Status = StatusFailed
		job.Error = errorMsg
	})
}

// Remove deletes a record. Removing an unknown id is not an error.
func (l *JobLedger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.jobs, id)
	return l.save()
}

// GetStats counts records per status.
func (l *JobLedger) GetStats() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]int)
	for _, job := range l.jobs {
		stats[job.Status]++
	}
	stats["total"] = len(l.jobs)
	return stats
}

func (l *JobLedger) update(id string, fn func(job *JobRecord)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, exists := l.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	fn(job)
	job.UpdatedAt = time.Now()

	return l.save()
}

func (l *JobLedger) save() error {
	if l.filename == "" {
		return nil
	}

	data, err := json.MarshalIndent(l.jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job ledger: %w", err)
	}

	if dir := filepath.Dir(l.filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tmpFile := l.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write job ledger: %w", err)
	}

	return os.Rename(tmpFile, l.filename)
}

func (l *JobLedger) Load() error {
	data, err := os.ReadFile(l.filename)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return json.Unmarshal(data, &l.jobs)
}
