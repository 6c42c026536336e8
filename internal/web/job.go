package web

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inboxlens/inboxlens/internal/ingest"
)

// JobStatus represents the status of a background sync
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusError     JobStatus = "error"
)

// Job is one background mailbox sync.
type Job struct {
	ID          string
	Status      JobStatus
	Report      ingest.Report
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string

	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// JobSnapshot is a consistent copy of a job for serialization.
type JobSnapshot struct {
	ID          string        `json:"id"`
	Status      JobStatus     `json:"status"`
	Report      ingest.Report `json:"report"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Update records the running totals.
func (j *Job) Update(r ingest.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Report = r
}

// Complete marks the job as completed
func (j *Job) Complete(r ingest.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusCompleted
	j.Report = r
	j.CompletedAt = time.Now()
}

// StopWithError stops the job due to an error
func (j *Job) StopWithError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusError
	j.CompletedAt = time.Now()
	j.Error = err.Error()
}

// Cancel cancels the job
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
		j.CompletedAt = time.Now()
		if j.cancelFunc != nil {
			j.cancelFunc()
		}
	}
}

// IsRunning returns true until the job completes, fails or is cancelled.
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == JobStatusRunning
}

// Context returns the job's context
func (j *Job) Context() context.Context {
	return j.ctx
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Report:    j.Report,
		StartedAt: j.StartedAt,
		Error:     j.Error,
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		snap.CompletedAt = &completed
	}
	return snap
}

// JobManager manages background jobs
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// Start creates a running job unless one is already running, in which case
// that job is returned with started=false.
func (jm *JobManager) Start() (job *Job, started bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for _, j := range jm.jobs {
		if j.IsRunning() {
			return j, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job = &Job{
		ID:         uuid.New().String(),
		Status:     JobStatusRunning,
		StartedAt:  time.Now(),
		ctx:        ctx,
		cancelFunc: cancel,
	}

	jm.jobs[job.ID] = job
	return job, true
}

// Get returns a job by ID, or nil if not found
func (jm *JobManager) Get(id string) *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	return jm.jobs[id]
}

// GetActive returns the currently running job, or nil if none
func (jm *JobManager) GetActive() *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	for _, job := range jm.jobs {
		if job.IsRunning() {
			return job
		}
	}
	return nil
}

// Cleanup removes finished jobs older than maxAge.
func (jm *JobManager) Cleanup(maxAge time.Duration) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range jm.jobs {
		snap := job.Snapshot()
		if snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
			delete(jm.jobs, id)
		}
	}
}

// JobPersistence keeps the outcome of the last finished sync across restarts.
type JobPersistence struct {
	dataDir string
}

func NewJobPersistence(dataDir string) *JobPersistence {
	return &JobPersistence{dataDir: dataDir}
}

func (jp *JobPersistence) filePath() string {
	return filepath.Join(jp.dataDir, "last_sync.json")
}

func (jp *JobPersistence) Save(snap JobSnapshot) error {
	if err := os.MkdirAll(jp.dataDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(jp.filePath(), data, 0600)
}

// Load returns the last saved sync, or nil if none exists.
func (jp *JobPersistence) Load() (*JobSnapshot, error) {
	data, err := os.ReadFile(jp.filePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}
