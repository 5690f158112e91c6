package jobs

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateJob is returned when creating a job id that already exists.
	ErrDuplicateJob = errors.New("duplicate job id")
)

// Update is a partial change to a job. Nil fields are left untouched.
type Update struct {
	Progress *int
	Status   *Status
	Result   *MeetingResult
	Error    *string
}

// Store is the in-memory registry of jobs for the lifetime of the process.
// Readers always receive copies, so a poller never sees a half-applied update.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create inserts a new queued job with zero progress.
func (s *Store) Create(id, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return ErrDuplicateJob
	}
	now := s.now()
	s.jobs[id] = &Job{
		ID:        id,
		Filename:  filename,
		Progress:  0,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get returns a snapshot of the job or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job.clone(), nil
}

// Update applies a partial update. It reports false, and changes nothing,
// when the job does not exist. Progress never moves backwards and is
// clamped to [0,100].
func (s *Store) Update(id string, u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	if u.Progress != nil {
		p := min(max(*u.Progress, 0), 100)
		if p > job.Progress {
			job.Progress = p
		}
	}
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Result != nil {
		r := u.Result.Clone()
		job.Result = &r
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	job.UpdatedAt = s.now()
	return true
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Counts returns the number of jobs per status.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{
		string(StatusQueued):       0,
		string(StatusTranscribing): 0,
		string(StatusAnalyzing):    0,
		string(StatusCompleted):    0,
		string(StatusError):        0,
	}
	for _, job := range s.jobs {
		counts[string(job.Status)]++
	}
	return counts
}
