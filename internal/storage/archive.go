package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/jobs"
)

// ObjectSaver is the subset of S3Store the archive needs.
type ObjectSaver interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// ResultArchive uploads completed meeting results in the background so a
// slow object store never holds up a job.
type ResultArchive struct {
	store    ObjectSaver
	ch       chan archiveJob
	log      zerolog.Logger
	wg       sync.WaitGroup

	// mu guards stopped and ch so a send never races the close in Stop.
	mu      sync.RWMutex
	stopped bool

	archived atomic.Int64
	failed   atomic.Int64
}

type archiveJob struct {
	key  string
	data []byte
}

// NewResultArchive creates an archive with the given queue size.
func NewResultArchive(store ObjectSaver, bufferSize int, log zerolog.Logger) *ResultArchive {
	return &ResultArchive{
		store: store,
		ch:    make(chan archiveJob, bufferSize),
		log:   log.With().Str("component", "result-archive").Logger(),
	}
}

// Archive queues result for upload as {job_id}.json. It never blocks: when
// the queue is full or the archive is stopped the result is skipped and an
// error returned for the caller to log.
func (a *ResultArchive) Archive(ctx context.Context, jobID string, result jobs.MeetingResult) error {
	data, err := json.MarshalIndent(result.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		return fmt.Errorf("archive stopped")
	}
	select {
	case a.ch <- archiveJob{key: jobID + ".json", data: data}:
		return nil
	default:
		return fmt.Errorf("archive queue full, skipping %s", jobID)
	}
}

// Start launches worker goroutines.
func (a *ResultArchive) Start(workers int) {
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	a.log.Info().Int("workers", workers).Int("buffer", cap(a.ch)).Msg("result archive started")
}

// Stop drains queued uploads and waits for the workers.
func (a *ResultArchive) Stop() {
	a.mu.Lock()
	if !a.stopped {
		a.stopped = true
		close(a.ch)
	}
	a.mu.Unlock()
	a.wg.Wait()
	a.log.Info().
		Int64("archived", a.archived.Load()).
		Int64("failed", a.failed.Load()).
		Msg("result archive stopped")
}

func (a *ResultArchive) worker() {
	defer a.wg.Done()
	for job := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.store.Save(ctx, job.key, job.data, "application/json"); err != nil {
			a.failed.Add(1)
			a.log.Error().Err(err).Str("key", job.key).Msg("result upload failed")
		} else {
			a.archived.Add(1)
		}
		cancel()
	}
}
