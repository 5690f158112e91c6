package jobs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/metrics"
)

// Dispatcher owns the job registry and the last-result cache for the life of
// the process and starts one goroutine per submitted upload. Jobs cannot be
// cancelled once started.
type Dispatcher struct {
	store   *Store
	results *ResultCache
	runner  *Runner
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	inFlight atomic.Int64
	newID    func() string
}

// NewDispatcher creates a dispatcher around the runner's store and cache.
func NewDispatcher(runner *Runner, log zerolog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:   runner.opts.Store,
		results: runner.opts.Results,
		runner:  runner,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		newID:   uuid.NewString,
	}
}

// Store returns the job registry.
func (d *Dispatcher) Store() *Store { return d.store }

// Results returns the last-result cache.
func (d *Dispatcher) Results() *ResultCache { return d.results }

// InFlight returns the number of jobs still running.
func (d *Dispatcher) InFlight() int64 { return d.inFlight.Load() }

// Submit registers a queued job for the spooled file at audioPath and starts
// processing it in the background. It returns the new job id immediately.
// The dispatcher takes ownership of audioPath: it is removed when the job
// ends, or right away if the job cannot be registered.
func (d *Dispatcher) Submit(audioPath, filename string) (string, error) {
	id := d.newID()
	if err := d.store.Create(id, filename); err != nil {
		os.Remove(audioPath)
		return "", fmt.Errorf("create job %s: %w", id, err)
	}
	metrics.JobsSubmittedTotal.Inc()

	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		d.runner.Run(d.ctx, Submission{JobID: id, AudioPath: audioPath, Filename: filename})
	}()

	d.log.Info().Str("job_id", id).Str("filename", filename).Msg("job submitted")
	return id, nil
}

// Wait blocks until every submitted job has finished or ctx is done. When
// ctx expires first, in-flight collaborator calls are cancelled and the jobs
// end in the Error state.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn().Int64("in_flight", d.inFlight.Load()).Msg("shutdown deadline reached, cancelling jobs")
		d.cancel()
		<-done
		return ctx.Err()
	}
}
