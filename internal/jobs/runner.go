package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/llm"
	"github.com/snarg/meetscribe/internal/metrics"
	"github.com/snarg/meetscribe/internal/transcribe"
)

// ErrTranscription marks a failed speech-to-text call. It is the only
// collaborator failure that puts a job into the Error state.
var ErrTranscription = errors.New("transcription failed")

// Archiver stores completed results somewhere durable. Failures are logged
// and never affect the job outcome.
type Archiver interface {
	Archive(ctx context.Context, jobID string, result MeetingResult) error
}

// Submission is one spooled upload waiting to be processed.
type Submission struct {
	JobID     string
	AudioPath string
	Filename  string
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Store           *Store
	Results         *ResultCache
	Transcriber     transcribe.Provider
	Generator       llm.Generator
	TranscribeOpts  transcribe.TranscribeOpts
	PreprocessAudio bool
	TranscriptLimit int           // characters of transcript sent to the model
	TranscribeTick  time.Duration // interval of the simulated transcription progress
	AnalyzeTick     time.Duration // interval of the simulated analysis progress
	Archive         Archiver      // optional
	PublishEvent    EventPublishFunc
	Log             zerolog.Logger
}

// Runner drives a job through transcription and analysis exactly once.
type Runner struct {
	opts RunnerOptions
	log  zerolog.Logger
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.TranscriptLimit <= 0 {
		opts.TranscriptLimit = DefaultTranscriptLimit
	}
	return &Runner{opts: opts, log: opts.Log}
}

// outcome labels for metrics and logs.
const (
	outcomeCompleted   = "completed"
	outcomeDegraded    = "degraded"
	outcomeSummaryOnly = "summary_only"
	outcomeError       = "error"
)

// Run processes sub and records every state change in the store. The
// spooled audio file is removed on every exit path. The returned error is
// only for logging; the job record already reflects it.
func (r *Runner) Run(ctx context.Context, sub Submission) (err error) {
	log := r.log.With().Str("job_id", sub.JobID).Logger()
	start := time.Now()

	defer r.removeAudio(log, sub.AudioPath)
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("panic: %v", rv)
			log.Error().Interface("panic", rv).Msg("job panicked")
			r.fail(sub.JobID, err)
		}
	}()

	r.transition(sub.JobID, 0, StatusQueued)
	r.transition(sub.JobID, 10, StatusTranscribing)

	transcript, err := r.transcribe(ctx, log, sub)
	if err != nil {
		r.fail(sub.JobID, err)
		log.Warn().Err(err).Msg("job failed")
		return fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	r.transition(sub.JobID, 70, StatusAnalyzing)

	insights, outcome, err := r.analyze(ctx, log, sub.JobID, transcript)
	if err != nil {
		r.fail(sub.JobID, err)
		log.Warn().Err(err).Msg("job cancelled during analysis")
		return err
	}
	result := MeetingResult{
		Transcript:  transcript,
		KeyPoints:   []string(insights.KeyPoints),
		ActionItems: []string(insights.ActionItems),
		Summary:     insights.Summary,
	}
	r.complete(ctx, log, sub.JobID, result, outcome)

	log.Info().
		Str("outcome", outcome).
		Int("transcript_chars", utf8.RuneCountInString(transcript)).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return nil
}

func (r *Runner) transcribe(ctx context.Context, log zerolog.Logger, sub Submission) (string, error) {
	if r.opts.Transcriber == nil {
		return "", errors.New("no transcription provider configured")
	}

	path := sub.AudioPath
	if r.opts.PreprocessAudio {
		processed, cleanup, err := transcribe.Preprocess(ctx, path)
		if err != nil {
			log.Warn().Err(err).Msg("preprocessing failed, using original audio")
		} else {
			path = processed
			defer cleanup()
		}
	}

	var resp *transcribe.Response
	started := time.Now()
	err := r.withRamp(sub.JobID, transcribeRamp(r.opts.TranscribeTick), func() error {
		var err error
		resp, err = r.opts.Transcriber.Transcribe(ctx, path, r.opts.TranscribeOpts)
		return err
	})
	metrics.CollaboratorDuration.WithLabelValues("transcription").Observe(time.Since(started).Seconds())
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("transcription provider returned no response")
	}
	return strings.TrimSpace(resp.Text), nil
}

// analyze only fails when ctx is cancelled. Model errors yield the fixed
// fallback insights and an unparseable reply yields a summary-only result.
func (r *Runner) analyze(ctx context.Context, log zerolog.Logger, jobID, transcript string) (Insights, string, error) {
	prompt := BuildPrompt(transcript, r.opts.TranscriptLimit)

	var content string
	started := time.Now()
	err := r.withRamp(jobID, analyzeRamp(r.opts.AnalyzeTick), func() error {
		if r.opts.Generator == nil {
			return fmt.Errorf("%w: no generator configured", llm.ErrModelUnavailable)
		}
		var err error
		content, err = r.opts.Generator.Generate(ctx, prompt)
		return err
	})
	metrics.CollaboratorDuration.WithLabelValues("llm").Observe(time.Since(started).Seconds())
	// A model-side timeout still degrades; only the job's own cancellation fails it.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Insights{}, outcomeError, fmt.Errorf("analysis interrupted: %w", ctxErr)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Bool("quota", errors.Is(err, llm.ErrQuotaExceeded)).
			Msg("language model failed, using fallback insights")
		return FallbackInsights(), outcomeDegraded, nil
	}

	insights, err := ParseInsights(content)
	if err != nil {
		log.Debug().Err(err).Msg("model reply had no usable JSON, using it as summary")
		return insights, outcomeSummaryOnly, nil
	}
	return insights, outcomeCompleted, nil
}

// withRamp runs fn while a ramp advances the job's progress, and stops the
// ramp before returning so the caller is the only writer afterwards.
func (r *Runner) withRamp(jobID string, rp ramp, fn func() error) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rp.run(ctx, func(p int) {
			r.opts.Store.Update(jobID, Update{Progress: &p})
		})
	}()
	defer func() {
		cancel()
		<-done
	}()
	return fn()
}

func (r *Runner) transition(jobID string, progress int, status Status) {
	if !r.opts.Store.Update(jobID, Update{Progress: &progress, Status: &status}) {
		r.log.Debug().Str("job_id", jobID).Msg("update for unknown job ignored")
		return
	}
	r.publish(Event{JobID: jobID, Status: status, Progress: progress})
}

// fail records err on the job unless it already reached a terminal state.
// A completed job keeps its result even if later side effects panic.
func (r *Runner) fail(jobID string, err error) {
	if job, getErr := r.opts.Store.Get(jobID); getErr == nil && job.Status.Terminal() {
		r.log.Warn().Err(err).Str("job_id", jobID).Str("status", string(job.Status)).Msg("failure after terminal state ignored")
		return
	}
	status := StatusError
	msg := err.Error()
	r.opts.Store.Update(jobID, Update{Status: &status, Error: &msg})
	metrics.JobsFinishedTotal.WithLabelValues(outcomeError).Inc()

	progress := 0
	if job, getErr := r.opts.Store.Get(jobID); getErr == nil {
		progress = job.Progress
	}
	r.publish(Event{JobID: jobID, Status: status, Progress: progress, Error: msg})
}

func (r *Runner) complete(ctx context.Context, log zerolog.Logger, jobID string, result MeetingResult, outcome string) {
	progress := 100
	status := StatusCompleted
	r.opts.Store.Update(jobID, Update{Progress: &progress, Status: &status, Result: &result})
	if r.opts.Results != nil {
		r.opts.Results.Set(result)
	}
	metrics.JobsFinishedTotal.WithLabelValues(outcome).Inc()
	r.publish(Event{JobID: jobID, Status: status, Progress: progress, Degraded: outcome == outcomeDegraded})

	if r.opts.Archive != nil {
		if err := r.opts.Archive.Archive(ctx, jobID, result); err != nil {
			log.Warn().Err(err).Msg("result archive failed")
		}
	}
}

func (r *Runner) publish(ev Event) {
	if r.opts.PublishEvent == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	r.opts.PublishEvent(ev)
}

func (r *Runner) removeAudio(log zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove spooled audio")
	}
}
