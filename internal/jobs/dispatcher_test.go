package jobs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestDispatcher(tr *fakeTranscriber, gen *fakeGenerator) *Dispatcher {
	r, _, _ := newTestRunner(tr, gen)
	return NewDispatcher(r, zerolog.Nop())
}

func waitTerminal(t *testing.T, s *Store, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestDispatcher_SubmitReturnsImmediately(t *testing.T) {
	tr := &fakeTranscriber{text: "hi", release: make(chan struct{})}
	d := newTestDispatcher(tr, &fakeGenerator{reply: `{"summary":"s"}`})
	path := spoolFile(t)

	id, err := d.Submit(path, "meeting.m4a")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("empty job id")
	}

	job, err := d.Store().Get(id)
	if err != nil {
		t.Fatalf("job should exist right after Submit: %v", err)
	}
	if job.Status.Terminal() {
		t.Errorf("job finished while transcriber is blocked: %+v", job)
	}
	if job.Filename != "meeting.m4a" {
		t.Errorf("Filename = %q", job.Filename)
	}

	close(tr.release)
	job = waitTerminal(t, d.Store(), id)
	if job.Status != StatusCompleted {
		t.Errorf("Status = %q", job.Status)
	}
	if err := d.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}
	if d.InFlight() != 0 {
		t.Errorf("InFlight = %d, want 0", d.InFlight())
	}
	assertRemoved(t, path)
}

func TestDispatcher_UniqueIDs(t *testing.T) {
	d := newTestDispatcher(&fakeTranscriber{text: "hi"}, &fakeGenerator{reply: "{}"})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := d.Submit(spoolFile(t), "")
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	d.Wait(context.Background())
}

func TestDispatcher_DuplicateIDRemovesFile(t *testing.T) {
	d := newTestDispatcher(&fakeTranscriber{text: "hi"}, &fakeGenerator{reply: "{}"})
	d.newID = func() string { return "fixed" }

	if _, err := d.Submit(spoolFile(t), ""); err != nil {
		t.Fatal(err)
	}
	path := spoolFile(t)
	_, err := d.Submit(path, "")
	if !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("err = %v, want ErrDuplicateJob", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("rejected upload should be removed")
	}
	d.Wait(context.Background())
}

func TestDispatcher_WaitDeadlineCancelsJobs(t *testing.T) {
	tr := &fakeTranscriber{text: "hi", release: make(chan struct{})}
	d := newTestDispatcher(tr, &fakeGenerator{})
	path := spoolFile(t)
	id, _ := d.Submit(path, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait err = %v, want deadline exceeded", err)
	}

	job, _ := d.Store().Get(id)
	if job.Status != StatusError {
		t.Errorf("Status = %q, want Error after cancellation", job.Status)
	}
	assertRemoved(t, path)
}

func TestDispatcher_WaitDeadlineCancelsAnalysis(t *testing.T) {
	d := newTestDispatcher(&fakeTranscriber{text: "hi"}, &fakeGenerator{block: true})
	path := spoolFile(t)
	id, _ := d.Submit(path, "")

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, _ := d.Store().Get(id)
		if job.Status == StatusAnalyzing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached analysis, status %q", job.Status)
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait err = %v, want deadline exceeded", err)
	}

	job, _ := d.Store().Get(id)
	if job.Status != StatusError {
		t.Errorf("Status = %q, want Error after cancellation", job.Status)
	}
	if job.Result != nil {
		t.Errorf("cancelled job carries result %+v", job.Result)
	}
	if d.Results().HasResult() {
		t.Error("cancelled job populated the result cache")
	}
	assertRemoved(t, path)
}

// Two overlapping jobs: the cache ends up holding whichever finished last in
// wall-clock time, not whichever was submitted last.
func TestDispatcher_ResultCacheFollowsCompletionOrder(t *testing.T) {
	slow := &fakeTranscriber{text: "submitted first, finishes last", delay: 60 * time.Millisecond}
	fast := &fakeTranscriber{text: "submitted second, finishes first"}

	store := NewStore()
	results := NewResultCache()
	mk := func(tr *fakeTranscriber) *Dispatcher {
		r := NewRunner(RunnerOptions{
			Store:       store,
			Results:     results,
			Transcriber: tr,
			Generator:   &fakeGenerator{reply: `{"summary":"s"}`},
			Log:         zerolog.Nop(),
		})
		return NewDispatcher(r, zerolog.Nop())
	}
	d1, d2 := mk(slow), mk(fast)

	id1, _ := d1.Submit(spoolFile(t), "")
	id2, _ := d2.Submit(spoolFile(t), "")
	waitTerminal(t, store, id2)
	waitTerminal(t, store, id1)
	d1.Wait(context.Background())
	d2.Wait(context.Background())

	got, _ := results.Get()
	if got.Transcript != slow.text {
		t.Errorf("cache holds %q, want the last job to finish", got.Transcript)
	}
}
