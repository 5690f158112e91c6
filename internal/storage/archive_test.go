package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/jobs"
)

type memSaver struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
	block   chan struct{}
}

func (m *memSaver) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
		m.types = make(map[string]string)
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func TestResultArchive_UploadsJSON(t *testing.T) {
	saver := &memSaver{}
	a := NewResultArchive(saver, 4, zerolog.Nop())
	a.Start(1)

	res := jobs.MeetingResult{Transcript: "t", KeyPoints: []string{"k"}, Summary: "s"}
	if err := a.Archive(context.Background(), "job-1", res); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	a.Stop()

	data, ok := saver.objects["job-1.json"]
	if !ok {
		t.Fatalf("object not uploaded: %v", saver.objects)
	}
	if saver.types["job-1.json"] != "application/json" {
		t.Errorf("content type = %q", saver.types["job-1.json"])
	}
	var got jobs.MeetingResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Transcript != "t" || got.Summary != "s" || len(got.KeyPoints) != 1 || got.ActionItems == nil {
		t.Errorf("archived = %+v", got)
	}
	if a.archived.Load() != 1 {
		t.Errorf("archived = %d, want 1", a.archived.Load())
	}
}

func TestResultArchive_QueueFull(t *testing.T) {
	a := NewResultArchive(&memSaver{}, 1, zerolog.Nop()) // not started: nothing drains

	if err := a.Archive(context.Background(), "a", jobs.MeetingResult{}); err != nil {
		t.Fatalf("first Archive: %v", err)
	}
	if err := a.Archive(context.Background(), "b", jobs.MeetingResult{}); err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestResultArchive_AfterStop(t *testing.T) {
	a := NewResultArchive(&memSaver{}, 4, zerolog.Nop())
	a.Start(1)
	a.Stop()
	if err := a.Archive(context.Background(), "a", jobs.MeetingResult{}); err == nil {
		t.Error("expected error after Stop")
	}
}

func TestResultArchive_ConcurrentArchiveAndStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		a := NewResultArchive(&memSaver{}, 8, zerolog.Nop())
		a.Start(1)

		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					// Errors are expected once stopped; a panic fails the test.
					_ = a.Archive(context.Background(), "job", jobs.MeetingResult{Summary: "s"})
				}
			}()
		}
		a.Stop()
		wg.Wait()
		a.Stop()
	}
}

func TestResultArchive_SaveFailureCounted(t *testing.T) {
	a := NewResultArchive(&memSaver{err: errors.New("denied")}, 4, zerolog.Nop())
	a.Start(2)
	a.Archive(context.Background(), "a", jobs.MeetingResult{})
	a.Stop()
	if a.failed.Load() != 1 {
		t.Errorf("failed = %d, want 1", a.failed.Load())
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("", "j.json"); got != "results/j.json" {
		t.Errorf("ObjectKey no prefix = %q", got)
	}
	if got := ObjectKey("team-a", "j.json"); got != "team-a/results/j.json" {
		t.Errorf("ObjectKey with prefix = %q", got)
	}
}
