// Package ingest submits recordings dropped into a watched folder, as an
// alternative to uploading them over HTTP.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a file must stay quiet before it is picked up.
const DefaultDebounce = time.Second

var audioExts = map[string]bool{
	".aac": true, ".flac": true, ".m4a": true, ".mp3": true, ".mp4": true,
	".mpeg": true, ".mpga": true, ".oga": true, ".ogg": true, ".opus": true,
	".wav": true, ".webm": true,
}

// Adopter moves a file into the upload spool and returns its new path.
type Adopter interface {
	Adopt(src string) (string, error)
}

// Submitter queues a spooled file for processing.
type Submitter interface {
	Submit(audioPath, filename string) (string, error)
}

// Options configures a FolderWatcher.
type Options struct {
	Dir       string
	Spool     Adopter
	Submitter Submitter
	Debounce  time.Duration // zero uses DefaultDebounce
	Log       zerolog.Logger
}

// FolderWatcher watches a directory tree for new audio files. Each file is
// moved into the spool and submitted as a job, so the watched folder empties
// as recordings are accepted.
type FolderWatcher struct {
	dir       string
	spool     Adopter
	submitter Submitter
	debounce  time.Duration
	log       zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	// Stats
	filesSubmitted atomic.Int64
	filesFailed    atomic.Int64
	status         atomic.Value // string: "starting", "watching", "stopped"
}

// NewFolderWatcher creates a watcher. Call Start to begin watching.
func NewFolderWatcher(opts Options) *FolderWatcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fw := &FolderWatcher{
		dir:            opts.Dir,
		spool:          opts.Spool,
		submitter:      opts.Submitter,
		debounce:       opts.Debounce,
		log:            opts.Log.With().Str("component", "watcher").Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
	fw.status.Store("starting")
	return fw
}

// Start adds every directory under the watch dir to fsnotify, queues audio
// files already present, and begins watching for new ones.
func (fw *FolderWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(fw.dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	fw.watcher = w
	fw.ctx, fw.cancel = context.WithCancel(ctx)
	fw.done = make(chan struct{})

	dirCount, existing := 0, 0
	err = filepath.WalkDir(fw.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fw.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil // continue walking
		}
		if d.IsDir() {
			if addErr := w.Add(path); addErr != nil {
				fw.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
			return nil
		}
		if isAudioFile(path) {
			fw.scheduleProcess(path)
			existing++
		}
		return nil
	})
	if err != nil {
		w.Close()
		fw.cancel()
		return err
	}

	fw.log.Info().
		Int("directories", dirCount).
		Int("existing_files", existing).
		Str("watch_dir", fw.dir).
		Msg("folder watcher initialized")

	go fw.watchLoop()
	fw.status.Store("watching")
	return nil
}

// Stop closes the fsnotify watcher and drops pending debounced files.
func (fw *FolderWatcher) Stop() {
	fw.status.Store("stopped")
	if fw.cancel != nil {
		fw.cancel()
	}
	if fw.watcher != nil {
		fw.watcher.Close()
		<-fw.done
	}

	fw.debounceMu.Lock()
	for path, t := range fw.debounceTimers {
		t.Stop()
		delete(fw.debounceTimers, path)
	}
	fw.debounceMu.Unlock()

	fw.log.Info().
		Int64("files_submitted", fw.filesSubmitted.Load()).
		Int64("files_failed", fw.filesFailed.Load()).
		Msg("folder watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (fw *FolderWatcher) Status() string {
	s, _ := fw.status.Load().(string)
	return s
}

// Submitted returns the number of files turned into jobs.
func (fw *FolderWatcher) Submitted() int64 { return fw.filesSubmitted.Load() }

func (fw *FolderWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// New subdirectory: watch it too.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := fw.watcher.Add(event.Name); err != nil {
					fw.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
				} else {
					fw.log.Debug().Str("path", event.Name).Msg("watching new directory")
				}
				continue
			}

			if !isAudioFile(event.Name) {
				continue
			}

			fw.scheduleProcess(event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess waits until path has had no events for the debounce
// interval, so a file still being copied in is not picked up half written.
func (fw *FolderWatcher) scheduleProcess(path string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if t, ok := fw.debounceTimers[path]; ok {
		t.Reset(fw.debounce)
		return
	}

	fw.debounceTimers[path] = time.AfterFunc(fw.debounce, func() {
		fw.debounceMu.Lock()
		delete(fw.debounceTimers, path)
		fw.debounceMu.Unlock()

		if fw.ctx.Err() != nil {
			return
		}
		fw.processFile(path)
	})
}

func (fw *FolderWatcher) processFile(path string) {
	log := fw.log.With().Str("path", path).Logger()

	if _, err := os.Stat(path); err != nil {
		// Moved or deleted before the debounce fired.
		return
	}

	spooled, err := fw.spool.Adopt(path)
	if err != nil {
		fw.filesFailed.Add(1)
		log.Warn().Err(err).Msg("failed to move file into spool")
		return
	}

	id, err := fw.submitter.Submit(spooled, filepath.Base(path))
	if err != nil {
		fw.filesFailed.Add(1)
		log.Warn().Err(err).Msg("failed to submit watched file")
		return
	}

	fw.filesSubmitted.Add(1)
	log.Info().Str("job_id", id).Msg("watched file submitted")
}

// isAudioFile skips hidden and partial files and anything without a known
// audio extension.
func isAudioFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") {
		return false
	}
	return audioExts[strings.ToLower(filepath.Ext(base))]
}
