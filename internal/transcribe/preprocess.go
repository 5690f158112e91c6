package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var (
	soxOnce      sync.Once
	soxAvailable bool
)

// CheckSox reports whether sox is in PATH. The lookup runs once.
func CheckSox() bool {
	soxOnce.Do(func() {
		_, err := exec.LookPath("sox")
		soxAvailable = err == nil
	})
	return soxAvailable
}

// Preprocess converts a meeting recording into what Whisper models prefer:
// 16kHz mono, low-frequency rumble removed, normalized volume.
//
// Returns the path to a temporary WAV file and a cleanup function.
// If sox is unavailable, returns the original path with a no-op cleanup.
func Preprocess(ctx context.Context, inputPath string) (string, func(), error) {
	noop := func() {}

	if !CheckSox() {
		return inputPath, noop, nil
	}

	tmp, err := os.CreateTemp("", "meetscribe-preprocess-*.wav")
	if err != nil {
		return inputPath, noop, fmt.Errorf("create temp: %w", err)
	}
	outPath := tmp.Name()
	tmp.Close()

	cmd := exec.CommandContext(ctx, "sox",
		inputPath, outPath,
		"rate", "16000",
		"channels", "1",
		"highpass", "80",
		"norm",
	)
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return inputPath, noop, fmt.Errorf("sox preprocess: %w", err)
	}

	cleanup := func() {
		os.Remove(outPath)
	}
	return outPath, cleanup, nil
}
