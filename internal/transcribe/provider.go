package transcribe

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "deepinfra"
	Model() string // model identifier for logs and health
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
}

// TranscribeOpts are per-request options. Zero values are left to the server.
type TranscribeOpts struct {
	Temperature float64
	Language    string
	Prompt      string // initial_prompt / domain vocabulary
}

// ProviderOptions selects and configures a Provider.
type ProviderOptions struct {
	Provider     string // "whisper" (default) or "deepinfra"
	WhisperURL   string
	Model        string
	DeepInfraKey string
	Timeout      time.Duration
}

// NewProvider builds the configured speech-to-text backend.
func NewProvider(opts ProviderOptions) (Provider, error) {
	switch opts.Provider {
	case "", "whisper":
		if opts.WhisperURL == "" {
			return nil, fmt.Errorf("whisper provider requires WHISPER_URL")
		}
		return NewWhisperClient(opts.WhisperURL, opts.Model, opts.Timeout), nil
	case "deepinfra":
		if opts.DeepInfraKey == "" {
			return nil, fmt.Errorf("deepinfra provider requires DEEPINFRA_API_KEY")
		}
		return NewDeepInfraClient(opts.DeepInfraKey, opts.Model, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", opts.Provider)
	}
}
