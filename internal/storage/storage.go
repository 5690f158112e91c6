package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/config"
)

// NewArchive creates the S3 result archive when a bucket is configured.
// Returns nil without error when S3 is disabled, and an error if it is
// configured but unreachable.
func NewArchive(cfg config.S3Config, log zerolog.Logger) (*ResultArchive, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return NewResultArchive(s3store, 64, log), nil
}
