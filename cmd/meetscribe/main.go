package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/api"
	"github.com/snarg/meetscribe/internal/config"
	"github.com/snarg/meetscribe/internal/ingest"
	"github.com/snarg/meetscribe/internal/jobs"
	"github.com/snarg/meetscribe/internal/llm"
	"github.com/snarg/meetscribe/internal/metrics"
	"github.com/snarg/meetscribe/internal/mqttclient"
	"github.com/snarg/meetscribe/internal/storage"
	"github.com/snarg/meetscribe/internal/transcribe"
)

var version = "dev"

type cliOptions struct {
	EnvFile   string `long:"env-file" description:"Path to .env file" default:".env"`
	Listen    string `short:"l" long:"listen" description:"HTTP listen address (overrides HTTP_ADDR)"`
	LogLevel  string `long:"log-level" description:"Log level: debug, info, warn, error (overrides LOG_LEVEL)"`
	UploadDir string `long:"upload-dir" description:"Directory for spooled uploads (overrides UPLOAD_DIR)"`
	WatchDir  string `long:"watch-dir" description:"Folder to watch for new recordings (overrides WATCH_DIR)"`
	Version   bool   `short:"v" long:"version" description:"Print version and exit"`
}

func main() {
	startTime := time.Now()

	var opts cliOptions
	if _, err := flags.ParseArgs(&opts, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.Version {
		fmt.Println(version)
		return
	}

	// Config
	cfg, err := config.Load(config.Overrides{
		EnvFile:   opts.EnvFile,
		HTTPAddr:  opts.Listen,
		LogLevel:  opts.LogLevel,
		UploadDir: opts.UploadDir,
		WatchDir:  opts.WatchDir,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("meetscribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Upload spool
	spool, err := storage.NewSpool(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upload spool")
	}

	// Speech-to-text
	provider, err := transcribe.NewProvider(transcribe.ProviderOptions{
		Provider:     cfg.TranscribeProvider,
		WhisperURL:   cfg.WhisperURL,
		Model:        cfg.WhisperModel,
		DeepInfraKey: cfg.DeepInfraKey,
		Timeout:      cfg.WhisperTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure transcription provider")
	}
	if cfg.PreprocessAudio {
		if !transcribe.CheckSox() {
			log.Warn().Msg("sox not found in PATH, audio preprocessing disabled")
			cfg.PreprocessAudio = false
		}
	}
	log.Info().
		Str("provider", provider.Name()).
		Str("model", provider.Model()).
		Bool("preprocess", cfg.PreprocessAudio).
		Msg("transcription configured")

	// Language model
	gemini := llm.NewGeminiClient(cfg.GoogleAPIKey, cfg.LLMModel, cfg.LLMBaseURL, cfg.LLMTimeout)
	if !gemini.Configured() {
		log.Warn().Msg("GOOGLE_API_KEY not set, meetings will get placeholder insights")
	}

	runnerOpts := jobs.RunnerOptions{
		Store:           jobs.NewStore(),
		Results:         jobs.NewResultCache(),
		Transcriber:     provider,
		Generator:       gemini,
		TranscribeOpts:  transcribe.TranscribeOpts{Language: cfg.WhisperLanguage},
		PreprocessAudio: cfg.PreprocessAudio,
		TranscriptLimit: cfg.TranscriptLimit,
		TranscribeTick:  cfg.TranscribeTick,
		AnalyzeTick:     cfg.AnalyzeTick,
		Log:             log.With().Str("component", "runner").Logger(),
	}
	health := api.HealthOptions{
		TranscribeProvider: provider.Name(),
		LLMConfigured:      gemini.Configured(),
	}

	// MQTT status events (optional)
	var mqtt *mqttclient.Client
	if cfg.MQTTBrokerURL != "" {
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			Log:         log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
		runnerOpts.PublishEvent = mqtt.PublishEvent
		health.MQTT = mqtt
	}

	// S3 result archive (optional)
	archive, err := storage.NewArchive(cfg.S3, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize result archive")
	}
	if archive != nil {
		archive.Start(2)
		defer archive.Stop()
		runnerOpts.Archive = archive
		health.Archive = true
	}

	runner := jobs.NewRunner(runnerOpts)
	dispatcher := jobs.NewDispatcher(runner, log.With().Str("component", "dispatcher").Logger())
	health.Jobs = dispatcher.Store()
	prometheus.MustRegister(metrics.NewCollector(dispatcher.Store(), dispatcher.Results()))

	// Watch folder (optional)
	if cfg.WatchDir != "" {
		watcher := ingest.NewFolderWatcher(ingest.Options{
			Dir:       cfg.WatchDir,
			Spool:     spool,
			Submitter: dispatcher,
			Log:       log,
		})
		if err := watcher.Start(ctx); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.WatchDir).Msg("failed to start folder watcher")
		}
		defer watcher.Stop()
		health.Watcher = watcher
	}

	// HTTP Server
	srv := api.NewServer(api.ServerOptions{
		Config:    cfg,
		Submitter: dispatcher,
		Jobs:      dispatcher.Store(),
		Results:   dispatcher.Results(),
		Spool:     spool,
		Health:    health,
		Version:   version,
		StartTime: startTime,
		Log:       log.With().Str("component", "http").Logger(),
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("jobs still running at shutdown were cancelled")
	}

	log.Info().Msg("meetscribe stopped")
}
