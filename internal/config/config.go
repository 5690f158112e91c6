package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  string        `env:"CORS_ORIGINS"` // comma-separated; empty allows all
	AuthToken    string        `env:"AUTH_TOKEN"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	UploadDir   string `env:"UPLOAD_DIR"` // empty = os.TempDir()
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" envDefault:"200"`
	WatchDir    string `env:"WATCH_DIR"`

	TranscribeProvider string        `env:"TRANSCRIBE_PROVIDER" envDefault:"whisper"`
	WhisperURL         string        `env:"WHISPER_URL" envDefault:"http://localhost:9000/v1/audio/transcriptions"`
	WhisperModel       string        `env:"WHISPER_MODEL"` // empty = server default
	WhisperLanguage    string        `env:"WHISPER_LANGUAGE"`
	WhisperTimeout     time.Duration `env:"WHISPER_TIMEOUT" envDefault:"30m"`
	DeepInfraKey       string        `env:"DEEPINFRA_API_KEY"`
	PreprocessAudio    bool          `env:"PREPROCESS_AUDIO" envDefault:"false"`

	GoogleAPIKey    string        `env:"GOOGLE_API_KEY"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"gemini-1.5-pro-latest"`
	LLMBaseURL      string        `env:"LLM_BASE_URL"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"2m"`
	TranscriptLimit int           `env:"LLM_TRANSCRIPT_LIMIT" envDefault:"500"`

	TranscribeTick time.Duration `env:"TRANSCRIBE_TICK" envDefault:"180ms"`
	AnalyzeTick    time.Duration `env:"ANALYZE_TICK" envDefault:"130ms"`

	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" envDefault:"meetscribe"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"meetscribe"`
	MQTTUsername    string `env:"MQTT_USERNAME"`
	MQTTPassword    string `env:"MQTT_PASSWORD"`

	S3 S3Config `envPrefix:"S3_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// S3Config configures the optional archive of completed results.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// AllowedOrigins splits CORSOrigins. Nil means every origin is allowed.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	HTTPAddr  string
	LogLevel  string
	UploadDir string
	WatchDir  string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.UploadDir != "" {
		cfg.UploadDir = overrides.UploadDir
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}

	return cfg, nil
}
