package api

import (
	"net/http"
	"time"
)

// ConnectionChecker reports whether an optional broker link is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// StatusReporter reports a short status word for an optional component.
type StatusReporter interface {
	Status() string
}

// JobCounter reports tracked jobs by status.
type JobCounter interface {
	Counts() map[string]int
}

// HealthOptions describes the components the health check reports on.
// Nil interfaces mean the component is not configured.
type HealthOptions struct {
	Jobs               JobCounter
	TranscribeProvider string
	LLMConfigured      bool
	MQTT               ConnectionChecker
	Watcher            StatusReporter
	Archive            bool
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Jobs          map[string]int    `json:"jobs,omitempty"`
}

type HealthHandler struct {
	opts      HealthOptions
	version   string
	startTime time.Time
}

func NewHealthHandler(opts HealthOptions, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		opts:      opts,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Transcription is the only collaborator a job cannot complete without
	if h.opts.TranscribeProvider != "" {
		checks["transcription"] = h.opts.TranscribeProvider
	} else {
		checks["transcription"] = "not_configured"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	// Without a model key jobs still complete with fallback insights
	if h.opts.LLMConfigured {
		checks["llm"] = "ok"
	} else {
		checks["llm"] = "not_configured"
		if status == "healthy" {
			status = "degraded"
		}
	}

	if h.opts.MQTT != nil {
		if h.opts.MQTT.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	if h.opts.Watcher != nil {
		checks["file_watcher"] = h.opts.Watcher.Status()
	}

	if h.opts.Archive {
		checks["archive"] = "ok"
	} else {
		checks["archive"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}
	if h.opts.Jobs != nil {
		resp.Jobs = h.opts.Jobs.Counts()
	}

	WriteJSON(w, httpStatus, resp)
}
