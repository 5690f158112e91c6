package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/export"
	"github.com/snarg/meetscribe/internal/jobs"
	"github.com/snarg/meetscribe/internal/metrics"
)

// ResultReader returns the most recently completed meeting result.
type ResultReader interface {
	Get() (jobs.MeetingResult, bool)
}

type ExportHandler struct {
	results ResultReader
	log     zerolog.Logger
}

func NewExportHandler(results ResultReader, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		results: results,
		log:     log.With().Str("handler", "export").Logger(),
	}
}

func (h *ExportHandler) Routes(r chi.Router) {
	r.Get("/export/{format}", h.Export)
}

// Export handles GET /export/{format} for json, markdown and pdf. The
// document is rendered in memory so a failure still yields a JSON error.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.Lookup(chi.URLParam(r, "format"))
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	result, ok := h.results.Get()
	if !ok {
		WriteError(w, http.StatusNotFound, "No meeting processed yet.")
		return
	}

	var buf bytes.Buffer
	if err := format.Render(&buf, result); err != nil {
		h.log.Error().Err(err).Str("format", format.Name).Msg("export render failed")
		WriteError(w, http.StatusInternalServerError, "failed to render export")
		return
	}
	metrics.ExportsTotal.WithLabelValues(format.Name).Inc()

	w.Header().Set("Content-Type", format.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
