package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Spooler stores an upload body on local disk and returns its path.
type Spooler interface {
	Save(r io.Reader, filename string) (string, error)
}

// JobSubmitter starts processing a spooled file and returns the job id.
type JobSubmitter interface {
	Submit(audioPath, filename string) (string, error)
}

// UploadResponse is returned by POST /upload-audio/.
type UploadResponse struct {
	TaskID string `json:"task_id"`
}

// UploadHandler accepts meeting recordings.
type UploadHandler struct {
	spool     Spooler
	submitter JobSubmitter
	maxBytes  int64
	log       zerolog.Logger
}

// NewUploadHandler creates a new upload handler. maxBytes <= 0 disables the
// size limit.
func NewUploadHandler(spool Spooler, submitter JobSubmitter, maxBytes int64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		spool:     spool,
		submitter: submitter,
		maxBytes:  maxBytes,
		log:       log.With().Str("handler", "upload").Logger(),
	}
}

// Routes registers the upload endpoint, with and without the trailing slash.
func (h *UploadHandler) Routes(r chi.Router) {
	r.Post("/upload-audio/", h.Upload)
	r.Post("/upload-audio", h.Upload)
}

// Upload handles POST /upload-audio/. The multipart field "file" carries the
// recording. The response returns as soon as the job is queued.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	path, err := h.spool.Save(file, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("failed to spool upload")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	id, err := h.submitter.Submit(path, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("failed to submit job")
		WriteError(w, http.StatusInternalServerError, "failed to start processing")
		return
	}

	WriteJSON(w, http.StatusOK, UploadResponse{TaskID: id})
}
