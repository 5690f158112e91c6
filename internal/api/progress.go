package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snarg/meetscribe/internal/jobs"
)

// JobReader returns job snapshots.
type JobReader interface {
	Get(id string) (jobs.Job, error)
}

// ProgressResponse is the body of GET /progress/{task_id}. Error and Result
// are null unless set; Result is only filled for a completed job at 100.
type ProgressResponse struct {
	Progress int                 `json:"progress"`
	Status   jobs.Status         `json:"status"`
	Error    *string             `json:"error"`
	Result   *jobs.MeetingResult `json:"result"`
}

type ProgressHandler struct {
	jobs JobReader
}

func NewProgressHandler(jobs JobReader) *ProgressHandler {
	return &ProgressHandler{jobs: jobs}
}

func (h *ProgressHandler) Routes(r chi.Router) {
	r.Get("/progress/{taskID}", h.Get)
}

// Get handles GET /progress/{taskID}.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "taskID"))
	if errors.Is(err, jobs.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, progressResponse(job))
}

func progressResponse(job jobs.Job) ProgressResponse {
	resp := ProgressResponse{Progress: job.Progress, Status: job.Status}
	if job.Error != "" {
		msg := job.Error
		resp.Error = &msg
	}
	if job.Status == jobs.StatusCompleted && job.Progress == 100 && job.Result != nil {
		resp.Result = job.Result
	}
	return resp
}
