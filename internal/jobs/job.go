package jobs

import "time"

// Status is the lifecycle stage of a job. Values are the strings reported
// to pollers.
type Status string

const (
	StatusQueued       Status = "Queued"
	StatusTranscribing Status = "Transcribing"
	StatusAnalyzing    Status = "Analyzing with LLM"
	StatusCompleted    Status = "Completed"
	StatusError        Status = "Error"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// MeetingResult is the terminal payload of a completed job.
type MeetingResult struct {
	Transcript  string   `json:"transcript"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Summary     string   `json:"summary"`
}

// Clone returns a deep copy. Nil lists become empty so they encode as [].
func (r MeetingResult) Clone() MeetingResult {
	out := r
	out.KeyPoints = append(make([]string, 0, len(r.KeyPoints)), r.KeyPoints...)
	out.ActionItems = append(make([]string, 0, len(r.ActionItems)), r.ActionItems...)
	return out
}

// Job is a point-in-time snapshot of one upload's processing state.
type Job struct {
	ID        string
	Filename  string
	Progress  int
	Status    Status
	Result    *MeetingResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j Job) clone() Job {
	out := j
	if j.Result != nil {
		r := j.Result.Clone()
		out.Result = &r
	}
	return out
}
