package export

import (
	"encoding/json"
	"io"

	"github.com/snarg/meetscribe/internal/jobs"
)

// RenderJSON writes r as indented JSON. Empty lists are written as [].
func RenderJSON(w io.Writer, r jobs.MeetingResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Clone())
}
