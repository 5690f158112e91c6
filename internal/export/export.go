// Package export renders a meeting result as a downloadable document.
package export

import (
	"fmt"
	"io"

	"github.com/snarg/meetscribe/internal/jobs"
)

// Format describes one export target.
type Format struct {
	Name        string
	Filename    string
	ContentType string
	Render      func(w io.Writer, r jobs.MeetingResult) error
}

// Formats lists every supported export, keyed by the URL path segment.
var Formats = map[string]Format{
	"json":     {Name: "json", Filename: "meeting_summary.json", ContentType: "application/json", Render: RenderJSON},
	"markdown": {Name: "markdown", Filename: "meeting_summary.md", ContentType: "text/markdown", Render: RenderMarkdown},
	"pdf":      {Name: "pdf", Filename: "meeting_summary.pdf", ContentType: "application/pdf", Render: RenderPDF},
}

// Lookup returns the format registered under name.
func Lookup(name string) (Format, error) {
	f, ok := Formats[name]
	if !ok {
		return Format{}, fmt.Errorf("unknown export format %q", name)
	}
	return f, nil
}
