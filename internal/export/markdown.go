package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/snarg/meetscribe/internal/jobs"
)

// RenderMarkdown writes the four report sections. The transcript block is
// left out when the transcript is empty.
func RenderMarkdown(w io.Writer, r jobs.MeetingResult) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("# Executive Summary\n")
	bw.WriteString(strings.TrimSpace(r.Summary) + "\n\n")

	bw.WriteString("# Key Discussion Points\n")
	for _, pt := range r.KeyPoints {
		bw.WriteString(strings.TrimSpace(pt) + "\n")
	}
	bw.WriteString("\n")

	bw.WriteString("# Action Items\n")
	for _, ai := range r.ActionItems {
		bw.WriteString(strings.TrimSpace(ai) + "\n")
	}
	bw.WriteString("\n")

	bw.WriteString("# Full Transcript\n")
	if t := strings.TrimSpace(r.Transcript); t != "" {
		bw.WriteString("```text\n" + t + "\n```\n")
	}

	return bw.Flush()
}
