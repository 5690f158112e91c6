package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultTranscriptLimit is how many characters of the transcript are sent to
// the language model. Longer meetings are summarized from their opening only;
// this trades insight quality for lower model usage.
const DefaultTranscriptLimit = 500

// ErrMalformedResponse means the model reply held no decodable JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

// Insights is the part of a MeetingResult produced by the language model.
type Insights struct {
	KeyPoints   stringList `json:"key_points"`
	ActionItems stringList `json:"action_items"`
	Summary     string     `json:"summary"`
}

// FallbackInsights is the fixed content used when the language model cannot
// be reached. The job still completes; callers cannot tell it apart from a
// real analysis.
func FallbackInsights() Insights {
	return Insights{
		KeyPoints: stringList{
			"Project goals were discussed.",
			"Timeline and responsibilities assigned.",
		},
		ActionItems: stringList{
			"Send project plan to team.",
			"Schedule next meeting.",
		},
		Summary: "The meeting covered project objectives, assigned tasks, and set deadlines.",
	}
}

// BuildPrompt renders the analysis prompt from at most limit characters of
// the transcript. limit <= 0 means DefaultTranscriptLimit.
func BuildPrompt(transcript string, limit int) string {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	sample := transcript
	if r := []rune(transcript); len(r) > limit {
		sample = string(r[:limit])
	}
	return fmt.Sprintf(`
You are an expert meeting assistant. Given the following meeting transcript, extract:
- Key discussion points (bullet list)
- Action items (bullet list)
- An executive summary (3-5 sentences)

Transcript:
%s

Please format your response as JSON with keys: key_points, action_items, summary.
`, sample)
}

// ParseInsights extracts insights from a model reply. The JSON object is taken
// greedily from the first '{' to the last '}'. When there is no such object,
// or it does not decode, the whole trimmed reply becomes the summary and
// ErrMalformedResponse is returned alongside it.
func ParseInsights(content string) (Insights, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return summaryOnly(content), ErrMalformedResponse
	}

	var ins Insights
	if err := json.Unmarshal([]byte(content[start:end+1]), &ins); err != nil {
		return summaryOnly(content), fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if ins.KeyPoints == nil {
		ins.KeyPoints = stringList{}
	}
	if ins.ActionItems == nil {
		ins.ActionItems = stringList{}
	}
	return ins, nil
}

func summaryOnly(content string) Insights {
	return Insights{
		KeyPoints:   stringList{},
		ActionItems: stringList{},
		Summary:     strings.TrimSpace(content),
	}
}

// stringList decodes either a JSON array of strings or a single string.
// Models are not consistent about which one they return.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	if strings.TrimSpace(one) == "" {
		*l = stringList{}
		return nil
	}
	*l = stringList{one}
	return nil
}
