package cues

import (
	"regexp"
	"strings"

	"github.com/forPelevin/brollcut/internal/types"
)

var (
	reNum      = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reProcess  = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|then|next|install|open|click|tap|mix|build|setup|set\s+up)\b`)
	reObject   = regexp.MustCompile(`(?i)\b(app|screen|phone|product|box|bottle|kitchen|car|market|street|city|store|laptop|camera|food|dashboard|website|results?)\b`)
	reOpinion  = regexp.MustCompile(`(?i)\b(i\s+think|i\s+feel|i\s+believe|honestly|personally|i\s+love|i\s+hate|to\s+be\s+honest|in\s+my\s+opinion)\b`)
	reEmphasis = regexp.MustCompile(`(?i)\b(never|always|literally|seriously|trust\s+me|listen|the\s+truth)\b`)
)

// Score returns (visual, emphasis) in range [0..10]. Visual rises with
// mentions of objects, processes and figures the viewer could be shown;
// emphasis rises with opinions and punchlines that should keep the speaker
// on screen.
func Score(text string) (float64, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}
	lower := strings.ToLower(t)

	visual := float64(len(reObject.FindAllStringIndex(lower, -1))) * 1.1
	visual += float64(len(reProcess.FindAllStringIndex(lower, -1))) * 0.8
	visual += float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4

	emphasis := float64(len(reOpinion.FindAllStringIndex(lower, -1))) * 1.2
	emphasis += float64(len(reEmphasis.FindAllStringIndex(lower, -1))) * 0.9
	emphasis += float64(strings.Count(t, "!")) * 0.6

	return clamp(visual, 0, 10), clamp(emphasis, 0, 10)
}

// Hint is a per-segment annotation handed to the oracle alongside the text.
type Hint struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Visual   float64 `json:"visual_cue"`
	Emphasis float64 `json:"emphasis_cue"`
}

// Annotate scores every transcript segment. The hints are advisory: nothing
// downstream of the oracle reads them.
func Annotate(segs []types.Segment) []Hint {
	out := make([]Hint, 0, len(segs))
	for _, s := range segs {
		v, e := Score(s.Text)
		out = append(out, Hint{StartSec: s.Start, EndSec: s.End, Text: s.Text, Visual: v, Emphasis: e})
	}
	return out
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
