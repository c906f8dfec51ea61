// Package prompt builds the insertion-planning prompt shared by the oracle
// adapters and cleans up their replies.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/brollcut/internal/domain/cues"
	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/types"
)

const System = "You are a helpful assistant designed to output JSON."

// Build renders the planning prompt. Cue scores ride along with each
// transcript segment as hints; the model is free to ignore them.
func Build(in types.OracleInput) (string, error) {
	tj, err := json.MarshalIndent(cues.Annotate(in.Segments), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	cands := in.Candidates
	if cands == nil {
		cands = []types.OracleCandidate{}
	}
	cj, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	// A zero gap is a valid rule, so defaults apply only when no limits came in.
	maxIns, gap := in.MaxInsertions, in.MinGapSec
	if maxIns <= 0 {
		maxIns, gap = timeline.MaxInsertions, timeline.MinGapSec
	}

	dur := fmt.Sprintf("%.3f", in.BaseDuration)
	var b strings.Builder
	b.WriteString("You are an expert video editor planning B-roll insertions for a short-form talking-head video.\n\n")
	b.WriteString("Decide which moments benefit from B-roll, which clip matches each moment, how long to show it, and why.\n\n")
	b.WriteString("EDITING RULES\n")
	fmt.Fprintf(&b, "1. At most %d insertions, with at least %g seconds between the end of one and the start of the next.\n",
		maxIns, gap)
	b.WriteString("2. Keep the speaker on screen during emotional statements, personal opinions, strong emphasis and punchlines. A high emphasis_cue marks such segments.\n")
	b.WriteString("3. Prefer moments where the speaker mentions a physical object, explains a process, references UI or product usage, or where visuals add proof. A high visual_cue marks such segments.\n")
	b.WriteString("4. The A-roll audio stays uninterrupted; B-roll only covers the picture.\n")
	b.WriteString("5. The transcript may be in another language or mixed. Match on the meaning of what is said, not on keywords, against the English clip descriptions.\n")
	b.WriteString("6. Each clip may be used at most once. Every insertion must lie within [0, A-roll duration].\n")
	b.WriteString("7. confidence is a number from 0.0 to 1.0 for how strong the match is. If a moment does not benefit from visuals, insert nothing.\n\n")
	if md := strings.TrimSpace(in.BaseMetadata); md != "" {
		b.WriteString("A-roll context:\n" + md + "\n\n")
	}
	b.WriteString("A-roll duration (seconds):\n" + dur + "\n\n")
	b.WriteString("A-roll transcript:\n" + string(tj) + "\n\n")
	b.WriteString("B-roll clips:\n" + string(cj) + "\n\n")
	b.WriteString("Return strictly valid JSON (no markdown, no code fences) of the form:\n")
	b.WriteString(`{"a_roll_duration": ` + dur + `, "insertions": [{"start_sec": number, "duration_sec": number, "broll_id": string, "confidence": number, "reason": string}]}`)
	b.WriteString("\n")
	return b.String(), nil
}

// ExtractJSON strips markdown fences and surrounding chatter from a model
// reply, returning the outermost JSON object or array.
func ExtractJSON(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	// Chatter may hold stray brackets ("Plan [v1]: {...}"), so both shapes
	// are sliced and the earliest one that parses wins.
	obj, objAt := span(t, "{", "}")
	arr, arrAt := span(t, "[", "]")
	first, second := obj, arr
	if arrAt >= 0 && (objAt < 0 || arrAt < objAt) {
		first, second = arr, obj
	}
	for _, c := range []string{first, second} {
		if c != "" && json.Valid([]byte(c)) {
			return c, nil
		}
	}
	if first != "" {
		return first, nil
	}
	if second != "" {
		return second, nil
	}
	return "", fmt.Errorf("could not locate JSON in: %q", Truncate(t, 200))
}

// span returns the text from the first open to the last shut, and where it
// starts, or -1 when there is none.
func span(t, open, shut string) (string, int) {
	start := strings.Index(t, open)
	end := strings.LastIndex(t, shut)
	if start < 0 || end <= start {
		return "", -1
	}
	return t[start : end+1], start
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
