package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/brollcut/internal/types"
)

// DecodeProposals parses oracle JSON into proposals. It accepts an object with
// an "insertions" array or a bare array. Only a malformed list is an error;
// elements that do not decode are skipped.
func DecodeProposals(raw []byte) ([]types.ProposedInsertion, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", types.ErrMalformedProposal)
	}

	var items []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedProposal, err)
		}
	case '{':
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedProposal, err)
		}
		list, ok := doc["insertions"]
		if !ok || isNull(list) {
			return []types.ProposedInsertion{}, nil
		}
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("%w: insertions is not a list: %v", types.ErrMalformedProposal, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", types.ErrMalformedProposal)
	}

	out := make([]types.ProposedInsertion, 0, len(items))
	for _, it := range items {
		p, ok := decodeOne(it)
		if !ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type wireInsertion struct {
	StartSec    json.RawMessage `json:"start_sec"`
	DurationSec json.RawMessage `json:"duration_sec"`
	CandidateID json.RawMessage `json:"candidate_id"`
	BRollID     json.RawMessage `json:"broll_id"`
	Confidence  json.RawMessage `json:"confidence"`
	Reason      json.RawMessage `json:"reason"`
}

func decodeOne(raw json.RawMessage) (types.ProposedInsertion, bool) {
	var w wireInsertion
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.ProposedInsertion{}, false
	}
	start, ok := number(w.StartSec)
	if !ok {
		return types.ProposedInsertion{}, false
	}
	dur, ok := number(w.DurationSec)
	if !ok {
		return types.ProposedInsertion{}, false
	}
	id := text(w.CandidateID)
	if id == "" {
		id = text(w.BRollID)
	}
	if id == "" {
		return types.ProposedInsertion{}, false
	}
	conf, ok := number(w.Confidence)
	if !ok {
		conf = 0
	}
	return types.ProposedInsertion{
		StartSec:    start,
		DurationSec: dur,
		CandidateID: id,
		Confidence:  conf,
		Reason:      text(w.Reason),
	}, true
}

// number accepts JSON numbers and numeric strings.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// text accepts JSON strings and numbers (some models emit numeric ids).
func text(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
