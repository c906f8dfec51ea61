package timeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/forPelevin/brollcut/internal/types"
)

const (
	MinGapSec     = 4.0
	MaxInsertions = 6
)

// Rules are the scheduling constraints a validated set must satisfy.
type Rules struct {
	MinGap        float64 // seconds between the end of one insertion and the start of the next
	MaxInsertions int
}

func DefaultRules() Rules {
	return Rules{MinGap: MinGapSec, MaxInsertions: MaxInsertions}
}

// Validate filters proposals into a conflict-free set using DefaultRules.
func Validate(
	proposals []types.ProposedInsertion,
	candidates map[string]types.Candidate,
	baseDuration float64,
) []types.ValidatedInsertion {
	return ValidateWith(DefaultRules(), proposals, candidates, baseDuration)
}

// ValidateWith filters and repairs untrusted proposals into a set that holds
// every rule at once. It never fails: bad proposals are dropped.
//
// Conflicts are resolved greedily by confidence (ties: earlier start, then
// input order). This prefers the oracle's strongest matches over maximising
// the number or total confidence of insertions.
func ValidateWith(
	rules Rules,
	proposals []types.ProposedInsertion,
	candidates map[string]types.Candidate,
	baseDuration float64,
) []types.ValidatedInsertion {
	if !finite(baseDuration) || baseDuration <= 0 || rules.MaxInsertions <= 0 {
		return []types.ValidatedInsertion{}
	}
	gap := rules.MinGap
	if !finite(gap) || gap < 0 {
		gap = 0
	}

	pool := make([]types.ValidatedInsertion, 0, len(proposals))
	for _, p := range proposals {
		v, ok := admit(p, candidates, baseDuration)
		if !ok {
			continue
		}
		pool = append(pool, v)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Confidence != pool[j].Confidence {
			return pool[i].Confidence > pool[j].Confidence
		}
		return pool[i].StartSec < pool[j].StartSec
	})

	accepted := make([]types.ValidatedInsertion, 0, min(len(pool), rules.MaxInsertions))
	used := make(map[string]struct{}, len(pool))
	for _, v := range pool {
		if len(accepted) >= rules.MaxInsertions {
			break
		}
		if _, ok := used[v.CandidateID]; ok {
			continue
		}
		if conflicts(accepted, v, gap) {
			continue
		}
		accepted = append(accepted, v)
		used[v.CandidateID] = struct{}{}
	}

	sortByStart(accepted)
	return accepted
}

// admit applies the per-proposal checks and normalises the candidate id and
// confidence.
func admit(
	p types.ProposedInsertion,
	candidates map[string]types.Candidate,
	baseDuration float64,
) (types.ValidatedInsertion, bool) {
	id := strings.TrimSpace(p.CandidateID)
	if _, ok := candidates[id]; !ok || id == "" {
		return types.ValidatedInsertion{}, false
	}
	if !finite(p.StartSec) || !finite(p.DurationSec) {
		return types.ValidatedInsertion{}, false
	}
	end := p.StartSec + p.DurationSec
	if p.DurationSec <= 0 || p.StartSec < 0 || end > baseDuration {
		return types.ValidatedInsertion{}, false
	}
	return types.ValidatedInsertion{
		StartSec:    p.StartSec,
		DurationSec: p.DurationSec,
		CandidateID: id,
		Confidence:  clampConfidence(p.Confidence),
		Reason:      p.Reason,
	}, true
}

// conflicts reports whether v overlaps, or sits closer than gap to, any
// accepted insertion. Touching intervals are allowed only when gap is zero.
func conflicts(accepted []types.ValidatedInsertion, v types.ValidatedInsertion, gap float64) bool {
	for _, a := range accepted {
		if v.StartSec < a.EndSec()+gap && a.StartSec < v.EndSec()+gap {
			return true
		}
	}
	return false
}

// Check verifies that set satisfies every rule as a set property. It is the
// executable form of the validator's output contract.
func Check(
	set []types.ValidatedInsertion,
	candidates map[string]types.Candidate,
	baseDuration float64,
	rules Rules,
) error {
	if len(set) > rules.MaxInsertions {
		return fmt.Errorf("%d insertions exceed the limit of %d", len(set), rules.MaxInsertions)
	}
	seen := make(map[string]struct{}, len(set))
	for i, v := range set {
		if _, ok := candidates[v.CandidateID]; !ok {
			return fmt.Errorf("insertion %d: unknown candidate %q", i, v.CandidateID)
		}
		if _, dup := seen[v.CandidateID]; dup {
			return fmt.Errorf("insertion %d: candidate %q reused", i, v.CandidateID)
		}
		seen[v.CandidateID] = struct{}{}
		if v.StartSec < 0 || v.DurationSec <= 0 || v.EndSec() > baseDuration {
			return fmt.Errorf("insertion %d: [%.3f, %.3f) outside [0, %.3f]", i, v.StartSec, v.EndSec(), baseDuration)
		}
		if i == 0 {
			continue
		}
		prev := set[i-1]
		if v.StartSec < prev.StartSec {
			return fmt.Errorf("insertion %d: not sorted by start", i)
		}
		if v.StartSec < prev.EndSec()+rules.MinGap {
			return fmt.Errorf("insertion %d: gap %.3fs after previous is below %.3fs", i, v.StartSec-prev.EndSec(), rules.MinGap)
		}
	}
	return nil
}

// NewPlan wraps a validated set into the plan artifact.
func NewPlan(baseDuration float64, set []types.ValidatedInsertion) types.Plan {
	out := make([]types.ValidatedInsertion, len(set))
	copy(out, set)
	sortByStart(out)
	return types.Plan{BaseDuration: baseDuration, Insertions: out}
}

func sortByStart(set []types.ValidatedInsertion) {
	sort.SliceStable(set, func(i, j int) bool { return set[i].StartSec < set[j].StartSec })
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
