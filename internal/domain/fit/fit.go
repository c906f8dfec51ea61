package fit

import (
	"fmt"
	"time"

	"github.com/forPelevin/brollcut/internal/media"
	"github.com/forPelevin/brollcut/internal/types"
)

// Segment is a validated insertion paired with the exact-duration slice of
// its source. It has no audio of its own.
type Segment struct {
	Insertion types.ValidatedInsertion
	Source    media.Handle
	Pieces    []media.Range
}

// Start is the offset on the base track where the segment begins.
func (s Segment) Start() time.Duration { return media.Seconds(s.Insertion.StartSec) }

// Duration is the total playable duration of the pieces.
func (s Segment) Duration() time.Duration {
	var d time.Duration
	for _, p := range s.Pieces {
		d += p.Duration
	}
	return d
}

func (s Segment) End() time.Duration { return s.Start() + s.Duration() }

// Looped reports whether the source repeats to fill the slot.
func (s Segment) Looped() bool { return len(s.Pieces) > 1 }

// Fit reconciles the source's natural duration with the requested slot: a
// longer or equal source is trimmed to its leading part, a shorter one is
// looped from its start and cut exactly at the slot boundary.
func Fit(ins types.ValidatedInsertion, src media.Handle) (Segment, error) {
	if !src.Decodable() {
		return Segment{}, fmt.Errorf("%w: %s (candidate %s) could not be decoded", types.ErrMediaUnavailable, src.Path, ins.CandidateID)
	}
	want := media.Seconds(ins.DurationSec)
	if want <= 0 {
		return Segment{}, fmt.Errorf("fit %s: requested duration must be > 0", ins.CandidateID)
	}

	if src.Duration >= want {
		r, err := src.SubRange(0, want)
		if err != nil {
			return Segment{}, fmt.Errorf("fit %s: %w", ins.CandidateID, err)
		}
		return Segment{Insertion: ins, Source: src, Pieces: []media.Range{r}}, nil
	}

	pieces, err := src.Loop(want)
	if err != nil {
		return Segment{}, fmt.Errorf("fit %s: %w", ins.CandidateID, err)
	}
	return Segment{Insertion: ins, Source: src, Pieces: pieces}, nil
}
