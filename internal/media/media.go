package media

import (
	"fmt"
	"math"
	"time"

	"github.com/forPelevin/brollcut/internal/types"
)

const defaultFrameRate = 30.0

// Handle is a probed source clip.
type Handle struct {
	Path      string
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
}

// Range is a span of source time placed at an offset of the fitted output.
type Range struct {
	Start    time.Duration // offset into the source
	Duration time.Duration
	At       time.Duration // offset into the fitted output
}

func (r Range) End() time.Duration { return r.Start + r.Duration }

// Decodable reports whether the handle describes playable video.
func (h Handle) Decodable() bool {
	return h.Duration > 0 && h.Width > 0 && h.Height > 0
}

// FrameInterval is the duration of one frame, used as a timing tolerance.
func (h Handle) FrameInterval() time.Duration {
	fps := h.FrameRate
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = defaultFrameRate
	}
	return time.Duration(float64(time.Second) / fps)
}

// SubRange returns [start, start+d) of the source.
func (h Handle) SubRange(start, d time.Duration) (Range, error) {
	if d <= 0 {
		return Range{}, fmt.Errorf("sub-range of %s: duration must be > 0", h.Path)
	}
	if start < 0 || start+d > h.Duration {
		return Range{}, fmt.Errorf("sub-range [%s, %s) outside %s (%s)", start, start+d, h.Path, h.Duration)
	}
	return Range{Start: start, Duration: d}, nil
}

// Loop covers d by replaying the source from its start. The last range is
// cut exactly at d, so the ranges always sum to d.
func (h Handle) Loop(d time.Duration) ([]Range, error) {
	if h.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s has no duration", types.ErrMediaUnavailable, h.Path)
	}
	if d <= 0 {
		return nil, fmt.Errorf("loop of %s: duration must be > 0", h.Path)
	}
	n := int((d + h.Duration - 1) / h.Duration)
	out := make([]Range, 0, n)
	var at time.Duration
	for at < d {
		piece := h.Duration
		if rest := d - at; rest < piece {
			piece = rest
		}
		out = append(out, Range{Start: 0, Duration: piece, At: at})
		at += piece
	}
	return out, nil
}

// Seconds converts JSON seconds to a Duration, rounding to the nanosecond.
func Seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}
