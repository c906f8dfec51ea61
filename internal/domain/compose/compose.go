package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/brollcut/internal/domain/fit"
	"github.com/forPelevin/brollcut/internal/media"
)

// Timeline is the base track plus fitted segments ordered by start. It is
// built once and consumed by a single encode.
type Timeline struct {
	Base     media.Handle
	Segments []fit.Segment
}

// Input is one ffmpeg input with the options that precede its -i.
type Input struct {
	Path    string
	Options []string
}

// Graph is the ffmpeg description of a composed timeline. It never carries
// an audio filter: base audio is stream-copied.
type Graph struct {
	Inputs   []Input
	Filter   string
	VideoMap string
	AudioMap string
	Duration time.Duration
}

const (
	baseVideo = "[0:v]"
	videoOut  = "[vout]"

	// AudioFromBase maps the base track's audio, if any, unmodified.
	AudioFromBase = "0:a?"
)

// Compose orders segments onto the base. Segments are expected to be
// non-overlapping, which the validator guarantees.
func Compose(base media.Handle, segs []fit.Segment) (Timeline, error) {
	if !base.Decodable() {
		return Timeline{}, fmt.Errorf("compose: base %s has no video (duration=%s, size=%dx%d)", base.Path, base.Duration, base.Width, base.Height)
	}
	ordered := make([]fit.Segment, len(segs))
	copy(ordered, segs)
	for _, s := range ordered {
		if len(s.Pieces) == 0 {
			return Timeline{}, fmt.Errorf("compose: segment for %s has no media", s.Insertion.CandidateID)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Start() != b.Start() {
			return a.Start() < b.Start()
		}
		if a.Duration() != b.Duration() {
			return a.Duration() < b.Duration()
		}
		return a.Source.Path < b.Source.Path
	})
	return Timeline{Base: base, Segments: ordered}, nil
}

// Duration of the output is the base track's duration.
func (t Timeline) Duration() time.Duration { return t.Base.Duration }

// Graph renders the timeline as ffmpeg inputs and a filter_complex. Each
// segment is trimmed to its exact duration, shifted to its start, resized to
// the base frame size and overlaid for [start, end) only.
func (t Timeline) Graph() Graph {
	g := Graph{
		Inputs:   []Input{{Path: t.Base.Path}},
		VideoMap: "0:v",
		AudioMap: AudioFromBase,
		Duration: t.Base.Duration,
	}
	if len(t.Segments) == 0 {
		return g
	}

	var chains []string
	prev := baseVideo
	for i, s := range t.Segments {
		idx := i + 1
		g.Inputs = append(g.Inputs, segmentInput(s))

		branch := fmt.Sprintf("[b%d]", idx)
		chains = append(chains, fmt.Sprintf(
			"[%d:v]trim=start=%s:duration=%s,setpts=PTS-STARTPTS,fps=%s,scale=%d:%d,setsar=1,setpts=PTS+%s/TB%s",
			idx,
			fmtSeconds(s.Pieces[0].Start),
			fmtSeconds(s.Duration()),
			fmtRate(t.Base.FrameRate),
			t.Base.Width, t.Base.Height,
			fmtSeconds(s.Start()),
			branch,
		))

		out := fmt.Sprintf("[v%d]", idx)
		if i == len(t.Segments)-1 {
			out = videoOut
		}
		chains = append(chains, fmt.Sprintf(
			"%s%soverlay=eof_action=pass:enable='gte(t,%s)*lt(t,%s)'%s",
			prev, branch, fmtSeconds(s.Start()), fmtSeconds(s.End()), out,
		))
		prev = out
	}

	g.Filter = strings.Join(chains, ";")
	g.VideoMap = videoOut
	return g
}

// Args lists every input, then the filter graph and stream maps. Encoder
// options are left to the caller.
func (g Graph) Args() []string {
	var args []string
	for _, in := range g.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if g.Filter != "" {
		args = append(args, "-filter_complex", g.Filter)
	}
	args = append(args, "-map", g.VideoMap, "-map", g.AudioMap)
	return args
}

func segmentInput(s fit.Segment) Input {
	var opts []string
	if extra := len(s.Pieces) - 1; extra > 0 {
		opts = append(opts, "-stream_loop", strconv.Itoa(extra))
	}
	opts = append(opts, "-t", fmtSeconds(s.Duration()))
	return Input{Path: s.Source.Path, Options: opts}
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 6, 64)
}

func fmtRate(fps float64) string {
	if fps <= 0 {
		fps = 30
	}
	return strconv.FormatFloat(fps, 'f', 3, 64)
}
