package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/brollcut/internal/domain/compose"
	"github.com/forPelevin/brollcut/internal/media"
	"github.com/forPelevin/brollcut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// Encode renders a composed graph. Video is re-encoded because overlays
// require it; audio is stream-copied from the base.
func (a *Adapter) Encode(ctx context.Context, g compose.Graph, outMP4 string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, encodeArgs(g, outMP4)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode: %w\n%s", err, tail(string(b), 2000))
	}
	return nil
}

func encodeArgs(g compose.Graph, outMP4 string) []string {
	args := []string{"-y", "-nostdin"}
	args = append(args, g.Args()...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
	)
	if g.Duration > 0 {
		args = append(args, "-t", fmtSeconds(g.Duration))
	}
	args = append(args, "-movflags", "+faststart", "-f", "mp4", outMP4)
	return args
}

func (a *Adapter) Probe(ctx context.Context, path string) (media.Handle, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return media.Handle{}, fmt.Errorf("%w: ffprobe %s: %v", types.ErrMediaUnavailable, path, err)
	}
	h, err := parseProbe(b)
	if err != nil {
		return media.Handle{}, fmt.Errorf("%w: %s: %v", types.ErrMediaUnavailable, path, err)
	}
	h.Path = path
	return h, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (media.Handle, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return media.Handle{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var h media.Handle
	var streamDur string
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if h.Width > 0 {
				continue
			}
			h.Width, h.Height = s.Width, s.Height
			h.FrameRate = parseRate(s.AvgFrameRate)
			if h.FrameRate <= 0 {
				h.FrameRate = parseRate(s.RFrameRate)
			}
			streamDur = s.Duration
		case "audio":
			h.HasAudio = true
		}
	}
	if h.Width <= 0 || h.Height <= 0 {
		return media.Handle{}, fmt.Errorf("no video stream")
	}

	// The video stream bounds what trim and -stream_loop can show; the
	// container duration also covers trailing audio.
	raw := strings.TrimSpace(streamDur)
	if raw == "" || raw == "N/A" {
		raw = strings.TrimSpace(out.Format.Duration)
	}
	sec, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return media.Handle{}, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if sec <= 0 {
		return media.Handle{}, fmt.Errorf("non-positive duration %q", raw)
	}
	h.Duration = media.Seconds(sec)
	return h, nil
}

// parseRate reads ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
