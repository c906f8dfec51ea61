//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func probeDurationSeconds(mp4Path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func probeFrameSize(mp4Path string) (int, int, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	var out struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &out); err != nil || len(out.Streams) == 0 {
		return 0, 0, fmt.Errorf("parse ffprobe output %q: %v", string(b), err)
	}
	return out.Streams[0].Width, out.Streams[0].Height, nil
}

// audioMD5 hashes the demuxed audio packets without decoding them.
func audioMD5(mp4Path string) (string, error) {
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", mp4Path,
		"-map", "0:a",
		"-c", "copy",
		"-f", "md5",
		"-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg md5: %w\n%s", err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}
