package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/types"
)

// Adapter runs the whisper.cpp CLI. The model file is shared by every
// request and is only ever read.
type Adapter struct {
	bin   string
	model string
	log   *zap.Logger

	once     sync.Once
	modelErr error
}

func New(binPath, modelPath string, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{bin: binPath, model: modelPath, log: log}
}

func (a *Adapter) checkModel() error {
	a.once.Do(func() {
		st, err := os.Stat(a.model)
		switch {
		case err != nil:
			a.modelErr = fmt.Errorf("whisper model %s: %w", a.model, err)
		case st.IsDir() || st.Size() == 0:
			a.modelErr = fmt.Errorf("whisper model %s is not a model file", a.model)
		default:
			a.log.Info("whisper model ready", zap.String("model", a.model), zap.Int64("bytes", st.Size()))
		}
	})
	return a.modelErr
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if err := a.checkModel(); err != nil {
		return types.Transcript{}, err
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-owts",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseTranscript(jb)
}

// whisper.cpp -oj writes {"transcription":[{"offsets":{"from":ms,"to":ms},"text":...}]}.
// A pre-normalized {"segments":[...]} document is accepted as well.
type whisperJSON struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

func parseTranscript(b []byte) (types.Transcript, error) {
	var raw whisperJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, fmt.Errorf("parse whisper output: %w", err)
	}

	tr := types.Transcript{Segments: raw.Segments}
	if len(tr.Segments) == 0 {
		for _, s := range raw.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(s.Offsets.From) / 1000,
				End:   float64(s.Offsets.To) / 1000,
				Text:  s.Text,
			})
		}
	}

	out := tr.Segments[:0]
	for _, s := range tr.Segments {
		s.Text = strings.TrimSpace(s.Text)
		for j := range s.Words {
			s.Words[j].Word = strings.TrimSpace(s.Words[j].Word)
		}
		if s.Text == "" || s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	tr.Segments = out
	return tr, nil
}
