package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/config"
	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/ports"
	"github.com/forPelevin/brollcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/brollcut/internal/ports/adapters/gemini"
	"github.com/forPelevin/brollcut/internal/ports/adapters/httpfetch"
	"github.com/forPelevin/brollcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/brollcut/internal/ports/adapters/outstore"
	"github.com/forPelevin/brollcut/internal/ports/adapters/retryfetch"
	"github.com/forPelevin/brollcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/brollcut/internal/types"
	"github.com/forPelevin/brollcut/internal/usecase"
)

type Stage int

const (
	StagePlan Stage = iota
	StageRender
)

// Validate checks the assembled config for the given stage. Planning needs
// the whisper model and oracle credentials; rendering needs neither.
func Validate(cfg *config.Config, stage Stage) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if stage != StagePlan {
		return nil
	}
	if strings.TrimSpace(cfg.Tools.WhisperModel) == "" {
		return errors.New("whisper model path is required")
	}
	if err := cfg.RequireOracleKey(); err != nil {
		return err
	}
	if cfg.LLM.Provider == config.ProviderOpenRouter {
		return openrouter.ValidateBaseURL(cfg.LLM.OpenRouter.BaseURL, cfg.LLM.OpenRouter.AllowedHosts)
	}
	return nil
}

// Build wires adapters into a usecase. Only the collaborators the stage
// touches are constructed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, stage Stage) (usecase.Usecase, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := Validate(cfg, stage); err != nil {
		return usecase.Usecase{}, fmt.Errorf("config: %w", err)
	}

	deps := usecase.Deps{
		Video: ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		Fetch: retryfetch.New(httpfetch.New(cfg.Fetch.Timeout), cfg.Fetch.Attempts, log.Named("fetch")),
		Log:   log,
	}

	switch stage {
	case StagePlan:
		deps.ASR = whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, log.Named("asr"))
		oracle, err := newOracle(ctx, cfg)
		if err != nil {
			return usecase.Usecase{}, err
		}
		deps.Oracle = oracle
	case StageRender:
		store, err := newOutputStore(cfg, log.Named("outstore"))
		if err != nil {
			return usecase.Usecase{}, err
		}
		deps.Outputs = store
	}

	return usecase.New(deps, usecase.Settings{
		CacheDir:    cfg.CacheDir,
		Rules:       timeline.Rules{MinGap: cfg.Render.MinGapSec, MaxInsertions: cfg.Render.MaxInsertions},
		Concurrency: cfg.Render.Concurrency,
	}), nil
}

func newOracle(ctx context.Context, cfg *config.Config) (ports.Oracle, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx, cfg.LLM.Gemini.Key, cfg.LLM.Model)
	default:
		return openrouter.New(cfg.LLM.OpenRouter.Key, cfg.LLM.Model, cfg.LLM.OpenRouter.BaseURL), nil
	}
}

func newOutputStore(cfg *config.Config, log *zap.Logger) (ports.OutputStore, error) {
	if cfg.Output.S3.Enabled() {
		return outstore.NewS3(cfg.Output.S3, log)
	}
	return outstore.NewLocal(cfg.OutDir)
}

// WritePlan stores a plan result as plan.json in a fresh run directory under
// outRoot and returns the file path.
func WritePlan(outRoot, requestPath string, res types.PlanResult, now time.Time) (string, error) {
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, requestPath, now)
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	p := filepath.Join(runOutDir, "plan.json")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// ReadPlanInsertions loads insertions from a plan.json written by WritePlan
// or from a bare plan document. They are re-validated before rendering.
func ReadPlanInsertions(path string) ([]types.ProposedInsertion, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body := b
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse plan %s: %v", types.ErrInvalidRequest, path, err)
	}
	if inner, ok := doc["plan"]; ok {
		body = inner
		doc = nil
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%w: parse plan %s: %v", types.ErrInvalidRequest, path, err)
		}
	}
	if _, ok := doc["insertions"]; !ok {
		return nil, fmt.Errorf("%w: plan %s has no insertions", types.ErrInvalidRequest, path)
	}
	ins, err := timeline.DecodeProposals(body)
	if err != nil {
		return nil, fmt.Errorf("%w: plan %s: %v", types.ErrInvalidRequest, path, err)
	}
	return ins, nil
}

func buildRunOutDir(outRoot, requestPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(requestPath), filepath.Ext(requestPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "request"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", requestPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool   = (*ffmpeg.Adapter)(nil)
	_ ports.ASR         = (*whispercpp.Adapter)(nil)
	_ ports.Oracle      = (*openrouter.Adapter)(nil)
	_ ports.Oracle      = (*gemini.Adapter)(nil)
	_ ports.Fetcher     = (*httpfetch.Fetcher)(nil)
	_ ports.Fetcher     = (*retryfetch.Fetcher)(nil)
	_ ports.OutputStore = (*outstore.Local)(nil)
	_ ports.OutputStore = (*outstore.S3)(nil)
)
