package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/config"
	"github.com/forPelevin/brollcut/internal/logging"
	"github.com/forPelevin/brollcut/internal/pipeline"
	"github.com/forPelevin/brollcut/internal/types"
)

func runPlan(cmd *cobra.Command, requestPath string) error {
	var req types.PlanRequest
	if err := readJSON(requestPath, &req); err != nil {
		return err
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := commandContext(cfg.Timeout)
	defer cancel()

	uc, err := pipeline.Build(ctx, cfg, log, pipeline.StagePlan)
	if err != nil {
		return err
	}
	res, err := uc.Plan(ctx, req)
	if err != nil {
		return err
	}

	p, err := pipeline.WritePlan(cfg.OutDir, requestPath, res, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Info("plan written", zap.String("path", p), zap.Int("insertions", len(res.Plan.Insertions)))
	return writeJSON(cmd, res.Plan)
}

func runRender(cmd *cobra.Command, requestPath string) error {
	req, err := readRenderRequest(requestPath)
	if err != nil {
		return err
	}
	if planPath, _ := cmd.Flags().GetString("plan"); planPath != "" {
		ins, err := pipeline.ReadPlanInsertions(planPath)
		if err != nil {
			return err
		}
		req.Insertions = ins
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := commandContext(cfg.Timeout)
	defer cancel()

	uc, err := pipeline.Build(ctx, cfg, log, pipeline.StageRender)
	if err != nil {
		return err
	}
	res, err := uc.Render(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}

// setup loads config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Console: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, log, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("out") {
		cfg.OutDir, _ = f.GetString("out")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-file") {
		cfg.Log.File, _ = f.GetString("log-file")
	}
	if f.Changed("timeout") {
		d, _ := f.GetDuration("timeout")
		if d <= 0 {
			return fmt.Errorf("--timeout must be > 0")
		}
		cfg.Timeout = d
	}
	return nil
}

// commandContext is cancelled on SIGINT/SIGTERM or after timeout, which
// stops ffmpeg and in-flight downloads.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// readRenderRequest accepts the render shape or a plan request, so the same
// file can drive both commands.
func readRenderRequest(path string) (types.RenderRequest, error) {
	var doc struct {
		types.RenderRequest
		ARoll *types.ARoll `json:"a_roll"`
	}
	if err := readJSON(path, &doc); err != nil {
		return types.RenderRequest{}, err
	}
	req := doc.RenderRequest
	if req.ARollURL == "" && doc.ARoll != nil {
		req.ARollURL = doc.ARoll.URL
	}
	return req, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", types.ErrInvalidRequest, path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", types.ErrInvalidRequest, path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
