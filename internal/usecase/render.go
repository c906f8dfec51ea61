package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/brollcut/internal/domain/compose"
	"github.com/forPelevin/brollcut/internal/domain/fit"
	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/types"
)

// Render composes the requested insertions over the A-roll and publishes one
// output. Insertions whose clip cannot be fetched, probed or fitted are
// dropped with a reason; the base track failing is fatal.
func (u Usecase) Render(ctx context.Context, req types.RenderRequest) (types.RenderResult, error) {
	if err := u.checkShape(req); err != nil {
		return types.RenderResult{}, err
	}
	cands, err := u.checkCandidates(req.BRolls)
	if err != nil {
		return types.RenderResult{}, err
	}

	ws, cleanup, err := u.openWorkspace()
	if err != nil {
		return types.RenderResult{}, err
	}
	defer cleanup()
	log := u.log.With(zap.String("request_id", ws.id))

	basePath := ws.file("base", req.ARollURL)
	if err := u.d.Fetch.Fetch(ctx, req.ARollURL, basePath); err != nil {
		return types.RenderResult{}, mediaErr("fetch a-roll", err)
	}
	base, err := u.d.Video.Probe(ctx, basePath)
	if err != nil {
		return types.RenderResult{}, mediaErr("probe a-roll", err)
	}
	baseSec := base.Duration.Seconds()

	// Requested insertions are untrusted even when they come from a plan we
	// produced; validation is idempotent on such plans.
	set := timeline.ValidateWith(u.s.Rules, req.Insertions, cands, baseSec)
	if err := timeline.Check(set, cands, baseSec, u.s.Rules); err != nil {
		return types.RenderResult{}, fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	log.Info("render started",
		zap.Float64("duration_sec", baseSec),
		zap.Int("requested", len(req.Insertions)),
		zap.Int("accepted", len(set)),
	)

	segs, dropped, err := u.fitAll(ctx, log, ws, set, cands)
	if err != nil {
		return types.RenderResult{}, err
	}

	tl, err := compose.Compose(base, segs)
	if err != nil {
		return types.RenderResult{}, fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	encoded := filepath.Join(ws.dir, "render.mp4")
	if err := u.d.Video.Encode(ctx, tl.Graph(), encoded); err != nil {
		if ctx.Err() != nil {
			return types.RenderResult{}, ctx.Err()
		}
		return types.RenderResult{}, fmt.Errorf("%w: encode: %w", types.ErrRender, err)
	}

	ref, err := u.d.Outputs.Publish(ctx, "final_"+ws.id+".mp4", encoded)
	if err != nil {
		return types.RenderResult{}, fmt.Errorf("%w: publish: %w", types.ErrRender, err)
	}

	applied := make([]types.ValidatedInsertion, 0, len(segs))
	for _, s := range tl.Segments {
		applied = append(applied, s.Insertion)
	}
	log.Info("render published",
		zap.String("output", ref.Location),
		zap.Int("applied", len(applied)),
		zap.Int("dropped", len(dropped)),
	)
	return types.RenderResult{
		Output:   ref,
		Applied:  applied,
		Dropped:  dropped,
		Duration: baseSec,
	}, nil
}

type fitted struct {
	seg    fit.Segment
	ok     bool
	reason string
}

// fitAll fetches, probes and fits every accepted insertion in parallel. Only
// cancellation fails the whole stage.
func (u Usecase) fitAll(
	ctx context.Context,
	log *zap.Logger,
	ws workspace,
	set []types.ValidatedInsertion,
	cands map[string]types.Candidate,
) ([]fit.Segment, []types.DroppedInsertion, error) {
	results := make([]fitted, len(set))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.s.Concurrency)
	for i, ins := range set {
		g.Go(func() error {
			c := cands[ins.CandidateID]
			path := ws.file("broll-"+strconv.Itoa(i), c.Source)

			seg, err := u.fitOne(gctx, ins, c, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("insertion dropped",
					zap.String("candidate_id", ins.CandidateID),
					zap.Float64("start_sec", ins.StartSec),
					zap.Error(err),
				)
				results[i] = fitted{reason: err.Error()}
				return nil
			}
			results[i] = fitted{seg: seg, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var segs []fit.Segment
	var dropped []types.DroppedInsertion
	for i, r := range results {
		if r.ok {
			segs = append(segs, r.seg)
			continue
		}
		dropped = append(dropped, types.DroppedInsertion{Insertion: set[i], Reason: r.reason})
	}
	return segs, dropped, nil
}

func (u Usecase) fitOne(ctx context.Context, ins types.ValidatedInsertion, c types.Candidate, path string) (fit.Segment, error) {
	if err := u.d.Fetch.Fetch(ctx, c.Source, path); err != nil {
		return fit.Segment{}, mediaErr("fetch "+c.ID, err)
	}
	src, err := u.d.Video.Probe(ctx, path)
	if err != nil {
		return fit.Segment{}, mediaErr("probe "+c.ID, err)
	}
	return fit.Fit(ins, src)
}
