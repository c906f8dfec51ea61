package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/types"
)

// Plan transcribes the A-roll, asks the oracle for insertions and returns
// only the rule-compliant subset. An empty plan is a success.
func (u Usecase) Plan(ctx context.Context, req types.PlanRequest) (types.PlanResult, error) {
	if err := u.checkShape(req); err != nil {
		return types.PlanResult{}, err
	}
	cands, err := u.checkCandidates(req.BRolls)
	if err != nil {
		return types.PlanResult{}, err
	}

	ws, cleanup, err := u.openWorkspace()
	if err != nil {
		return types.PlanResult{}, err
	}
	defer cleanup()
	log := u.log.With(zap.String("request_id", ws.id))

	basePath := ws.file("base", req.ARoll.URL)
	if err := u.d.Fetch.Fetch(ctx, req.ARoll.URL, basePath); err != nil {
		return types.PlanResult{}, mediaErr("fetch a-roll", err)
	}
	base, err := u.d.Video.Probe(ctx, basePath)
	if err != nil {
		return types.PlanResult{}, mediaErr("probe a-roll", err)
	}
	baseSec := base.Duration.Seconds()
	log.Info("a-roll ready", zap.Float64("duration_sec", baseSec), zap.Int("candidates", len(cands)))

	wav := filepath.Join(ws.dir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, basePath, wav); err != nil {
		return types.PlanResult{}, fmt.Errorf("%w: extract audio: %w", types.ErrPlanning, err)
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, ws.dir)
	if err != nil {
		return types.PlanResult{}, fmt.Errorf("%w: transcribe: %w", types.ErrPlanning, err)
	}
	log.Info("transcribed", zap.Int("segments", len(tr.Segments)))

	segs := tr.Segments
	if segs == nil {
		segs = []types.Segment{}
	}
	if len(cands) == 0 {
		return types.PlanResult{Plan: timeline.NewPlan(baseSec, nil), Transcript: segs}, nil
	}

	proposals, err := u.d.Oracle.Propose(ctx, types.OracleInput{
		Segments:      segs,
		BaseDuration:  baseSec,
		Candidates:    oracleCandidates(req.BRolls),
		BaseMetadata:  req.ARoll.Metadata,
		MaxInsertions: u.s.Rules.MaxInsertions,
		MinGapSec:     u.s.Rules.MinGap,
	})
	if err != nil {
		return types.PlanResult{}, fmt.Errorf("%w: oracle: %w", types.ErrPlanning, err)
	}

	set := timeline.ValidateWith(u.s.Rules, proposals, cands, baseSec)
	log.Info("plan validated",
		zap.Int("proposed", len(proposals)),
		zap.Int("accepted", len(set)),
	)
	return types.PlanResult{Plan: timeline.NewPlan(baseSec, set), Transcript: segs}, nil
}

// oracleCandidates strips everything but id and description; the oracle
// never sees where a clip lives.
func oracleCandidates(cs []types.Candidate) []types.OracleCandidate {
	out := make([]types.OracleCandidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, types.OracleCandidate{ID: strings.TrimSpace(c.ID), Description: c.Description})
	}
	return out
}
