package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/evaluator"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/pkg/types"
)

// regressionEpsilon tolerates floating noise in baseline deltas.
const regressionEpsilon = 1e-6

// BaselineLoader fetches a prior run artifact, or nil when none exists.
type BaselineLoader func(ref, artifactPath string) *types.RunResult

// Engine runs the enabled evaluators, aggregates their scores into the
// weighted overall, annotates baseline deltas, and renders the gate verdict.
type Engine struct {
	Registry *evaluator.Registry
	Baseline BaselineLoader
}

// slot is one enabled evaluator's outcome, kept at its declared position so
// the artifact is deterministic regardless of completion order.
type slot struct {
	cfg    config.Evaluator
	impl   evaluator.Evaluator
	result evaluator.Result
	err    error
}

// Run executes every enabled evaluator and assembles the run artifact.
// Evaluators execute concurrently; results are collected in declared order.
// Cancellation stops issuing work and records not-yet-started evaluators as
// errored instead of dropping them.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, set *fixture.Set) *types.RunResult {
	slots := make([]*slot, 0, len(cfg.Evaluators))
	for _, ev := range cfg.Evaluators {
		if !ev.IsEnabled() {
			continue
		}
		impl, ok := e.Registry.Lookup(ev.Type)
		if !ok {
			slog.Warn("unknown evaluator type", "type", ev.Type, "name", ev.Name)
			continue
		}
		slots = append(slots, &slot{cfg: ev, impl: impl})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range slots {
		s := s
		if cerr := evaluator.CheckRequired(s.impl, s.cfg); cerr != nil {
			s.err = cerr
			continue
		}
		g.Go(func() error {
			s.result, s.err = dispatch(gctx, s.impl, cfg, s.cfg, set)
			return nil
		})
	}
	_ = g.Wait()

	return e.assemble(cfg, slots)
}

// dispatch is the boundary that converts panics and foreign errors into the
// evaluator outcome union.
func dispatch(ctx context.Context, impl evaluator.Evaluator, cfg *config.Config, ev config.Evaluator, set *fixture.Set) (res evaluator.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &evaluator.RuntimeError{Evaluator: ev.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if ctx.Err() != nil {
		return evaluator.Result{}, &evaluator.RuntimeError{Evaluator: ev.Name, Err: ctx.Err()}
	}
	res, err = impl.Evaluate(ctx, cfg, ev, set)
	if err != nil {
		var cerr *evaluator.ConfigError
		var rerr *evaluator.RuntimeError
		if !errors.As(err, &cerr) && !errors.As(err, &rerr) {
			err = &evaluator.RuntimeError{Evaluator: ev.Name, Err: err}
		}
	}
	return res, err
}

func (e *Engine) assemble(cfg *config.Config, slots []*slot) *types.RunResult {
	res := &types.RunResult{
		Scores:          make([]types.ScoreItem, 0, len(slots)),
		Failures:        make([]string, 0),
		EvaluatorErrors: make([]string, 0),
		Tables:          make([]types.Table, 0),
		Plots:           make([]types.Plot, 0),
		ArtifactPath:    cfg.Report.ArtifactPath,
	}

	type weighted struct {
		score  float64
		weight float64
	}
	ran := make([]weighted, 0, len(slots))

	for _, s := range slots {
		if s.err != nil {
			slog.Error("evaluator failed", "name", s.cfg.Name, "error", s.err)
			res.EvaluatorErrors = append(res.EvaluatorErrors, fmt.Sprintf("Evaluator '%s' failed to run: %v", s.cfg.Name, s.err))
			continue
		}
		if s.result.Latency != nil {
			res.Latency = s.result.Latency
		}
		if s.result.Cost != nil {
			res.Cost = s.result.Cost
		}
		if s.result.Table != nil {
			res.Tables = append(res.Tables, *s.result.Table)
		}
		if s.result.Plot != nil {
			res.Plots = append(res.Plots, *s.result.Plot)
		}
		res.Scores = append(res.Scores, types.ScoreItem{
			Name:    s.cfg.Name,
			Score:   s.result.Score,
			Metrics: s.result.Metrics,
		})
		res.Failures = append(res.Failures, s.result.Failures...)
		ran = append(ran, weighted{score: s.result.Score, weight: s.cfg.WeightValue()})
	}

	totalWeight := 0.0
	weightedSum := 0.0
	for _, w := range ran {
		totalWeight += w.weight
		weightedSum += w.score * w.weight
	}
	if totalWeight == 0 {
		totalWeight = 1.0
	}
	res.Overall = weightedSum / totalWeight

	res.RegressionOK = e.applyBaseline(cfg, res)
	res.EvaluatorsOK = len(res.EvaluatorErrors) == 0
	res.Gate = types.Gate{
		MinOverallScore: cfg.Gate.MinOverallScore,
		AllowRegression: cfg.Gate.AllowRegression,
		Passed:          res.Overall >= cfg.Gate.MinOverallScore && res.RegressionOK && res.EvaluatorsOK,
	}
	return res
}

// applyBaseline annotates per-evaluator deltas against the prior run and
// reports whether the regression policy holds.
func (e *Engine) applyBaseline(cfg *config.Config, res *types.RunResult) bool {
	if e.Baseline == nil {
		return true
	}
	prior := e.Baseline(cfg.Baseline.Ref, cfg.Report.ArtifactPath)
	if prior == nil {
		return true
	}
	priorScores := make(map[string]float64, len(prior.Scores))
	for _, s := range prior.Scores {
		priorScores[s.Name] = s.Score
	}

	regressionOK := true
	anyDelta := false
	for i := range res.Scores {
		prev, ok := priorScores[res.Scores[i].Name]
		if !ok {
			continue
		}
		delta := res.Scores[i].Score - prev
		res.Scores[i].Delta = &delta
		anyDelta = true
		if delta < -regressionEpsilon {
			regressionOK = false
		}
	}
	if !anyDelta || cfg.Gate.AllowRegression {
		return true
	}
	return regressionOK
}
