package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uiprobe/uiprobe/internal/config"
	"github.com/uiprobe/uiprobe/internal/emit"
	"github.com/uiprobe/uiprobe/internal/procstats"
	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/runctx"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// RunSpec is one workflow request: which repo to test, optionally narrowed
// to specific components and test dimensions.
type RunSpec struct {
	RepoPath   string   `json:"repoPath"`
	Components []string `json:"components,omitempty"`
	Tests      []string `json:"tests,omitempty"`
}

// Runner executes workflow runs: it discovers components, drives each one
// through the test and fix cycle on a bounded worker pool, and publishes the
// whole run as events on the session carried by the context. The caller owns
// session setup; a context without a session still runs to completion, the
// events just go nowhere.
type Runner struct {
	cfg     config.WorkflowConfig
	th      scoring.LoadThresholds
	emit    *emit.Emitter
	sampler *procstats.Sampler
	log     *zap.Logger
}

// NewRunner builds a Runner. sampler may be nil, in which case measured
// memory growth is reported as zero.
func NewRunner(cfg config.WorkflowConfig, th scoring.LoadThresholds, em *emit.Emitter, sampler *procstats.Sampler, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg, th: th, emit: em, sampler: sampler, log: log}
}

// Run executes one workflow to completion. On success the session is
// completed with the summary; any failure publishes an error event and
// fails the session. Cancelling ctx aborts in-flight component tasks.
func (r *Runner) Run(ctx context.Context, spec RunSpec) error {
	if spec.RepoPath == "" {
		err := errors.New("repo path required")
		r.emit.Error(ctx, err.Error(), "setup")
		return err
	}

	seed := r.seed()
	rng := rand.New(rand.NewSource(seed))
	profiles := discover(spec.RepoPath, spec.Components, rng)
	tests := r.testMatrix(spec.Tests)

	log := r.log.With(
		zap.String("session", runctx.SessionID(ctx)),
		zap.String("repo", spec.RepoPath),
	)
	log.Info("workflow starting",
		zap.Int("components", len(profiles)),
		zap.Strings("tests", tests),
		zap.Int64("seed", seed),
	)

	r.emit.Started(ctx, spec.RepoPath)
	r.emit.Progress(ctx, "cloning repository", "setup", 1, 3)
	r.emit.ToolCall(ctx, "git_clone", map[string]any{"url": spec.RepoPath})
	r.pause(ctx)
	r.emit.Progress(ctx, "discovering components", "setup", 2, 3)
	r.emit.ToolCall(ctx, "list_components", map[string]any{"path": spec.RepoPath})
	r.pause(ctx)
	r.emit.Progress(ctx, "planning test matrix", "setup", 3, 3)
	r.emit.WorkflowStart(ctx, fmt.Sprintf("testing %d components", len(profiles)), len(profiles), tests)

	agg := report.NewAggregator()
	var finished atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, p := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.runComponent(gctx, p, seed, tests, agg)
			if err != nil {
				return err
			}
			n := int(finished.Add(1))
			r.emit.Progress(gctx, fmt.Sprintf("%s finished: %s", p.name, res.Status()), "testing", n, len(profiles))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("workflow failed", zap.Error(err))
		r.emit.Error(ctx, err.Error(), "testing")
		return err
	}

	summary := agg.Summary()
	r.emit.Summary(ctx, summary)
	r.emit.Completed(ctx, summary)
	log.Info("workflow complete",
		zap.Int("components", summary.TotalComponents),
		zap.String("status", string(summary.OverallStatus)),
		zap.Float64("score", summary.OverallScore),
	)
	return nil
}

// runComponent tests one component on each requested dimension and records
// the result. The worker derives a component-scoped context so everything
// emitted below carries the component name.
func (r *Runner) runComponent(ctx context.Context, p componentProfile, baseSeed int64, tests []string, agg *report.Aggregator) (*report.ComponentTestResult, error) {
	ctx = runctx.WithComponent(ctx, p.name)
	t := newTester(baseSeed^int64(hash64(p.name)), r.th)

	r.emit.ComponentStatus(ctx, "", "", "analyzing", "inspecting component source", map[string]any{"path": p.path})
	r.emit.ToolCall(ctx, "render_component", map[string]any{"component": p.name, "path": p.path})
	r.pause(ctx)

	res := &report.ComponentTestResult{
		Name:     p.name,
		Path:     p.path,
		FullName: p.path + ":" + p.name,
	}

	for _, dim := range tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch scoring.Dimension(dim) {
		case scoring.Accessibility:
			tr := r.auditAccessibility(ctx, p, t)
			res.Accessibility = &tr
		case scoring.Performance:
			tr := r.measurePerformance(ctx, p, t)
			res.Performance = &tr
		}
	}

	agg.Add(*res)
	r.emit.ComponentResult(ctx, p.name, res.Status(), *res)
	r.emit.WorkflowComponentResult(ctx, *res)
	return res, nil
}

// auditAccessibility runs the audit through the fix loop: failing audits get
// a fix suggestion, a simulated patch, and a retest, until the component
// passes or the attempt budget is spent.
func (r *Runner) auditAccessibility(ctx context.Context, p componentProfile, t *tester) report.TestResult {
	loop := newFixLoop(r.cfg.MaxFixAttempts)

	r.emit.ComponentStatus(ctx, "", "axe_audit", string(phaseTesting), "running accessibility audit", nil)
	r.pause(ctx)
	tr := t.accessibility(p, loop.attempts())

	for loop.observe(tr.Status) == phaseFixing {
		attempt := loop.attempts()
		r.emit.FixSuggestion(ctx, suggestionFor(p, tr, attempt))
		r.emit.ComponentStatus(ctx, "", "", string(phaseFixing),
			fmt.Sprintf("applying fix attempt %d of %d", attempt, r.cfg.MaxFixAttempts), nil)
		r.emit.ToolCall(ctx, "apply_patch", map[string]any{"file": p.path, "attempt": attempt})
		r.pause(ctx)

		loop.retesting()
		r.emit.ComponentStatus(ctx, "", "axe_audit", string(phaseRetesting), "re-running accessibility audit", nil)
		r.pause(ctx)
		tr = t.accessibility(p, attempt)
	}

	if loop.phase == phaseSkipped {
		r.emit.ComponentStatus(ctx, "", "", string(phaseSkipped),
			fmt.Sprintf("unresolved after %d fix attempts", loop.attempts()),
			map[string]any{"score": tr.Score})
		r.log.Warn("component skipped",
			zap.String("component", p.name),
			zap.Int("attempts", loop.attempts()),
			zap.Int("score", tr.Score),
		)
	}
	return tr
}

// measurePerformance samples process memory around the simulated run so the
// growth number reflects this process, then scores the measurements.
func (r *Runner) measurePerformance(ctx context.Context, p componentProfile, t *tester) report.TestResult {
	r.emit.ComponentStatus(ctx, "", "perf_probe", string(phaseTesting), "measuring load and runtime performance", nil)

	var before procstats.Snapshot
	sampled := false
	if r.sampler != nil {
		if snap, err := r.sampler.Sample(); err == nil {
			before, sampled = snap, true
		}
	}

	r.emit.ToolCall(ctx, "measure_performance", map[string]any{"component": p.name})
	r.pause(ctx)

	growth := 0.0
	if sampled {
		if after, err := r.sampler.Sample(); err == nil {
			growth = procstats.MemoryGrowthPct(before, after)
		}
	}

	tr, load, rt, dom := t.performance(p, growth)
	r.emit.ComponentStatus(ctx, "", "perf_probe", "tested",
		fmt.Sprintf("performance score %d", tr.Score),
		map[string]any{"load": load, "runtime": rt, "dom": dom})
	return tr
}

// testMatrix resolves which dimensions to run: the request wins, then the
// configured default, then both. Unknown names are dropped.
func (r *Runner) testMatrix(requested []string) []string {
	src := requested
	if len(src) == 0 {
		src = r.cfg.Tests
	}
	if len(src) == 0 {
		src = []string{string(scoring.Accessibility), string(scoring.Performance)}
	}
	seen := make(map[string]bool, len(src))
	out := make([]string, 0, len(src))
	for _, name := range src {
		switch scoring.Dimension(name) {
		case scoring.Accessibility, scoring.Performance:
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		default:
			r.log.Warn("ignoring unknown test dimension", zap.String("test", name))
		}
	}
	return out
}

// pause sleeps the configured step delay, or until ctx is cancelled. A zero
// delay keeps tests instant.
func (r *Runner) pause(ctx context.Context) {
	if r.cfg.StepDelay <= 0 {
		return
	}
	timer := time.NewTimer(r.cfg.StepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *Runner) workers() int {
	if r.cfg.Workers > 0 {
		return r.cfg.Workers
	}
	return 1
}

func (r *Runner) seed() int64 {
	if r.cfg.Seed != 0 {
		return r.cfg.Seed
	}
	return time.Now().UnixNano()
}
