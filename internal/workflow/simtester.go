package workflow

import (
	"fmt"
	"math/rand"

	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// tester simulates the browser test harness for one component. Results are
// driven by the component's profile so a run is reproducible under a fixed
// seed; the rng only wiggles load timings inside their status band.
type tester struct {
	rng *rand.Rand
	th  scoring.LoadThresholds
}

func newTester(seed int64, th scoring.LoadThresholds) *tester {
	return &tester{rng: rand.New(rand.NewSource(seed)), th: th}
}

// accessibility audits the component. fixesApplied counts the fix attempts
// already made; broken components shed violations as fixes land and test
// clean once all needed fixes are in.
func (t *tester) accessibility(p componentProfile, fixesApplied int) report.TestResult {
	var v report.ViolationCounts
	switch p.pattern {
	case patternMinorIssues:
		v = report.Violations(0, 1, 2, 1)
	case patternA11yBroken:
		remaining := p.fixes - fixesApplied
		switch {
		case remaining <= 0:
			v = report.Violations(0, 0, 1, 1)
		case remaining == 1:
			v = report.Violations(1, 1, 0, 0)
		default:
			v = report.Violations(1, 2, 1, 0)
		}
	case patternSlow:
		v = report.Violations(0, 0, 1, 2)
	case patternLeaky:
		v = report.Violations(0, 0, 2, 1)
	default:
		v = report.Violations(0, 0, 0, 0)
	}

	score := scoring.WeightedScore(v.Critical, v.Serious, v.Moderate, v.Minor)
	return report.Graded(scoring.Accessibility, score, v, axeIssues(p, v))
}

// perfBase holds the load timings and runtime behavior a pattern exhibits.
// extraGrowthPct is synthetic memory growth layered on top of whatever the
// process sampler measured, so leaks show up even in a quiet process.
type perfBase struct {
	fcp, lcp, load, render float64
	changeRate             float64
	domElements            int
	extraGrowthPct         float64
}

var perfBases = map[string]perfBase{
	patternClean:       {fcp: 900, lcp: 1400, load: 2100, render: 600, changeRate: 4, domElements: 420},
	patternMinorIssues: {fcp: 1500, lcp: 2300, load: 2800, render: 900, changeRate: 9, domElements: 780},
	patternA11yBroken:  {fcp: 1100, lcp: 1700, load: 2400, render: 700, changeRate: 6, domElements: 640},
	patternSlow:        {fcp: 3900, lcp: 5400, load: 6800, render: 2300, changeRate: 18, domElements: 2600},
	patternLeaky:       {fcp: 2100, lcp: 3000, load: 3400, render: 1250, changeRate: 52, domElements: 1200, extraGrowthPct: 80},
}

// performance measures the component and scores it. memGrowthPct is the
// growth the process sampler observed around the run; the pattern's
// synthetic growth is added on top before scoring.
func (t *tester) performance(p componentProfile, memGrowthPct float64) (report.TestResult, *scoring.LoadMetrics, *scoring.RuntimeMetrics, *scoring.DOMMetrics) {
	base, ok := perfBases[p.pattern]
	if !ok {
		base = perfBases[patternClean]
	}

	load := &scoring.LoadMetrics{
		FirstContentfulPaint:   base.fcp + t.jitter(),
		LargestContentfulPaint: base.lcp + t.jitter(),
		LoadTime:               base.load + t.jitter(),
		RenderTime:             base.render + t.jitter(),
	}
	rt := &scoring.RuntimeMetrics{
		MemoryGrowthPct:     memGrowthPct + base.extraGrowthPct,
		ChangeDetectionRate: base.changeRate,
	}
	dom := &scoring.DOMMetrics{ElementCount: base.domElements}

	score := scoring.PerformanceScore(load, rt, dom, t.th)
	tr := report.Graded(scoring.Performance, score, report.Violations(0, 0, 0, 0), t.budgetIssues(p, load))
	return tr, load, rt, dom
}

// jitter keeps repeated runs from producing byte-identical timings without
// moving a metric across a status boundary.
func (t *tester) jitter() float64 {
	return float64(t.rng.Intn(80) - 40)
}

// budgetIssues notes each load metric that blew its budget.
func (t *tester) budgetIssues(p componentProfile, load *scoring.LoadMetrics) []report.Issue {
	var issues []report.Issue
	add := func(rule, label string, value, budget float64) {
		if value <= budget {
			return
		}
		issues = append(issues, report.Issue{
			File:     p.path,
			Rule:     rule,
			Message:  fmt.Sprintf("%s %.0fms exceeds %.0fms budget", label, value, budget),
			Severity: "serious",
		})
	}
	add("fcp-budget", "first contentful paint", load.FirstContentfulPaint, t.th.FirstContentfulPaint)
	add("lcp-budget", "largest contentful paint", load.LargestContentfulPaint, t.th.LargestContentfulPaint)
	add("load-budget", "load time", load.LoadTime, t.th.LoadTime)
	add("render-budget", "render time", load.RenderTime, t.th.RenderTime)
	return issues
}

// axe rule pools per severity, cycled through when a pattern reports more
// than one violation at a severity.
var axeRules = map[string][]report.Issue{
	"critical": {
		{Rule: "button-name", Message: "icon button has no accessible name", Severity: "critical"},
		{Rule: "image-alt", Message: "image element missing alt attribute", Severity: "critical"},
	},
	"serious": {
		{Rule: "color-contrast", Message: "text contrast ratio below 4.5:1", Severity: "serious"},
		{Rule: "label", Message: "form field has no associated label", Severity: "serious"},
	},
	"moderate": {
		{Rule: "landmark-one-main", Message: "document has no main landmark", Severity: "moderate"},
		{Rule: "region", Message: "content not contained by landmarks", Severity: "moderate"},
	},
	"minor": {
		{Rule: "tabindex", Message: "element has tabindex greater than 0", Severity: "minor"},
		{Rule: "image-redundant-alt", Message: "alt text repeats nearby text", Severity: "minor"},
	},
}

func axeIssues(p componentProfile, v report.ViolationCounts) []report.Issue {
	var issues []report.Issue
	take := func(severity string, count int) {
		pool := axeRules[severity]
		for i := 0; i < count; i++ {
			issue := pool[i%len(pool)]
			issue.File = p.path
			issues = append(issues, issue)
		}
	}
	take("critical", v.Critical)
	take("serious", v.Serious)
	take("moderate", v.Moderate)
	take("minor", v.Minor)
	return issues
}
