package report

import (
	"sync"

	"github.com/uiprobe/uiprobe/internal/scoring"
)

// Aggregator accumulates ComponentTestResult entries as pool workers finish
// them, in no particular order, and folds them into a WorkflowSummary on
// demand. It owns summary construction exclusively; nothing else in the
// system builds a WorkflowSummary.
//
// Add may be called concurrently. Results for a component already seen merge
// per dimension, so a retest after a fix overwrites only the dimension it
// re-ran.
type Aggregator struct {
	mu      sync.Mutex
	results map[string]*ComponentTestResult
	order   []string
}

func NewAggregator() *Aggregator {
	return &Aggregator{results: make(map[string]*ComponentTestResult)}
}

// Add records one component's results. The first entry for a component fixes
// its position in the score table; later entries for the same component
// overwrite whichever dimensions they carry and leave the other untouched.
func (a *Aggregator) Add(r ComponentTestResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := r.Key()
	existing, ok := a.results[key]
	if !ok {
		a.results[key] = r.Clone()
		a.order = append(a.order, key)
		return
	}

	existing.Name = r.Name
	existing.Path = r.Path
	existing.FullName = r.FullName
	if r.Accessibility != nil {
		existing.Accessibility = cloneTestResult(r.Accessibility)
	}
	if r.Performance != nil {
		existing.Performance = cloneTestResult(r.Performance)
	}
}

// Len reports how many distinct components have results so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Results returns copies of the accumulated entries in first-seen order.
func (a *Aggregator) Results() []ComponentTestResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ComponentTestResult, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.results[key].Clone())
	}
	return out
}

// Summary folds everything accumulated so far into a WorkflowSummary.
// Dimensions nobody was tested on come back as nil rollups and are excluded
// from the overall score; summarizing zero components yields an empty
// passing summary rather than an error.
func (a *Aggregator) Summary() WorkflowSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		a11y       rollupAccum
		perf       rollupAccum
		components = make([]ComponentScore, 0, len(a.order))
	)

	for _, key := range a.order {
		r := a.results[key]
		row := ComponentScore{Name: r.Name}
		if r.Accessibility != nil {
			a11y.add(r.Accessibility)
			row.Accessibility = &DimensionScore{Score: r.Accessibility.Score, Status: r.Accessibility.Status}
		}
		if r.Performance != nil {
			perf.add(r.Performance)
			row.Performance = &DimensionScore{Score: r.Performance.Score, Status: r.Performance.Status}
		}
		components = append(components, row)
	}

	summary := WorkflowSummary{
		TotalComponents: len(a.order),
		Accessibility:   a11y.rollup(),
		Performance:     perf.rollup(),
		Components:      components,
	}

	statuses := make([]scoring.Status, 0, 2)
	scoreSum, scoreN := 0.0, 0
	for _, ru := range []*DimensionRollup{summary.Accessibility, summary.Performance} {
		if ru == nil {
			continue
		}
		statuses = append(statuses, ru.Status)
		scoreSum += ru.AverageScore
		scoreN++
	}
	summary.OverallStatus = scoring.Worst(statuses...)
	if scoreN > 0 {
		summary.OverallScore = scoreSum / float64(scoreN)
	}
	return summary
}

// rollupAccum accumulates one dimension's counts while walking the result
// set.
type rollupAccum struct {
	scoreSum int
	tested   int
	passed   int
	warnings int
	failed   int
	worst    scoring.Status
}

func (c *rollupAccum) add(tr *TestResult) {
	if c.tested == 0 {
		c.worst = tr.Status
	} else {
		c.worst = scoring.Worst(c.worst, tr.Status)
	}
	c.tested++
	c.scoreSum += tr.Score
	switch tr.Status {
	case scoring.StatusPass:
		c.passed++
	case scoring.StatusWarning:
		c.warnings++
	case scoring.StatusFail:
		c.failed++
	}
}

func (c *rollupAccum) rollup() *DimensionRollup {
	if c.tested == 0 {
		return nil
	}
	return &DimensionRollup{
		Status:       c.worst,
		AverageScore: float64(c.scoreSum) / float64(c.tested),
		Passed:       c.passed,
		Warnings:     c.warnings,
		Failed:       c.failed,
		Tested:       c.tested,
	}
}
