package scoring

import "math"

// LoadThresholds holds the per-metric budgets, in milliseconds, that the
// initial-load penalties are normalized against. A metric at or under its
// budget contributes no penalty; at double the budget it contributes its
// full penalty weight.
type LoadThresholds struct {
	FirstContentfulPaint   float64 `yaml:"first_contentful_paint_ms" json:"firstContentfulPaint"`
	LargestContentfulPaint float64 `yaml:"largest_contentful_paint_ms" json:"largestContentfulPaint"`
	LoadTime               float64 `yaml:"load_time_ms" json:"loadTime"`
	RenderTime             float64 `yaml:"render_time_ms" json:"renderTime"`
}

// DefaultLoadThresholds returns the budgets used when no configuration
// overrides them. FCP and LCP follow the common web-vitals "good" bounds.
func DefaultLoadThresholds() LoadThresholds {
	return LoadThresholds{
		FirstContentfulPaint:   1800,
		LargestContentfulPaint: 2500,
		LoadTime:               3000,
		RenderTime:             1000,
	}
}

// LoadMetrics are the initial-load measurements for one component, in
// milliseconds.
type LoadMetrics struct {
	FirstContentfulPaint   float64 `json:"firstContentfulPaint"`
	LargestContentfulPaint float64 `json:"largestContentfulPaint"`
	LoadTime               float64 `json:"loadTime"`
	RenderTime             float64 `json:"renderTime"`
}

// RuntimeMetrics are measurements taken while the component was exercised.
// A non-empty Error marks the whole sample as unusable; its penalty terms
// are then omitted from the score rather than treated as zero or maximal.
type RuntimeMetrics struct {
	MemoryGrowthPct     float64 `json:"memoryGrowthPercent"`
	ChangeDetectionRate float64 `json:"changeDetectionRate"`
	Error               string  `json:"error,omitempty"`
}

// DOMMetrics describe the rendered output size. A non-empty Error marks the
// sample as unusable, same as RuntimeMetrics.
type DOMMetrics struct {
	ElementCount int    `json:"elementCount"`
	Error        string `json:"error,omitempty"`
}

// Penalty weights per metric. They sum to 100 so a component that blows
// every budget by 2x or more scores exactly 0.
const (
	penaltyFCP    = 15.0
	penaltyLCP    = 20.0
	penaltyLoad   = 15.0
	penaltyRender = 10.0
	penaltyMemory = 15.0
	penaltyChange = 10.0
	penaltyDOM    = 15.0
)

// Normalization limits for the non-load terms: memory growth of 50% over a
// test run, 60 change-detection cycles per second, and 1500 DOM elements
// each cost the full penalty weight.
const (
	memoryGrowthLimitPct = 50.0
	changeRateLimit      = 60.0
	domElementBudget     = 1500.0
)

// PerformanceScore blends bounded penalties from load, runtime, and DOM
// metrics into one 0-100 score. Nil or error-flagged metric groups are
// skipped entirely, so an incomplete measurement neither inflates nor
// tanks the score.
func PerformanceScore(load *LoadMetrics, rt *RuntimeMetrics, dom *DOMMetrics, th LoadThresholds) int {
	penalty := 0.0

	if load != nil {
		penalty += overshoot(load.FirstContentfulPaint, th.FirstContentfulPaint) * penaltyFCP
		penalty += overshoot(load.LargestContentfulPaint, th.LargestContentfulPaint) * penaltyLCP
		penalty += overshoot(load.LoadTime, th.LoadTime) * penaltyLoad
		penalty += overshoot(load.RenderTime, th.RenderTime) * penaltyRender
	}

	if rt != nil && rt.Error == "" {
		penalty += unit(rt.MemoryGrowthPct/memoryGrowthLimitPct) * penaltyMemory
		penalty += unit(rt.ChangeDetectionRate/changeRateLimit) * penaltyChange
	}

	if dom != nil && dom.Error == "" {
		over := (float64(dom.ElementCount) - domElementBudget) / domElementBudget
		penalty += unit(over) * penaltyDOM
	}

	return clampInt(100-int(math.Round(penalty)), 0, 100)
}

// overshoot returns how far value exceeds budget as a fraction of budget,
// clamped to [0,1]. Values at or under budget cost nothing.
func overshoot(value, budget float64) float64 {
	if budget <= 0 || value <= budget {
		return 0
	}
	return unit((value - budget) / budget)
}

// unit clamps f to [0,1].
func unit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
