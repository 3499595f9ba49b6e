package report

import "github.com/uiprobe/uiprobe/internal/scoring"

// DimensionRollup aggregates one test dimension across every component that
// was actually tested on it. AverageScore is computed over tested components
// only; untested components do not drag it down.
type DimensionRollup struct {
	Status       scoring.Status `json:"status"`
	AverageScore float64        `json:"averageScore"`
	Passed       int            `json:"passed"`
	Warnings     int            `json:"warnings"`
	Failed       int            `json:"failed"`
	Tested       int            `json:"tested"`
}

// DimensionScore is one cell of the per-component score table.
type DimensionScore struct {
	Score  int            `json:"score"`
	Status scoring.Status `json:"status"`
}

// ComponentScore is one row of the per-component score table. A nil
// dimension means the component was never tested on it and renders as null.
type ComponentScore struct {
	Name          string          `json:"name"`
	Accessibility *DimensionScore `json:"accessibility"`
	Performance   *DimensionScore `json:"performance"`
}

// WorkflowSummary is the workflow-level rollup published as the `summary`
// event. OverallStatus is the most severe status among the per-dimension
// rollups; OverallScore is the mean of the rollup averages that are present.
type WorkflowSummary struct {
	TotalComponents int              `json:"totalComponents"`
	OverallStatus   scoring.Status   `json:"overallStatus"`
	OverallScore    float64          `json:"overallScore"`
	Accessibility   *DimensionRollup `json:"accessibility"`
	Performance     *DimensionRollup `json:"performance"`
	Components      []ComponentScore `json:"components"`
}
