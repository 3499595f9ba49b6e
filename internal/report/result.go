package report

import "github.com/uiprobe/uiprobe/internal/scoring"

// ViolationCounts breaks down how many violations a test found at each
// severity. Total is always the sum of the four buckets.
type ViolationCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// Violations builds a ViolationCounts with Total filled in.
func Violations(critical, serious, moderate, minor int) ViolationCounts {
	return ViolationCounts{
		Critical: critical,
		Serious:  serious,
		Moderate: moderate,
		Minor:    minor,
		Total:    critical + serious + moderate + minor,
	}
}

// Issue is one concrete finding inside a test result, tied to the file it
// was observed in.
type Issue struct {
	File     string `json:"file"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// TestResult is the outcome of testing one component on one dimension.
// PassThreshold records the pass boundary the status was graded against so
// consumers can render "82/90" style readouts without knowing the
// dimension's rules.
type TestResult struct {
	Status        scoring.Status  `json:"status"`
	Score         int             `json:"score"`
	Violations    ViolationCounts `json:"violations"`
	PassThreshold int             `json:"passThreshold"`
	Issues        []Issue         `json:"issues,omitempty"`
}

// Graded builds a TestResult for dim from a clamped score, deriving the
// status and pass threshold from the dimension's rules. Any critical
// violation fails the result outright, even when the weighted score alone
// would only warn.
func Graded(dim scoring.Dimension, score int, violations ViolationCounts, issues []Issue) TestResult {
	status := scoring.StatusFor(dim, score)
	if violations.Critical > 0 {
		status = scoring.StatusFail
	}
	return TestResult{
		Status:        status,
		Score:         score,
		Violations:    violations,
		PassThreshold: scoring.PassThreshold(dim),
		Issues:        issues,
	}
}

// ComponentTestResult collects the per-dimension results for one component.
// Either dimension may be nil when the component was not tested on it; nil
// serializes as JSON null, never as a zero score.
type ComponentTestResult struct {
	Name          string      `json:"name"`
	Path          string      `json:"path"`
	FullName      string      `json:"fullName"`
	Accessibility *TestResult `json:"accessibility"`
	Performance   *TestResult `json:"performance"`
}

// Key returns the identity the aggregator deduplicates on: the unique full
// name when present, otherwise the bare component name.
func (r *ComponentTestResult) Key() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Name
}

// Status rolls the component's tested dimensions into one status.
func (r *ComponentTestResult) Status() scoring.Status {
	statuses := make([]scoring.Status, 0, 2)
	if r.Accessibility != nil {
		statuses = append(statuses, r.Accessibility.Status)
	}
	if r.Performance != nil {
		statuses = append(statuses, r.Performance.Status)
	}
	return scoring.Worst(statuses...)
}

// Clone returns a deep copy so aggregator internals never alias caller
// memory.
func (r *ComponentTestResult) Clone() *ComponentTestResult {
	out := &ComponentTestResult{
		Name:     r.Name,
		Path:     r.Path,
		FullName: r.FullName,
	}
	out.Accessibility = cloneTestResult(r.Accessibility)
	out.Performance = cloneTestResult(r.Performance)
	return out
}

func cloneTestResult(tr *TestResult) *TestResult {
	if tr == nil {
		return nil
	}
	cp := *tr
	if tr.Issues != nil {
		cp.Issues = make([]Issue, len(tr.Issues))
		copy(cp.Issues, tr.Issues)
	}
	return &cp
}
