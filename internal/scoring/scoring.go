package scoring

// Status classifies a test outcome for one component on one dimension.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Dimension identifies a test dimension. Each dimension carries its own
// pass/warning thresholds because an accessibility failure is treated as
// more severe than an equivalent performance regression.
type Dimension string

const (
	Accessibility Dimension = "accessibility"
	Performance   Dimension = "performance"
)

// Violation score weights by severity. A single critical violation costs a
// quarter of the full score.
const (
	weightCritical = 25
	weightSerious  = 10
	weightModerate = 3
	weightMinor    = 1
)

// WeightedScore converts violation counts into a 0-100 score by subtracting
// severity-weighted penalties from 100. The result is clamped so heavily
// broken components bottom out at 0 rather than going negative.
func WeightedScore(critical, serious, moderate, minor int) int {
	score := 100 -
		weightCritical*critical -
		weightSerious*serious -
		weightModerate*moderate -
		weightMinor*minor
	return clampInt(score, 0, 100)
}

// PassThreshold returns the minimum score that counts as a pass on dim.
func PassThreshold(dim Dimension) int {
	if dim == Accessibility {
		return 90
	}
	return 70
}

// warnThreshold returns the minimum score that counts as a warning on dim.
// Below it the status is fail.
func warnThreshold(dim Dimension) int {
	if dim == Accessibility {
		return 70
	}
	return 50
}

// StatusFor maps a clamped score to a status using dim's thresholds:
// accessibility passes at 90 and warns at 70, performance passes at 70 and
// warns at 50.
func StatusFor(dim Dimension, score int) Status {
	switch {
	case score >= PassThreshold(dim):
		return StatusPass
	case score >= warnThreshold(dim):
		return StatusWarning
	default:
		return StatusFail
	}
}

// statusRank orders statuses by severity. Higher is worse.
func statusRank(s Status) int {
	switch s {
	case StatusFail:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Worst returns the most severe of the given statuses: fail dominates
// warning, warning dominates pass. With no arguments it returns StatusPass.
func Worst(statuses ...Status) Status {
	worst := StatusPass
	for _, s := range statuses {
		if statusRank(s) > statusRank(worst) {
			worst = s
		}
	}
	return worst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
