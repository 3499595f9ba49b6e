package workflow

import "github.com/uiprobe/uiprobe/internal/scoring"

// fixPhase is the state of one component's fix iteration.
type fixPhase string

const (
	phaseTesting   fixPhase = "testing"
	phaseFixing    fixPhase = "fixing"
	phaseRetesting fixPhase = "retesting"
	phasePassed    fixPhase = "passed"
	phaseSkipped   fixPhase = "skipped"
)

// fixLoop drives the test-fix-retest cycle for one dimension. Only a hard
// fail triggers a fix attempt; warnings are accepted as-is. Once the attempt
// budget is spent the component is skipped and its last failing result
// stands.
type fixLoop struct {
	maxAttempts int
	attempt     int
	phase       fixPhase
}

func newFixLoop(maxAttempts int) *fixLoop {
	return &fixLoop{maxAttempts: maxAttempts, phase: phaseTesting}
}

// observe feeds the latest test status into the loop and returns the next
// phase: phaseFixing means the caller should apply a fix and retest,
// phasePassed and phaseSkipped are terminal.
func (l *fixLoop) observe(st scoring.Status) fixPhase {
	if st != scoring.StatusFail {
		l.phase = phasePassed
		return l.phase
	}
	if l.attempt >= l.maxAttempts {
		l.phase = phaseSkipped
		return l.phase
	}
	l.attempt++
	l.phase = phaseFixing
	return l.phase
}

// retesting marks the loop as re-running the test after a fix.
func (l *fixLoop) retesting() {
	l.phase = phaseRetesting
}

// attempts reports how many fixes have been applied so far.
func (l *fixLoop) attempts() int {
	return l.attempt
}
