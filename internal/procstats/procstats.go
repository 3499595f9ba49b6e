package procstats

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one point-in-time reading of the test process.
type Snapshot struct {
	RSSBytes   uint64    `json:"rssBytes"`
	CPUPercent float64   `json:"cpuPercent"`
	Goroutines int       `json:"goroutines"`
	TakenAt    time.Time `json:"takenAt"`
}

// Sampler reads resource usage of this process. The workflow runner brackets
// each component's test run with two samples to derive the memory-growth
// percentage the performance score consumes; the health endpoint reports
// the latest numbers directly.
type Sampler struct {
	proc *process.Process
}

// NewSampler binds a sampler to the current process.
func NewSampler() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", os.Getpid(), err)
	}
	return &Sampler{proc: proc}, nil
}

// Sample takes one reading. CPUPercent is measured since the previous call,
// so the first reading reports 0.
func (s *Sampler) Sample() (Snapshot, error) {
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("memory info: %w", err)
	}
	cpu, err := s.proc.Percent(0)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cpu percent: %w", err)
	}
	return Snapshot{
		RSSBytes:   mem.RSS,
		CPUPercent: cpu,
		Goroutines: runtime.NumGoroutine(),
		TakenAt:    time.Now(),
	}, nil
}

// MemoryGrowthPct returns how much RSS grew between two snapshots as a
// percentage of the earlier reading. Shrinking memory reports 0, not a
// negative growth.
func MemoryGrowthPct(before, after Snapshot) float64 {
	if before.RSSBytes == 0 || after.RSSBytes <= before.RSSBytes {
		return 0
	}
	grown := after.RSSBytes - before.RSSBytes
	return float64(grown) / float64(before.RSSBytes) * 100
}
