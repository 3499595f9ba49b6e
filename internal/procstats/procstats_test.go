package procstats

import (
	"testing"
	"time"
)

func TestSamplerReadsOwnProcess(t *testing.T) {
	s, err := NewSampler()
	if err != nil {
		t.Fatalf("NewSampler error: %v", err)
	}

	snap, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample error: %v", err)
	}
	if snap.RSSBytes == 0 {
		t.Error("RSSBytes = 0, a live process has resident memory")
	}
	if snap.Goroutines < 1 {
		t.Errorf("Goroutines = %d, want at least 1", snap.Goroutines)
	}
	if snap.TakenAt.IsZero() {
		t.Error("TakenAt not stamped")
	}
}

func TestMemoryGrowthPct(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name          string
		before, after uint64
		want          float64
	}{
		{"no change", 1000, 1000, 0},
		{"shrank", 1000, 800, 0},
		{"grew half", 1000, 1500, 50},
		{"doubled", 1000, 2000, 100},
		{"zero baseline", 0, 500, 0},
	}

	for _, tt := range tests {
		got := MemoryGrowthPct(
			Snapshot{RSSBytes: tt.before, TakenAt: base},
			Snapshot{RSSBytes: tt.after, TakenAt: base.Add(time.Second)},
		)
		if got != tt.want {
			t.Errorf("%s: MemoryGrowthPct(%d→%d) = %v, want %v", tt.name, tt.before, tt.after, got, tt.want)
		}
	}
}
