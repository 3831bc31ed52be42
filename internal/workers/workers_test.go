package workers

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"I/O-bound task (2.0x multiplier)", 2.0, 0, 1, availableCPU * 2},
		{"With limit lower than calculated", 2.0, 2, 1, 2},
		{"Tiny multiplier still yields one worker", 0.01, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	t.Setenv(OverrideEnv, "7")
	if got := Count(1.0, 0); got != 7 {
		t.Errorf("Count with override = %d, want 7", got)
	}
	if got := Count(1.0, 4); got != 4 {
		t.Errorf("Count with override above limit = %d, want 4", got)
	}

	t.Setenv(OverrideEnv, "not-a-number")
	if got := Count(1.0, 1); got != 1 {
		t.Errorf("Count with invalid override = %d, want 1", got)
	}
}

func TestForHelpers(t *testing.T) {
	t.Setenv(OverrideEnv, "")
	if ForCPU(0) > ForIO(0) {
		t.Errorf("ForCPU (%d) should not exceed ForIO (%d)", ForCPU(0), ForIO(0))
	}
	if ForIO(3) > 3 {
		t.Errorf("ForIO(3) = %d, exceeds limit", ForIO(3))
	}
}

func TestOrderedMapPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0}

	results, err := OrderedMap(context.Background(), items, 3, func(v int) int {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10
	})
	if err != nil {
		t.Fatalf("OrderedMap() error = %v", err)
	}

	for i, v := range items {
		if results[i] != v*10 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], v*10)
		}
	}
}

func TestOrderedMapBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	_, err := OrderedMap(context.Background(), items, 2, func(int) struct{} {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}
	})
	if err != nil {
		t.Fatalf("OrderedMap() error = %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("Peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestOrderedMapEmpty(t *testing.T) {
	results, err := OrderedMap(context.Background(), []string{}, 4, func(s string) int { return len(s) })
	if err != nil || len(results) != 0 {
		t.Errorf("OrderedMap(empty) = %v, %v", results, err)
	}
}

func TestOrderedMapCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OrderedMap(ctx, []int{1, 2, 3, 4, 5, 6, 7, 8}, 1, func(v int) int { return v })
	if err == nil {
		t.Error("Expected an error from a canceled context")
	}
}
