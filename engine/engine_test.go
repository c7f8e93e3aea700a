package engine

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestStartDefaults(t *testing.T) {
	eng, err := Start(Config{Seed: 42})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer eng.Shutdown()

	if eng.Threads() != runtime.NumCPU() {
		t.Errorf("default threads = %d, want %d", eng.Threads(), runtime.NumCPU())
	}
	if eng.MaxMemBytes() != 0 {
		t.Errorf("default max mem = %d, want 0", eng.MaxMemBytes())
	}
	if eng.Seed() != 42 {
		t.Errorf("seed = %d, want 42", eng.Seed())
	}
}

func TestStartInvalidThreads(t *testing.T) {
	if _, err := Start(Config{MaxThreads: -1}); err == nil {
		t.Error("negative thread count should be rejected")
	}
}

func TestParseMemString(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "512m", want: 512 << 20},
		{in: "4g", want: 4 << 30},
		{in: "64k", want: 64 << 10},
		{in: "1024", want: 1024},
		{in: "2G", want: 2 << 30},
		{in: "", wantErr: true},
		{in: "lots", wantErr: true},
		{in: "-1g", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMemString(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMemString(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMemString(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMemString(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParallelizeCoversAllItems(t *testing.T) {
	eng, err := Start(Config{MaxThreads: 4, Seed: 1})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer eng.Shutdown()

	const items = 1003
	var visited [items]int32
	err = eng.Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visited[i], 1)
		}
	})
	if err != nil {
		t.Fatalf("Parallelize failed: %v", err)
	}

	for i, count := range visited {
		if count != 1 {
			t.Fatalf("item %d visited %d times", i, count)
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	eng, _ := Start(Config{MaxThreads: 2, Seed: 1})
	defer eng.Shutdown()

	called := false
	if err := eng.Parallelize(0, func(start, end int) { called = true }); err != nil {
		t.Fatalf("Parallelize failed: %v", err)
	}
	if called {
		t.Error("fn should not be called for zero items")
	}
}

func TestParallelizeRecoversPanic(t *testing.T) {
	eng, _ := Start(Config{MaxThreads: 2, Seed: 1})
	defer eng.Shutdown()

	err := eng.Parallelize(100, func(start, end int) {
		panic("worker exploded")
	})
	if err == nil {
		t.Fatal("panic in worker should surface as error")
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	eng, _ := Start(Config{MaxThreads: 8, Seed: 1})
	defer eng.Shutdown()

	var calls int32
	err := eng.ParallelizeWithThreshold(10, 100, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 10 {
			t.Errorf("sequential range = [%d, %d), want [0, 10)", start, end)
		}
	})
	if err != nil {
		t.Fatalf("ParallelizeWithThreshold failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected single sequential call, got %d", calls)
	}
}
