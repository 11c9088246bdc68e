package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForSequentialFallback(t *testing.T) {
	cfg := Config{Enabled: false}
	var sum int64
	For(100, func(i int) {
		sum += int64(i)
	}, cfg)
	if sum != 4950 {
		t.Errorf("sum = %d, want 4950", sum)
	}
}

func TestForParallelCoversRange(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}
	hits := make([]atomic.Int32, 1000)
	For(1000, func(i int) {
		hits[i].Add(1)
	}, cfg)
	for i := range hits {
		if hits[i].Load() != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, hits[i].Load())
		}
	}
}

func TestForBatch(t *testing.T) {
	cfg := Config{Enabled: false}
	visited := make(map[[2]int]bool)
	ForBatch(3, 4, func(b, c int) {
		visited[[2]int{b, c}] = true
	}, cfg)
	if len(visited) != 12 {
		t.Errorf("visited %d pairs, want 12", len(visited))
	}
}
