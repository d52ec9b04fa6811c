package dynamo

import (
	"math"
	"sync/atomic"
	"testing"
)

func TestGridIndex(t *testing.T) {
	g := NewGrid(4)
	if g.Side() != 6 {
		t.Fatalf("Side() = %d, want 6", g.Side())
	}
	if g.Cells() != 216 {
		t.Fatalf("Cells() = %d, want 216", g.Cells())
	}

	tests := []struct {
		i, j, k int
		want    int
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{0, 1, 0, 6},
		{0, 0, 1, 36},
		{5, 5, 5, 215},
	}
	for _, tt := range tests {
		if got := g.Index(tt.i, tt.j, tt.k); got != tt.want {
			t.Errorf("Index(%d,%d,%d) = %d, want %d", tt.i, tt.j, tt.k, got, tt.want)
		}
	}
}

func TestGridContains(t *testing.T) {
	g := NewGrid(4)
	tests := []struct {
		name    string
		i, j, k int
		want    bool
	}{
		{"origin", 0, 0, 0, true},
		{"far corner", 5, 5, 5, true},
		{"past x", 6, 0, 0, false},
		{"negative z", 0, 0, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Contains(tt.i, tt.j, tt.k); got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestField_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		valid bool
	}{
		{"empty", Field{}, true},
		{"normal", Field{1, 2, 3}, true},
		{"with NaN", Field{1, float32(math.NaN())}, false},
		{"with +Inf", Field{float32(math.Inf(1))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestField_SumMaxClone(t *testing.T) {
	f := Field{1, 4, 2}
	if f.Sum() != 7 {
		t.Errorf("Sum() = %v, want 7", f.Sum())
	}
	if f.Max() != 4 {
		t.Errorf("Max() = %v, want 4", f.Max())
	}
	c := f.Clone()
	c[0] = 99
	if f[0] == 99 {
		t.Error("Clone shares storage")
	}
	f.Zero()
	if f.Sum() != 0 {
		t.Error("Zero left values behind")
	}
}

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		seen := make([]int32, n)
		var calls atomic.Int32
		ParallelFor(n, 8, func(start, end int) {
			calls.Add(1)
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, v := range seen {
			if v != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, v)
			}
		}
		if calls.Load() == 0 {
			t.Fatalf("n=%d: fn never called", n)
		}
	}
}

func TestTrigTable(t *testing.T) {
	for _, x := range []float64{-7, -1, 0, 0.3, 1.5, 3, 10} {
		if d := math.Abs(FastSin(x) - math.Sin(x)); d > 1e-5 {
			t.Errorf("FastSin(%v) off by %v", x, d)
		}
	}
	small := NewTrigTable(64)
	if d := math.Abs(small.Sin(math.Pi/2) - 1); d > 1e-3 {
		t.Errorf("64-entry table off by %v at pi/2", d)
	}
}

func TestGridSample(t *testing.T) {
	g := NewGrid(2)
	f := g.NewField()
	f[g.Index(1, 1, 1)] = 1
	f[g.Index(2, 1, 1)] = 3

	tests := []struct {
		name    string
		x, y, z float32
		want    float32
	}{
		{"cell centre", 1, 1, 1, 1},
		{"midpoint", 1.5, 1, 1, 2},
		{"quarter", 1.25, 1, 1, 1.5},
		{"clamped low", -4, 1, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Sample(f, tt.x, tt.y, tt.z); math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("Sample(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
			}
		})
	}
}
