package optim

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/san-kum/pidsim/internal/metrics"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

func oscillatorLoops() *sim.Loop {
	return sim.New(plants.New(plants.SecondOrder), nil, sim.WithMetrics(metrics.NewIAE()))
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: got %f, want %f", i, got[i], want[i])
		}
	}
	if len(Linspace(3, 4, 1)) != 1 {
		t.Error("n=1 should return a single value")
	}
}

func TestGridSearchEnumeratesAllPoints(t *testing.T) {
	g := NewGridSearch([]string{"kp", "ki"}, [][]float64{{0, 1, 2}, {0.5, 1}})
	var points []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &points)

	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	seen := map[[2]float64]bool{}
	for _, p := range points {
		seen[[2]float64{p["kp"], p["ki"]}] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct points, got %d", len(seen))
	}
}

func TestGridSearchFindsBest(t *testing.T) {
	g := NewGridSearch(
		[]string{"ki"},
		[][]float64{{0, 0.2, 0.5}},
		WithLogger(zap.NewNop()),
		WithWorkers(2),
	)
	base := sim.Params{Setpoint: 1, Runtime: 20, Dt: 0.05}

	best, score, err := g.Search(context.Background(), oscillatorLoops, base, "iae")
	if err != nil {
		t.Fatal(err)
	}

	// with ki = 0 the output never moves, so any integral action beats it
	if best["ki"] == 0 {
		t.Errorf("expected a non-zero ki, got %v", best)
	}

	outcomes, err := g.Evaluate(context.Background(), oscillatorLoops, base, "iae",
		[]map[string]float64{{"ki": 0}})
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Score <= score {
		t.Errorf("open loop IAE %f should exceed best %f", outcomes[0].Score, score)
	}
}

func TestGridSearchErrors(t *testing.T) {
	base := sim.Params{Setpoint: 1, Runtime: 1, Dt: 0.05}

	g := NewGridSearch([]string{"kp"}, [][]float64{{1}, {2}})
	if _, _, err := g.Search(context.Background(), oscillatorLoops, base, "iae"); err == nil {
		t.Error("expected error for mismatched ranges")
	}

	g = NewGridSearch([]string{"gain"}, [][]float64{{1}})
	if _, _, err := g.Search(context.Background(), oscillatorLoops, base, "iae"); err == nil {
		t.Error("expected error for unknown parameter")
	}

	g = NewGridSearch([]string{"kp"}, [][]float64{{1, 2}})
	if _, _, err := g.Search(context.Background(), oscillatorLoops, base, "missing"); err == nil {
		t.Error("expected error when no run records the metric")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Search(ctx, oscillatorLoops, base, "iae"); err == nil {
		t.Error("expected error for canceled context")
	}
}
