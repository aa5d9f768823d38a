package sweep

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/obslab/internal/config"
	"github.com/san-kum/obslab/internal/sim"
)

func shortConfig() *config.Config {
	cfg := config.Default()
	cfg.Steps = 50
	return cfg
}

func TestRunGrid(t *testing.T) {
	points, err := Run(context.Background(), shortConfig(), AxisDamping, 0, 1, 5, 2)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}

	want := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for i, pt := range points {
		if pt.Value != want[i] {
			t.Errorf("points[%d].Value = %v, want %v", i, pt.Value, want[i])
		}
		if pt.Err != nil {
			t.Errorf("points[%d] errored: %v", i, pt.Err)
		}
		if math.IsNaN(pt.FinalError) || pt.FinalError < 0 {
			t.Errorf("points[%d].FinalError = %v", i, pt.FinalError)
		}
		if pt.Settled < -1 || pt.Settled >= 50 {
			t.Errorf("points[%d].Settled = %d out of range", i, pt.Settled)
		}
	}
}

func TestRunSinglePoint(t *testing.T) {
	points, err := Run(context.Background(), shortConfig(), AxisStiffness, 2.0, 9.0, 1, 0)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if points[0].Value != 2.0 {
		t.Errorf("single point value = %v, want the grid start", points[0].Value)
	}
	if points[0].Err != nil {
		t.Errorf("single point errored: %v", points[0].Err)
	}
}

func TestRunUnknownAxis(t *testing.T) {
	_, err := Run(context.Background(), shortConfig(), Axis("mass"), 0, 1, 3, 1)
	if !errors.Is(err, ErrBadAxis) {
		t.Errorf("err = %v, want ErrBadAxis", err)
	}
}

func TestRunBadCount(t *testing.T) {
	_, err := Run(context.Background(), shortConfig(), AxisDamping, 0, 1, 0, 1)
	if !errors.Is(err, ErrBadGrid) {
		t.Errorf("err = %v, want ErrBadGrid", err)
	}
}

func TestRunRecordsInvalidPoints(t *testing.T) {
	// Negative dt values fail per-point validation without failing the sweep.
	points, err := Run(context.Background(), shortConfig(), AxisDt, -0.1, -0.1, 2, 1)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	for i, pt := range points {
		if !errors.Is(pt.Err, config.ErrInvalid) {
			t.Errorf("points[%d].Err = %v, want config.ErrInvalid", i, pt.Err)
		}
	}
}

func TestRunRecordsDivergence(t *testing.T) {
	points, err := Run(context.Background(), shortConfig(), AxisGain0, 1e8, 1e8, 1, 1)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if !errors.Is(points[0].Err, sim.ErrDiverged) {
		t.Errorf("points[0].Err = %v, want sim.ErrDiverged", points[0].Err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	points, err := Run(ctx, shortConfig(), AxisDamping, 0, 1, 4, 2)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	for i, pt := range points {
		if !errors.Is(pt.Err, context.Canceled) {
			t.Errorf("points[%d].Err = %v, want context.Canceled", i, pt.Err)
		}
	}
}

func TestGridValue(t *testing.T) {
	if v := gridValue(0, 10, 1, 0); v != 0 {
		t.Errorf("single-point grid = %v, want from", v)
	}
	if v := gridValue(1, 2, 3, 1); v != 1.5 {
		t.Errorf("midpoint = %v, want 1.5", v)
	}
	if v := gridValue(1, 2, 3, 2); v != 2 {
		t.Errorf("endpoint = %v, want 2", v)
	}
}
