package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/obslab/internal/config"
	"github.com/san-kum/obslab/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		States: []sim.State{
			{1.0, 0.0},
			{0.995, -0.0998},
		},
		Estimates: []sim.State{
			{0.0, 0.0},
			{0.0497, -0.0099},
		},
		Residuals: []sim.State{
			{1.0},
			{0.9453},
		},
		Times:   []float64{0.0, 0.1},
		Metrics: map[string]float64{"energy": 0.5},
		Steps:   2,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.Default()
	runID, err := st.Save(cfg, sampleResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Steps != 2 {
		t.Errorf("steps = %d, want 2", meta.Steps)
	}
	if meta.Params.Stiffness != 1.0 {
		t.Errorf("stiffness = %v, want 1.0", meta.Params.Stiffness)
	}
	if meta.Metrics["energy"] != 0.5 {
		t.Errorf("energy metric = %v, want 0.5", meta.Metrics["energy"])
	}
	if meta.Error != "" {
		t.Errorf("unexpected error field %q", meta.Error)
	}
}

func TestStoreLoadSeries(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	want := sampleResult()
	runID, err := st.Save(config.Default(), want, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if got.Steps != 2 {
		t.Fatalf("steps = %d, want 2", got.Steps)
	}
	if len(got.States) != 2 || len(got.Estimates) != 2 || len(got.Residuals) != 2 {
		t.Fatalf("series lengths = %d/%d/%d, want 2/2/2",
			len(got.States), len(got.Estimates), len(got.Residuals))
	}

	// The CSV keeps six decimal places.
	const tol = 1e-6
	for i := range want.Times {
		if math.Abs(got.Times[i]-want.Times[i]) > tol {
			t.Errorf("times[%d] = %v, want %v", i, got.Times[i], want.Times[i])
		}
		for j := range want.States[i] {
			if math.Abs(got.States[i][j]-want.States[i][j]) > tol {
				t.Errorf("states[%d][%d] = %v, want %v", i, j, got.States[i][j], want.States[i][j])
			}
			if math.Abs(got.Estimates[i][j]-want.Estimates[i][j]) > tol {
				t.Errorf("estimates[%d][%d] = %v, want %v", i, j, got.Estimates[i][j], want.Estimates[i][j])
			}
		}
		if math.Abs(got.Residuals[i][0]-want.Residuals[i][0]) > tol {
			t.Errorf("residuals[%d] = %v, want %v", i, got.Residuals[i][0], want.Residuals[i][0])
		}
	}
}

func TestStoreSaveAborted(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runErr := &sim.StepError{Step: 3, Time: 0.3, Err: sim.ErrDiverged}
	runID, err := st.Save(config.Default(), sampleResult(), runErr)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !strings.Contains(meta.Error, "diverged") {
		t.Errorf("error field %q does not mention divergence", meta.Error)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, err := st.Save(config.Default(), sampleResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := st.Save(config.Default(), sampleResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(config.Default(), sampleResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "series.csv")); os.IsNotExist(err) {
		t.Error("series.csv not created")
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "time,x0,x1,xhat0,xhat1,r0" {
		t.Errorf("header = %q", lines[0])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, &sim.Result{}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, nil, sampleResult()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if data.Steps != 2 {
		t.Errorf("steps = %d, want 2", data.Steps)
	}
	if len(data.States) != 2 || len(data.Estimates) != 2 {
		t.Errorf("series lengths = %d/%d, want 2/2", len(data.States), len(data.Estimates))
	}
	if data.Metrics["energy"] != 0.5 {
		t.Errorf("energy metric = %v, want 0.5", data.Metrics["energy"])
	}
}
