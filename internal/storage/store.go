package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/obslab/internal/config"
	"github.com/san-kum/obslab/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Params    *config.Config     `json:"params"`
	Steps     int                `json:"steps"`
	Metrics   map[string]float64 `json:"metrics"`
	Error     string             `json:"error,omitempty"`
}

// Save writes one run directory holding metadata.json and series.csv.
// runErr records a mid-run abort (divergence, cancellation); the partial
// series is saved either way.
func (s *Store) Save(cfg *config.Config, result *sim.Result, runErr error) (string, error) {
	runID := fmt.Sprintf("springmass_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		CreatedAt: time.Now(),
		Params:    cfg,
		Steps:     result.Steps,
		Metrics:   result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "series.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	return runID, ExportCSV(csvFile, result)
}

// List returns metadata for every stored run, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads series.csv back into a Result. Column roles come from
// the header prefixes (x, xhat, r). Metrics are not stored in the CSV;
// use Load for them.
func (s *Store) LoadSeries(runID string) (*sim.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &sim.Result{
			States:    []sim.State{},
			Estimates: []sim.State{},
			Residuals: []sim.State{},
			Times:     []float64{},
		}, nil
	}

	var stateCols, estCols, resCols int
	for _, name := range records[0][1:] {
		switch {
		case strings.HasPrefix(name, "xhat"):
			estCols++
		case strings.HasPrefix(name, "x"):
			stateCols++
		case strings.HasPrefix(name, "r"):
			resCols++
		}
	}

	rows := len(records) - 1
	res := &sim.Result{
		States:    make([]sim.State, 0, rows),
		Estimates: make([]sim.State, 0, rows),
		Residuals: make([]sim.State, 0, rows),
		Times:     make([]float64, 0, rows),
	}

	for _, record := range records[1:] {
		if len(record) != 1+stateCols+estCols+resCols {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}

		res.Times = append(res.Times, vals[0])
		res.States = append(res.States, sim.State(vals[1:1+stateCols]))
		res.Estimates = append(res.Estimates, sim.State(vals[1+stateCols:1+stateCols+estCols]))
		res.Residuals = append(res.Residuals, sim.State(vals[1+stateCols+estCols:]))
	}
	res.Steps = len(res.Times)

	return res, nil
}
