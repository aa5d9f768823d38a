package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/obslab/internal/sim"
)

type ExportData struct {
	Steps     int                `json:"steps"`
	Times     []float64          `json:"times"`
	States    [][]float64        `json:"states"`
	Estimates [][]float64        `json:"estimates"`
	Residuals [][]float64        `json:"residuals"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ExportJSON writes a run as a single indented JSON document. meta may be
// nil for runs that were never stored.
func ExportJSON(w io.Writer, meta *RunMetadata, result *sim.Result) error {
	data := ExportData{
		Steps:     result.Steps,
		Times:     result.Times,
		States:    make([][]float64, len(result.States)),
		Estimates: make([][]float64, len(result.Estimates)),
		Residuals: make([][]float64, len(result.Residuals)),
		Metrics:   result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, s := range result.Estimates {
		data.Estimates[i] = s
	}
	for i, s := range result.Residuals {
		data.Residuals[i] = s
	}
	if meta != nil {
		data.Error = meta.Error
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the aligned series in the same column layout the store
// uses for series.csv.
func ExportCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if len(result.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := range result.Estimates[0] {
		header = append(header, fmt.Sprintf("xhat%d", i))
	}
	for i := range result.Residuals[0] {
		header = append(header, fmt.Sprintf("r%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		for _, val := range result.Estimates[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		for _, val := range result.Residuals[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
