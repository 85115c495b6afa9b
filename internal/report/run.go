// Package report exports suite runs as xlsx workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"staycheck/internal/suite"
)

// Sheet names in a run workbook.
const (
	SummarySheet   = "Summary"
	ScenariosSheet = "Scenarios"
)

var scenarioColumns = []string{"Scenario", "Outcome", "Started", "Duration (s)", "Error"}

// table is one sheet: a bold header row, then data rows.
type table struct {
	sheet  string
	header []string
	rows   [][]any
}

// Filename names the workbook for run, e.g. "staycheck_20250710-093000_1a2b3c4d.xlsx".
func Filename(run suite.Run) string {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("staycheck_%s_%s.xlsx", run.Started.UTC().Format("20060102-150405"), id)
}

// WriteRun saves run into dir and returns the file path.
func WriteRun(dir string, run suite.Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("header style: %w", err)
	}

	blank := f.GetSheetName(0)
	for _, t := range []table{summaryTable(run), scenarioTable(run)} {
		if err := t.write(f, bold); err != nil {
			return "", err
		}
	}
	if err := f.DeleteSheet(blank); err != nil {
		return "", fmt.Errorf("drop %s: %w", blank, err)
	}
	if idx, err := f.GetSheetIndex(SummarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	path := filepath.Join(dir, Filename(run))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func (t table) write(f *excelize.File, headerStyle int) error {
	if _, err := f.NewSheet(t.sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", t.sheet, err)
	}

	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", t.sheet, err)
	}
	if err := f.SetRowStyle(t.sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", t.sheet, err)
	}

	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", t.sheet, i+1, err)
		}
	}
	return nil
}

func summaryTable(run suite.Run) table {
	return table{
		sheet:  SummarySheet,
		header: []string{"Field", "Value"},
		rows: [][]any{
			{"Run ID", run.ID},
			{"Started", run.Started.UTC().Format(time.RFC3339)},
			{"Finished", run.Finished.UTC().Format(time.RFC3339)},
			{"Duration (s)", run.Finished.Sub(run.Started).Seconds()},
			{"Scenarios", len(run.Results)},
			{"Passed", run.Count(suite.Passed)},
			{"Recovered", run.Count(suite.Recovered)},
			{"Failed", run.Count(suite.Failed)},
		},
	}
}

func scenarioTable(run suite.Run) table {
	t := table{sheet: ScenariosSheet, header: scenarioColumns}
	for _, res := range run.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		t.rows = append(t.rows, []any{
			res.Name,
			string(res.Outcome),
			res.Started.UTC().Format(time.RFC3339),
			res.Duration.Seconds(),
			errText,
		})
	}
	return t
}
