package reporting

import (
	"os"
	"path/filepath"
)

// Output file names written by WriteFiles.
const (
	ReportFile = "REWARDS_REPORT.md"
	LedgerFile = "expected_rewards.csv"
	EpochsFile = "epoch_accounting.csv"
)

// WriteFiles renders the report into dir, creating it if needed.
// Returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	outputs := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{LedgerFile, RenderLedgerCSV(r)},
		{EpochsFile, RenderEpochsCSV(r)},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := os.WriteFile(path, []byte(out.content), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
