package research

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// reportFile is the on-disk shape of a persisted run.
type reportFile struct {
	Query       string          `json:"query"`
	Timestamp   string          `json:"timestamp"`
	Iteration   int             `json:"iteration"`
	FinalReport *CitedReport    `json:"final_report"`
	AllResults  []SubTaskResult `json:"all_results"`
}

// ReportWriter persists final reports as timestamped JSON files.
type ReportWriter struct {
	dir string
}

// NewReportWriter creates a writer that stores reports under dir. An empty
// dir means the current working directory.
func NewReportWriter(dir string) *ReportWriter {
	if dir == "" {
		dir = "."
	}
	return &ReportWriter{dir: dir}
}

// Write saves the report and returns the file path.
func (w *ReportWriter) Write(query string, iteration int, report *CitedReport, results []SubTaskResult) (string, error) {
	now := time.Now().UTC()
	name := fmt.Sprintf("research_results_%s.json", now.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(reportFile{
		Query:       query,
		Timestamp:   now.Format(time.RFC3339),
		Iteration:   iteration,
		FinalReport: report,
		AllResults:  results,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
