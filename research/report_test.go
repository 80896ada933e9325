package research

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestReportWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewReportWriter(dir)

	report := &CitedReport{
		Synthesis: Synthesis{Query: "topic", ExecutiveSummary: "summary"},
		Citations: []Citation{{Claim: "c", SourceIndex: 0, SourceURL: "https://a.example"}},
	}
	path, err := w.Write("topic", 2, report, []SubTaskResult{{AgentID: "subagent_task_1"}})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(path, "research_results_") {
		t.Errorf("Unexpected file name %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var parsed reportFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Report file is not valid JSON: %v", err)
	}
	if parsed.Query != "topic" || parsed.Iteration != 2 {
		t.Errorf("Report header wrong: %+v", parsed)
	}
	if parsed.FinalReport == nil || parsed.FinalReport.ExecutiveSummary != "summary" {
		t.Errorf("Final report lost in round trip")
	}
	if len(parsed.AllResults) != 1 {
		t.Errorf("Results lost in round trip")
	}
}
