package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
)

func sampleResults() []SubTaskResult {
	return []SubTaskResult{
		{
			AgentID: "subagent_task_1",
			SearchResults: []SearchResult{
				{Title: "First", URL: "https://a.example/one", Snippet: "alpha"},
				{Title: "Second", URL: "https://b.example/two", Snippet: "beta"},
			},
			Evaluation: &Evaluation{
				CredibleSources: []string{"https://c.example/three", "https://a.example/one"},
			},
		},
	}
}

func TestExtractSourcesDeduplicatesFirstSeenWins(t *testing.T) {
	sources := extractSources(sampleResults())

	if len(sources) != 3 {
		t.Fatalf("Expected 3 unique sources, got %d", len(sources))
	}
	// The duplicate url came from search results first, so it keeps that title.
	if sources[0].Title != "First" {
		t.Errorf("First occurrence must win, got title %q", sources[0].Title)
	}
	if sources[2].Title != "Source from subagent_task_1" {
		t.Errorf("Credible-only sources get a synthetic title, got %q", sources[2].Title)
	}
	if sources[0].Domain != "a.example" {
		t.Errorf("Domain not extracted: %q", sources[0].Domain)
	}
}

func TestAttributeValidatesSourceIndexes(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return `{
			"cited_content": "claim [Source 1](https://a.example/one)",
			"citations": [
				{"claim": "valid", "source_index": 0},
				{"claim": "out of range", "source_index": 99},
				{"claim": "negative", "source_index": -1}
			]
		}`, nil
	})
	engine := NewCitationEngine(gw, config.DefaultPipeline())

	syn := &Synthesis{Query: "q", ExecutiveSummary: "claim"}
	report := engine.Attribute(context.Background(), syn, sampleResults())

	// One valid citation per cited section.
	for _, c := range report.Citations {
		if c.SourceIndex != 0 {
			t.Errorf("Invalid citation survived: %+v", c)
		}
		if c.SourceURL != "https://a.example/one" {
			t.Errorf("Source url not back-filled: %q", c.SourceURL)
		}
		if c.SourceTitle != "First" {
			t.Errorf("Source title not back-filled: %q", c.SourceTitle)
		}
	}
	if report.CitationMetadata.TotalCitations != len(report.Citations) {
		t.Errorf("Metadata count mismatch")
	}
	if report.CitationMetadata.SourcesUsed != 3 {
		t.Errorf("sources_used must equal the source list size, got %d", report.CitationMetadata.SourcesUsed)
	}
}

func TestAttributePassThroughOnGatewayError(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return "", errors.New("backend down")
	})
	engine := NewCitationEngine(gw, config.DefaultPipeline())

	syn := &Synthesis{
		Query:            "q",
		ExecutiveSummary: "summary text",
		DetailedAnalysis: "analysis text",
		KeyFindings:      []string{"finding one", "finding two"},
	}
	report := engine.Attribute(context.Background(), syn, sampleResults())

	if report.ExecutiveSummary != "summary text" || report.DetailedAnalysis != "analysis text" {
		t.Errorf("Failed citation pass must not alter the text")
	}
	if len(report.KeyFindings) != 2 {
		t.Errorf("Key findings must round-trip, got %v", report.KeyFindings)
	}
	if len(report.Citations) != 0 {
		t.Errorf("Expected no citations, got %d", len(report.Citations))
	}
	// Even with zero surviving citations the metadata reflects the source
	// list that was offered to the citation pass.
	if report.CitationMetadata.SourcesUsed != 3 {
		t.Errorf("sources_used must equal the source list size, got %d", report.CitationMetadata.SourcesUsed)
	}
}

func TestExtractSourcesInterleavesPerResult(t *testing.T) {
	results := []SubTaskResult{
		{
			AgentID: "subagent_task_1",
			Evaluation: &Evaluation{
				CredibleSources: []string{"https://shared.example/page"},
			},
		},
		{
			AgentID: "subagent_task_2",
			SearchResults: []SearchResult{
				{Title: "Hit Title", URL: "https://shared.example/page", Snippet: "s"},
				{Title: "Other", URL: "https://other.example", Snippet: "s"},
			},
		},
	}

	sources := extractSources(results)
	if len(sources) != 2 {
		t.Fatalf("Expected 2 unique sources, got %d", len(sources))
	}
	// The credible source from the earlier result wins over the later
	// result's search hit for the same url.
	if sources[0].URL != "https://shared.example/page" {
		t.Errorf("Earlier result's source must come first, got %q", sources[0].URL)
	}
	if sources[0].Title != "Source from subagent_task_1" {
		t.Errorf("First occurrence must keep its synthetic title, got %q", sources[0].Title)
	}
}

func TestExtractSourcesTruncatesSnippetOnRuneBoundary(t *testing.T) {
	snippet := strings.Repeat("日", 250)
	results := []SubTaskResult{
		{
			AgentID: "subagent_task_1",
			SearchResults: []SearchResult{
				{Title: "t", URL: "https://a.example", Snippet: snippet},
			},
		},
	}

	sources := extractSources(results)
	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(sources))
	}
	if !utf8.ValidString(sources[0].Context) {
		t.Errorf("Truncated context must remain valid UTF-8")
	}
	if got := utf8.RuneCountInString(sources[0].Context); got != snippetContextLimit {
		t.Errorf("Expected %d characters kept, got %d", snippetContextLimit, got)
	}
}

func TestAttributeNoSources(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		t.Errorf("No gateway call expected without sources")
		return "", nil
	})
	engine := NewCitationEngine(gw, config.DefaultPipeline())

	syn := &Synthesis{Query: "q", ExecutiveSummary: "uncitable"}
	report := engine.Attribute(context.Background(), syn, nil)

	if report.ExecutiveSummary != "uncitable" {
		t.Errorf("Report must pass through unchanged")
	}
	if len(report.SourceList) != 0 || len(report.Citations) != 0 {
		t.Errorf("Empty run must produce empty source and citation lists")
	}
	if report.CitationMetadata.Style != "markdown" {
		t.Errorf("Metadata style must still be recorded, got %q", report.CitationMetadata.Style)
	}
}

func TestAttributeRebuildsKeyFindings(t *testing.T) {
	calls := 0
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		calls++
		return fmt.Sprintf(`{"cited_content": "line a [Source 1](https://a.example/one)\nline b", "citations": [{"claim": "c%d", "source_index": 0}]}`, calls), nil
	})
	engine := NewCitationEngine(gw, config.DefaultPipeline())

	syn := &Synthesis{
		Query:            "q",
		ExecutiveSummary: "s",
		DetailedAnalysis: "d",
		KeyFindings:      []string{"line a", "line b"},
	}
	report := engine.Attribute(context.Background(), syn, sampleResults())

	if len(report.KeyFindings) != 2 {
		t.Fatalf("Expected findings split back into 2 lines, got %v", report.KeyFindings)
	}
	if report.KeyFindings[0] != "line a [Source 1](https://a.example/one)" {
		t.Errorf("Cited finding lost: %q", report.KeyFindings[0])
	}
}
