package config

import (
	"os"
	"strconv"
	"time"
)

// Pipeline holds the knobs for one research run. It is passed explicitly to
// the orchestrator and task runner at construction; there is no ambient
// global settings object.
type Pipeline struct {
	// MaxIterations bounds the research loop. The orchestrator never runs
	// more rounds than this, regardless of what the model asks for.
	MaxIterations int

	// MaxSubagents caps how many sub-tasks execute concurrently in a round.
	MaxSubagents int

	// MaxSearchResults is the per-query result cap passed to the searcher.
	MaxSearchResults int

	// SearchEngine selects a registered searcher by name
	// (duckduckgo, tavily, brave).
	SearchEngine string

	// CitationStyle tags the citation markup used in the final report.
	CitationStyle string

	// EvaluationTokenBudget truncates the search-result text handed to the
	// per-task evaluator. Zero disables truncation.
	EvaluationTokenBudget int

	// ResearchTimeout is the overall wall-clock budget for a run.
	ResearchTimeout time.Duration
}

// DefaultPipeline returns the default pipeline configuration.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		MaxIterations:         3,
		MaxSubagents:          4,
		MaxSearchResults:      10,
		SearchEngine:          "duckduckgo",
		CitationStyle:         "markdown",
		EvaluationTokenBudget: 6000,
		ResearchTimeout:       5 * time.Minute,
	}
}

// FromEnv builds a pipeline configuration from DEEPRESEARCH_* environment
// variables, falling back to defaults for anything unset.
func FromEnv() *Pipeline {
	cfg := DefaultPipeline()
	if v := envInt("DEEPRESEARCH_MAX_ITERATIONS"); v > 0 {
		cfg.MaxIterations = v
	}
	if v := envInt("DEEPRESEARCH_MAX_SUBAGENTS"); v > 0 {
		cfg.MaxSubagents = v
	}
	if v := envInt("DEEPRESEARCH_MAX_SEARCH_RESULTS"); v > 0 {
		cfg.MaxSearchResults = v
	}
	if v := os.Getenv("DEEPRESEARCH_SEARCH_ENGINE"); v != "" {
		cfg.SearchEngine = v
	}
	if v := os.Getenv("DEEPRESEARCH_CITATION_STYLE"); v != "" {
		cfg.CitationStyle = v
	}
	if v := envInt("DEEPRESEARCH_EVALUATION_TOKEN_BUDGET"); v > 0 {
		cfg.EvaluationTokenBudget = v
	}
	if v := envInt("DEEPRESEARCH_RESEARCH_TIMEOUT_SECONDS"); v > 0 {
		cfg.ResearchTimeout = time.Duration(v) * time.Second
	}
	return cfg
}

// Validate checks the pipeline configuration.
func (p *Pipeline) Validate() error {
	v := NewValidator()
	v.RequirePositive("maxIterations", p.MaxIterations)
	v.RequirePositive("maxSubagents", p.MaxSubagents)
	v.RequirePositive("maxSearchResults", p.MaxSearchResults)
	v.RequireNonEmpty("searchEngine", p.SearchEngine)
	v.ValidateOneOf("citationStyle", p.CitationStyle, "markdown", "apa", "mla")
	return v.Error()
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
