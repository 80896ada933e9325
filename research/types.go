// Package research implements the iterative research orchestration loop:
// planning, parallel sub-task execution, synthesis, the continue/stop
// decision, and citation attribution of the final report. The language
// model, search engine, and context store are consumed through the gateway,
// search, and ContextStore boundaries and are never assumed to behave; every
// structured reply is decoded with a deterministic fallback.
package research

import (
	"context"
	"time"
)

// Confidence levels reported by evaluations, syntheses, and decisions.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Plan is the research approach produced once per top-level query. A derived
// plan may supersede it for refinement rounds.
type Plan struct {
	Objectives          []string `json:"objectives"`
	Scope               string   `json:"scope"`
	KeyAreas            []string `json:"key_areas"`
	Methodologies       []string `json:"methodologies"`
	SuccessCriteria     []string `json:"success_criteria"`
	EstimatedIterations int      `json:"estimated_iterations"`
}

// SubTask is one unit of focused research consumed exactly once by a task
// runner invocation. IDs are unique within a round.
type SubTask struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	FocusArea      string   `json:"focus_area"`
	SearchQueries  []string `json:"search_queries"`
	ExpectedOutput string   `json:"expected_output"`
}

// SearchResult is one hit from the search provider, tagged with the query
// that produced it. The url is the natural identity key but is not unique
// across results.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Query   string `json:"query"`
}

// Evaluation is the model's structured assessment of one sub-task's search
// results.
type Evaluation struct {
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"key_insights"`
	CredibleSources []string `json:"credible_sources"`
	Limitations     []string `json:"limitations"`
	Confidence      string   `json:"confidence"`
	RelevanceScore  int      `json:"relevance_score"`
	SourcesAnalyzed int      `json:"sources_analyzed,omitempty"`
}

// SubTaskResult is the immutable outcome of one sub-task. Either Evaluation
// is set, or Error carries the failure that was absorbed for this task.
// Results accumulate across iterations, never truncate.
type SubTaskResult struct {
	AgentID       string         `json:"agent_id"`
	Task          SubTask        `json:"task"`
	SearchResults []SearchResult `json:"search_results"`
	Evaluation    *Evaluation    `json:"evaluation,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Failed reports whether this sub-task degraded to an error result.
func (r *SubTaskResult) Failed() bool {
	return r.Error != ""
}

// Synthesis is the merged research report for one iteration. Only the last
// synthesis is carried forward to citation.
type Synthesis struct {
	Query              string    `json:"query"`
	ExecutiveSummary   string    `json:"executive_summary"`
	KeyFindings        []string  `json:"key_findings"`
	DetailedAnalysis   string    `json:"detailed_analysis"`
	Sources            []string  `json:"sources"`
	GapsIdentified     []string  `json:"gaps_identified"`
	Recommendations    []string  `json:"recommendations"`
	ConfidenceLevel    string    `json:"confidence_level"`
	CompletenessScore  int       `json:"completeness_score"`
	SynthesisTimestamp time.Time `json:"synthesis_timestamp"`
}

// ContinuationDecision is the verdict on whether another iteration should
// run, and with what refinements.
type ContinuationDecision struct {
	NeedsMoreResearch bool     `json:"needs_more_research"`
	Reasoning         string   `json:"reasoning"`
	SpecificGaps      []string `json:"specific_gaps"`
	RefinedQueries    []string `json:"refined_queries"`
	Priority          string   `json:"priority"`
	CurrentIteration  int      `json:"current_iteration"`
}

// Source is a deduplicated reference extracted from search results or
// agent-identified credible urls. URL is the identity; first seen wins.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Domain  string `json:"domain"`
	Context string `json:"context"`
}

// Citation links one claim in the report to a source by index into the
// deduplicated source list.
type Citation struct {
	Claim       string `json:"claim"`
	SourceIndex int    `json:"source_index"`
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title,omitempty"`
	Markup      string `json:"citation_markup"`
}

// CitationMetadata summarises the citation pass.
type CitationMetadata struct {
	TotalCitations int    `json:"total_citations"`
	SourcesUsed    int    `json:"sources_used"`
	Style          string `json:"style"`
}

// CitedReport is the final artifact: the synthesis with cited sections
// substituted in place, the validated citation list, and the source index
// the citations refer into.
type CitedReport struct {
	Synthesis
	Citations        []Citation       `json:"citations"`
	CitationMetadata CitationMetadata `json:"citation_metadata"`
	SourceList       []Source         `json:"source_list"`
}

// ResearchContext is the persisted state of one research run. It is created
// when the plan is saved and updated in place on each iteration; deletion is
// the store's concern, not ours.
type ResearchContext struct {
	Query     string          `json:"query"`
	Plan      Plan            `json:"plan"`
	SubTasks  []SubTask       `json:"sub_tasks"`
	Results   []SubTaskResult `json:"results"`
	Synthesis *Synthesis      `json:"synthesis,omitempty"`
	Iteration int             `json:"iteration"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ContextStore persists research contexts across iterations. Lookup by query
// may be exact or fuzzy; that is the store's responsibility. Stores return
// errors.ErrNotFound (wrapped or direct) when nothing matches.
type ContextStore interface {
	// Save stores a new context and returns its id.
	Save(ctx context.Context, rc *ResearchContext) (string, error)

	// Get retrieves a context by id.
	Get(ctx context.Context, id string) (*ResearchContext, error)

	// FindLatestByQuery returns the most recently updated context for a
	// query, or nil when none exists.
	FindLatestByQuery(ctx context.Context, query string) (*ResearchContext, error)

	// Update replaces the context stored under id. Returns false when the
	// id is unknown.
	Update(ctx context.Context, id string, rc *ResearchContext) (bool, error)
}

// Status is the caller-facing view of a run's stored state.
type Status struct {
	Found        bool      `json:"found"`
	Query        string    `json:"query"`
	Iteration    int       `json:"iteration"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
	HasSynthesis bool      `json:"has_synthesis"`
}

// Tokenizer counts and truncates text by model tokens; used to keep
// evaluation prompts inside a budget. Implementations live under
// contrib/tokenizer.
type Tokenizer interface {
	CountTokens(text string) int
	Truncate(text string, maxTokens int) string
}
