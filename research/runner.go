package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
	"github.com/sweetpotato0/deepresearch/pkg/logging"
	"github.com/sweetpotato0/deepresearch/prompt"
	"github.com/sweetpotato0/deepresearch/search"
)

// TaskRunner executes the sub-tasks of one round concurrently. Each task
// gets its own goroutine and its own local accumulator; the shared result
// slice is only written at the task's own index, so the join barrier is the
// sole synchronisation point. Output order always matches input order,
// independent of completion order.
type TaskRunner struct {
	gw        gateway.Gateway
	searcher  search.Searcher
	cfg       *config.Pipeline
	prompts   *prompt.Manager
	tokenizer Tokenizer
	logger    *slog.Logger
	semaphore chan struct{}
}

// RunnerOption configures a TaskRunner
type RunnerOption func(*TaskRunner)

// WithTokenizer sets the tokenizer used to keep evaluation prompts inside
// the configured token budget.
func WithTokenizer(t Tokenizer) RunnerOption {
	return func(r *TaskRunner) {
		r.tokenizer = t
	}
}

// NewTaskRunner creates a task runner. cfg bounds concurrency and search
// result counts; it is never consulted as ambient global state.
func NewTaskRunner(gw gateway.Gateway, searcher search.Searcher, cfg *config.Pipeline, opts ...RunnerOption) *TaskRunner {
	if cfg == nil {
		cfg = config.DefaultPipeline()
	}
	r := &TaskRunner{
		gw:        gw,
		searcher:  searcher,
		cfg:       cfg,
		prompts:   newPromptManager(),
		logger:    logging.WithComponent("taskrunner"),
		semaphore: make(chan struct{}, cfg.MaxSubagents),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll executes every task and returns one result per task, in task
// order. A failing task degrades to an error result; it never aborts its
// siblings, and the batch returns only when every task has either succeeded
// or been converted to an error result.
func (r *TaskRunner) RunAll(ctx context.Context, tasks []SubTask, query string) []SubTaskResult {
	results := make([]SubTaskResult, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t SubTask) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[index] = SubTaskResult{
						AgentID:   agentID(t),
						Task:      t,
						Error:     fmt.Sprintf("panic in task %s: %v", t.ID, rec),
						Timestamp: time.Now().UTC(),
					}
				}
			}()

			// Bound concurrency without reordering results.
			select {
			case r.semaphore <- struct{}{}:
				defer func() { <-r.semaphore }()
			case <-ctx.Done():
				results[index] = SubTaskResult{
					AgentID:   agentID(t),
					Task:      t,
					Error:     ctx.Err().Error(),
					Timestamp: time.Now().UTC(),
				}
				return
			}

			results[index] = r.runOne(ctx, t)
		}(i, task)
	}

	wg.Wait()
	return results
}

// runOne performs the searches for one task and evaluates the combined
// results with a single gateway call.
func (r *TaskRunner) runOne(ctx context.Context, task SubTask) SubTaskResult {
	result := SubTaskResult{
		AgentID:   agentID(task),
		Task:      task,
		Timestamp: time.Now().UTC(),
	}

	// Results concatenate by originating query, then provider order.
	for _, q := range task.SearchQueries {
		hits, err := r.searcher.Search(ctx, q, r.cfg.MaxSearchResults)
		if err != nil {
			// Search failure degrades to an empty list for this query.
			r.logger.Warn("search failed", "task", task.ID, "query", q, "error", err)
			continue
		}
		for _, h := range hits {
			result.SearchResults = append(result.SearchResults, SearchResult{
				Title:   h.Title,
				URL:     h.Link,
				Snippet: h.Snippet,
				Query:   q,
			})
		}
	}

	eval, err := r.evaluate(ctx, task, result.SearchResults)
	if err != nil {
		result.Error = err.Error()
		result.Timestamp = time.Now().UTC()
		return result
	}

	result.Evaluation = eval
	result.Timestamp = time.Now().UTC()
	return result
}

// evaluate asks the model to assess the search results. A parse failure
// degrades to a deterministic evaluation seeded from the result count; only
// a gateway transport error fails the task.
func (r *TaskRunner) evaluate(ctx context.Context, task SubTask, results []SearchResult) (*Evaluation, error) {
	if len(results) == 0 {
		return &Evaluation{
			Summary:         "No search results found",
			KeyInsights:     []string{},
			CredibleSources: []string{},
			Confidence:      ConfidenceLow,
		}, nil
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Title: %s\nSource: %s\nContent: %s", res.Title, res.URL, res.Snippet)
	}
	resultsText := b.String()
	if r.tokenizer != nil && r.cfg.EvaluationTokenBudget > 0 {
		resultsText = r.tokenizer.Truncate(resultsText, r.cfg.EvaluationTokenBudget)
	}

	text, err := r.prompts.Render(tmplEvaluate, map[string]any{
		"FocusArea":      task.FocusArea,
		"ExpectedOutput": task.ExpectedOutput,
		"Results":        resultsText,
	})
	if err != nil {
		return nil, fmt.Errorf("render evaluation prompt: %w", err)
	}

	reply, err := r.gw.Complete(ctx, &gateway.Request{
		SystemRole: fmt.Sprintf(subagentRoleTemplate, task.FocusArea, task.Description),
		Prompt:     text,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate task %s: %w", task.ID, err)
	}

	var eval Evaluation
	if err := decodeReply(reply, &eval); err != nil {
		r.logger.Warn("evaluation reply unparseable, using fallback", "task", task.ID)
		eval = fallbackEvaluation(task, results)
	}
	eval.SourcesAnalyzed = len(results)
	return &eval, nil
}

// fallbackEvaluation summarises what can be stated mechanically about the
// results when the model's evaluation could not be decoded.
func fallbackEvaluation(task SubTask, results []SearchResult) Evaluation {
	credible := make([]string, 0, 3)
	for _, res := range results {
		if len(credible) == 3 {
			break
		}
		credible = append(credible, res.URL)
	}
	return Evaluation{
		Summary:         fmt.Sprintf("Analyzed %d search results for %s", len(results), task.FocusArea),
		KeyInsights:     []string{"Information gathered from multiple sources"},
		CredibleSources: credible,
		Limitations:     []string{"Limited evaluation due to parsing error"},
		Confidence:      ConfidenceMedium,
		RelevanceScore:  70,
	}
}

func agentID(task SubTask) string {
	return fmt.Sprintf("subagent_%s", task.ID)
}
