package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
	"github.com/sweetpotato0/deepresearch/pkg/logging"
	"github.com/sweetpotato0/deepresearch/pkg/telemetry"
	"github.com/sweetpotato0/deepresearch/search"
)

// Orchestrator drives the full research pipeline: plan, decompose, iterate
// sub-task rounds until the continuation decision or the iteration bound
// stops the loop, then attribute citations and persist the outcome. The
// loop's termination does not depend on model behavior; the iteration bound
// is enforced by counting, not by trusting decisions.
type Orchestrator struct {
	cfg         *config.Pipeline
	planner     *Planner
	runner      *TaskRunner
	synthesizer *Synthesizer
	citations   *CitationEngine
	store       ContextStore
	reports     *ReportWriter
	logger      *slog.Logger
	tracer      trace.Tracer
	runnerOpts  []RunnerOption
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithContextStore sets the store used to persist research contexts.
func WithContextStore(store ContextStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithReportWriter sets the writer used to persist final reports to disk.
// Without one, reports are returned but not written.
func WithReportWriter(w *ReportWriter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.reports = w
	}
}

// WithRunnerOptions forwards options to the task runner, e.g. a tokenizer
// for evaluation budgeting.
func WithRunnerOptions(opts ...RunnerOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.runnerOpts = opts
	}
}

// NewOrchestrator wires the pipeline components onto one gateway and
// searcher. cfg nil means defaults.
func NewOrchestrator(gw gateway.Gateway, searcher search.Searcher, cfg *config.Pipeline, opts ...OrchestratorOption) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultPipeline()
	}
	o := &Orchestrator{
		cfg:         cfg,
		planner:     NewPlanner(gw),
		synthesizer: NewSynthesizer(gw, cfg),
		citations:   NewCitationEngine(gw, cfg),
		logger:      logging.WithComponent("orchestrator"),
		tracer:      telemetry.Tracer("research"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.runner = NewTaskRunner(gw, searcher, cfg, o.runnerOpts...)
	return o
}

// Run executes the full pipeline for one query and returns the cited
// report. Degraded component replies produce a degraded report; Run itself
// fails only on an unrecoverable store error during the initial save.
func (o *Orchestrator) Run(ctx context.Context, query string) (*CitedReport, error) {
	ctx, span := o.tracer.Start(ctx, "research.run",
		trace.WithAttributes(attribute.String("research.query", query)))
	var runErr error
	defer func() { telemetry.End(span, runErr) }()

	if o.cfg.ResearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ResearchTimeout)
		defer cancel()
	}

	o.logger.Info("starting research", "query", query)
	start := time.Now()

	plan := o.planner.Plan(ctx, query)
	contextID, rc, err := o.saveInitialContext(ctx, query, plan)
	if err != nil {
		runErr = err
		return nil, err
	}

	tasks := o.planner.Decompose(ctx, query, plan, rc)

	var allResults []SubTaskResult
	var synthesis *Synthesis
	activeQuery := query
	iteration := 0

	for iteration < o.cfg.MaxIterations {
		iteration++

		iterCtx, iterSpan := o.tracer.Start(ctx, "research.iteration",
			trace.WithAttributes(attribute.Int("research.iteration", iteration)))

		o.logger.Info("running iteration", "iteration", iteration, "query", activeQuery, "tasks", len(tasks))
		results := o.runner.RunAll(iterCtx, tasks, activeQuery)
		allResults = append(allResults, results...)

		// The synthesizer sees this round's results; the full accumulated
		// sequence is reserved for the citation pass.
		synthesis = o.synthesizer.Synthesize(iterCtx, activeQuery, results)
		decision := o.synthesizer.DecideContinuation(iterCtx, synthesis, iteration)
		iterSpan.End()

		o.updateContext(ctx, contextID, query, plan, tasks, allResults, synthesis, iteration)

		if !decision.NeedsMoreResearch || iteration >= o.cfg.MaxIterations {
			o.logger.Info("research loop finished",
				"iteration", iteration,
				"needs_more", decision.NeedsMoreResearch,
				"reason", decision.Reasoning)
			break
		}

		// The first refined query becomes the active query for the next round.
		if len(decision.RefinedQueries) > 0 {
			activeQuery = decision.RefinedQueries[0]
		}
		tasks = o.nextTasks(ctx, activeQuery, decision, rc)
		if len(tasks) == 0 {
			o.logger.Info("no follow-up tasks, stopping", "iteration", iteration)
			break
		}
	}

	report := o.citations.Attribute(ctx, synthesis, allResults)

	o.updateContext(ctx, contextID, query, plan, tasks, allResults, &report.Synthesis, iteration)
	if o.reports != nil {
		if path, err := o.reports.Write(query, iteration, report, allResults); err != nil {
			o.logger.Warn("failed to persist report", "error", err)
		} else {
			o.logger.Info("report persisted", "path", path)
		}
	}

	o.logger.Info("research complete",
		"query", query,
		"iterations", iteration,
		"results", len(allResults),
		"citations", report.CitationMetadata.TotalCitations,
		"duration", time.Since(start))
	return report, nil
}

// Status reports the stored state of the latest run for a query.
func (o *Orchestrator) Status(ctx context.Context, query string) (*Status, error) {
	if o.store == nil {
		return &Status{Query: query}, nil
	}

	rc, err := o.store.FindLatestByQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("status lookup: %w", err)
	}
	if rc == nil {
		return &Status{Query: query}, nil
	}
	return &Status{
		Found:        true,
		Query:        rc.Query,
		Iteration:    rc.Iteration,
		CreatedAt:    rc.CreatedAt,
		UpdatedAt:    rc.UpdatedAt,
		HasSynthesis: rc.Synthesis != nil,
	}, nil
}

// saveInitialContext seeds the run's stored context from the plan and
// returns any prior context found for the same query.
func (o *Orchestrator) saveInitialContext(ctx context.Context, query string, plan Plan) (string, *ResearchContext, error) {
	if o.store == nil {
		return "", nil, nil
	}

	prior, err := o.store.FindLatestByQuery(ctx, query)
	if err != nil {
		o.logger.Warn("prior context lookup failed", "error", err)
		prior = nil
	}

	id, err := SavePlan(ctx, o.store, query, plan)
	if err != nil {
		return "", nil, fmt.Errorf("save research context: %w", err)
	}
	return id, prior, nil
}

// updateContext persists the run's state after an iteration; persistence
// failures are logged, never fatal.
func (o *Orchestrator) updateContext(ctx context.Context, id, query string, plan Plan, tasks []SubTask, results []SubTaskResult, synthesis *Synthesis, iteration int) {
	if o.store == nil || id == "" {
		return
	}

	ok, err := o.store.Update(ctx, id, &ResearchContext{
		Query:     query,
		Plan:      plan,
		SubTasks:  tasks,
		Results:   results,
		Synthesis: synthesis,
		Iteration: iteration,
	})
	if err != nil {
		o.logger.Warn("context update failed", "id", id, "error", err)
		return
	}
	if !ok {
		o.logger.Warn("context disappeared from store", "id", id)
	}
}

// nextTasks builds the follow-up round. A refined active query drives a
// fresh decomposition against a gap-focused plan; otherwise each specific
// gap becomes a direct follow-up task.
func (o *Orchestrator) nextTasks(ctx context.Context, activeQuery string, decision *ContinuationDecision, rc *ResearchContext) []SubTask {
	if len(decision.RefinedQueries) > 0 {
		gapPlan := Plan{
			Objectives:          decision.SpecificGaps,
			Scope:               fmt.Sprintf("Follow-up research for: %s", activeQuery),
			KeyAreas:            decision.SpecificGaps,
			EstimatedIterations: 1,
		}
		return o.planner.Decompose(ctx, activeQuery, gapPlan, rc)
	}

	tasks := make([]SubTask, 0, len(decision.SpecificGaps))
	for i, gap := range decision.SpecificGaps {
		if i == maxSubTasks {
			break
		}
		tasks = append(tasks, SubTask{
			ID:             fmt.Sprintf("gap_task_%d", i+1),
			Title:          fmt.Sprintf("Address Gap: %s", gap),
			Description:    fmt.Sprintf("Research to address the identified gap: %s", gap),
			FocusArea:      gap,
			SearchQueries:  []string{gap, fmt.Sprintf("%s research", gap), fmt.Sprintf("%s latest", gap)},
			ExpectedOutput: fmt.Sprintf("Information to address the gap: %s", gap),
		})
	}
	return tasks
}

// SavePlan seeds a new research context from a query and its plan.
func SavePlan(ctx context.Context, store ContextStore, query string, plan Plan) (string, error) {
	return store.Save(ctx, &ResearchContext{
		Query:     query,
		Plan:      plan,
		SubTasks:  []SubTask{},
		Results:   []SubTaskResult{},
		Iteration: 0,
	})
}
