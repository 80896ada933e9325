package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/deepresearch/gateway"
	"github.com/sweetpotato0/deepresearch/pkg/logging"
	"github.com/sweetpotato0/deepresearch/prompt"
)

// Task count bounds enforced on every decomposition.
const (
	minSubTasks = 2
	maxSubTasks = 4
)

// Planner produces the research plan and decomposes a query into sub-tasks.
// The model's output is advisory content; the planner alone guarantees
// structural validity (bounded count, unique ids, required fields), because
// downstream components assume those invariants unconditionally.
type Planner struct {
	gw      gateway.Gateway
	prompts *prompt.Manager
	logger  *slog.Logger
}

// NewPlanner creates a planner on the given gateway.
func NewPlanner(gw gateway.Gateway) *Planner {
	return &Planner{
		gw:      gw,
		prompts: newPromptManager(),
		logger:  logging.WithComponent("planner"),
	}
}

// Plan produces a research plan for the query. It never fails: on a gateway
// error or an unparseable reply it returns a deterministic minimal plan
// seeded from the query, so the pipeline always obtains a usable plan.
func (p *Planner) Plan(ctx context.Context, query string) Plan {
	text, err := p.prompts.Render(tmplPlan, map[string]any{"Query": query})
	if err == nil {
		var reply string
		reply, err = p.gw.Complete(ctx, &gateway.Request{
			SystemRole: leadResearcherRole,
			Prompt:     text,
		})
		if err == nil {
			var plan Plan
			if decodeErr := decodeReply(reply, &plan); decodeErr == nil {
				if plan.EstimatedIterations < 1 {
					plan.EstimatedIterations = 1
				}
				return plan
			}
			p.logger.Warn("plan reply unparseable, using fallback plan", "query", query)
			return fallbackPlan(query)
		}
	}

	p.logger.Warn("plan generation failed, using fallback plan", "query", query, "error", err)
	return fallbackPlan(query)
}

// Decompose splits the query into 2-4 sub-tasks. rc, when non-nil, supplies
// prior-iteration context to the model. Like Plan, it never fails: a
// malformed reply degrades to two canned tasks derived from the query.
func (p *Planner) Decompose(ctx context.Context, query string, plan Plan, rc *ResearchContext) []SubTask {
	text, err := p.prompts.Render(tmplDecompose, map[string]any{
		"Query": query,
		"Plan":  asJSON(plan),
	})
	if err != nil {
		p.logger.Warn("decompose prompt render failed, using fallback tasks", "error", err)
		return fallbackTasks(query)
	}

	req := &gateway.Request{
		SystemRole: leadResearcherRole,
		Prompt:     text,
	}
	if rc != nil {
		req.Context = map[string]any{
			"iteration":      rc.Iteration,
			"prior_subtasks": len(rc.SubTasks),
		}
	}

	reply, err := p.gw.Complete(ctx, req)
	if err != nil {
		p.logger.Warn("decompose generation failed, using fallback tasks", "query", query, "error", err)
		return fallbackTasks(query)
	}

	var tasks []SubTask
	if err := decodeReply(reply, &tasks); err != nil || len(tasks) < minSubTasks {
		p.logger.Warn("decompose reply unusable, using fallback tasks", "query", query)
		return fallbackTasks(query)
	}

	return normalizeTasks(tasks)
}

// normalizeTasks enforces the structural invariants downstream components
// rely on: at most maxSubTasks entries, a unique deterministic id per task,
// and non-empty search queries.
func normalizeTasks(tasks []SubTask) []SubTask {
	if len(tasks) > maxSubTasks {
		tasks = tasks[:maxSubTasks]
	}

	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		if tasks[i].ID == "" || seen[tasks[i].ID] {
			tasks[i].ID = fmt.Sprintf("task_%d", i+1)
		}
		seen[tasks[i].ID] = true

		if len(tasks[i].SearchQueries) == 0 {
			// Fall back to searching the title so the task still does work.
			if tasks[i].Title != "" {
				tasks[i].SearchQueries = []string{tasks[i].Title}
			} else {
				tasks[i].SearchQueries = []string{tasks[i].FocusArea}
			}
		}
	}
	return tasks
}

func fallbackPlan(query string) Plan {
	return Plan{
		Objectives:          []string{query},
		Scope:               "Comprehensive research on the given topic",
		KeyAreas:            []string{"General information", "Current trends", "Expert opinions"},
		Methodologies:       []string{"Web search", "Content analysis"},
		SuccessCriteria:     []string{"Comprehensive coverage", "Verified sources"},
		EstimatedIterations: 2,
	}
}

func fallbackTasks(query string) []SubTask {
	return []SubTask{
		{
			ID:             "task_1",
			Title:          "General Information Search",
			Description:    fmt.Sprintf("Search for general information about %s", query),
			FocusArea:      "Overview and basics",
			SearchQueries:  []string{query, fmt.Sprintf("what is %s", query)},
			ExpectedOutput: "Comprehensive overview of the topic",
		},
		{
			ID:             "task_2",
			Title:          "Current Trends and Developments",
			Description:    fmt.Sprintf("Find current trends and recent developments related to %s", query),
			FocusArea:      "Recent developments",
			SearchQueries:  []string{fmt.Sprintf("%s trends", query), fmt.Sprintf("%s latest", query)},
			ExpectedOutput: "Current state and trends",
		},
	}
}
