package research

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
	"github.com/sweetpotato0/deepresearch/pkg/logging"
	"github.com/sweetpotato0/deepresearch/prompt"
)

// Synthesizer merges sub-task results into an iteration report and decides
// whether the loop should continue. Both operations are non-raising: the
// loop's progress guarantee depends on always getting a synthesis and a
// decision back, however degraded.
type Synthesizer struct {
	gw      gateway.Gateway
	cfg     *config.Pipeline
	prompts *prompt.Manager
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer on the given gateway.
func NewSynthesizer(gw gateway.Gateway, cfg *config.Pipeline) *Synthesizer {
	if cfg == nil {
		cfg = config.DefaultPipeline()
	}
	return &Synthesizer{
		gw:      gw,
		cfg:     cfg,
		prompts: newPromptManager(),
		logger:  logging.WithComponent("synthesizer"),
	}
}

// Synthesize merges all accumulated results into one report. On an
// unparseable reply the raw text is preserved as the analysis rather than
// discarded; on a gateway error a minimal report records the failure.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []SubTaskResult) *Synthesis {
	text, err := s.prompts.Render(tmplSynth, map[string]any{
		"Query":   query,
		"Results": asJSON(results),
	})
	if err != nil {
		s.logger.Warn("synthesis prompt render failed", "error", err)
		return fallbackSynthesis(query, "")
	}

	reply, err := s.gw.Complete(ctx, &gateway.Request{
		SystemRole: leadResearcherRole,
		Prompt:     text,
	})
	if err != nil {
		s.logger.Warn("synthesis generation failed", "query", query, "error", err)
		return fallbackSynthesis(query, "")
	}

	var syn Synthesis
	if err := decodeReply(reply, &syn); err != nil {
		s.logger.Warn("synthesis reply unparseable, preserving raw text", "query", query)
		return fallbackSynthesis(query, reply)
	}

	syn.Query = query
	syn.SynthesisTimestamp = time.Now().UTC()
	return &syn
}

// DecideContinuation asks the model whether another iteration is warranted.
// The fallback is a pure numeric comparison against the iteration bound, so
// a broken model can never make the loop run past MaxIterations.
func (s *Synthesizer) DecideContinuation(ctx context.Context, syn *Synthesis, iteration int) *ContinuationDecision {
	text, err := s.prompts.Render(tmplDecide, map[string]any{
		"Synthesis": asJSON(syn),
		"Iteration": iteration,
	})
	if err != nil {
		s.logger.Warn("decision prompt render failed", "error", err)
		return fallbackDecision(iteration, s.cfg.MaxIterations)
	}

	reply, err := s.gw.Complete(ctx, &gateway.Request{
		SystemRole: leadResearcherRole,
		Prompt:     text,
	})
	if err != nil {
		s.logger.Warn("decision generation failed", "iteration", iteration, "error", err)
		return fallbackDecision(iteration, s.cfg.MaxIterations)
	}

	var dec ContinuationDecision
	if err := decodeReply(reply, &dec); err != nil {
		s.logger.Warn("decision reply unparseable, using iteration bound", "iteration", iteration)
		return fallbackDecision(iteration, s.cfg.MaxIterations)
	}

	dec.CurrentIteration = iteration
	return &dec
}

// fallbackSynthesis preserves whatever the model produced. rawReply may be
// empty when the gateway call itself failed.
func fallbackSynthesis(query, rawReply string) *Synthesis {
	analysis := rawReply
	if analysis == "" {
		analysis = "Synthesis unavailable due to a generation failure"
	}
	return &Synthesis{
		Query:              query,
		ExecutiveSummary:   "Research completed with parsing issues",
		KeyFindings:        []string{"Results processed but format was non-standard"},
		DetailedAnalysis:   analysis,
		ConfidenceLevel:    ConfidenceMedium,
		CompletenessScore:  70,
		SynthesisTimestamp: time.Now().UTC(),
	}
}

func fallbackDecision(iteration, maxIterations int) *ContinuationDecision {
	return &ContinuationDecision{
		NeedsMoreResearch: iteration < maxIterations,
		Reasoning:         "Fallback decision due to parsing error",
		SpecificGaps:      []string{},
		RefinedQueries:    []string{},
		Priority:          ConfidenceMedium,
		CurrentIteration:  iteration,
	}
}
