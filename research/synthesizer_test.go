package research

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
)

func TestSynthesizeParsesReply(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return `{"executive_summary": "summary", "key_findings": ["f1"], "detailed_analysis": "analysis", "confidence_level": "high", "completeness_score": 85}`, nil
	})
	syn := NewSynthesizer(gw, config.DefaultPipeline()).Synthesize(context.Background(), "topic", nil)

	if syn.ExecutiveSummary != "summary" {
		t.Errorf("Unexpected summary %q", syn.ExecutiveSummary)
	}
	if syn.Query != "topic" {
		t.Errorf("Synthesis must carry the query, got %q", syn.Query)
	}
	if syn.SynthesisTimestamp.IsZero() {
		t.Errorf("Timestamp must be set")
	}
}

func TestSynthesizePreservesRawTextOnParseFailure(t *testing.T) {
	raw := "The research shows many interesting things, but not as JSON."
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return raw, nil
	})
	syn := NewSynthesizer(gw, config.DefaultPipeline()).Synthesize(context.Background(), "topic", nil)

	if syn.DetailedAnalysis != raw {
		t.Errorf("Raw reply must be preserved as the analysis, got %q", syn.DetailedAnalysis)
	}
	if syn.ConfidenceLevel != ConfidenceMedium || syn.CompletenessScore != 70 {
		t.Errorf("Fallback synthesis markers wrong: %s/%d", syn.ConfidenceLevel, syn.CompletenessScore)
	}
}

func TestSynthesizeNeverNilOnGatewayError(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return "", errors.New("backend down")
	})
	syn := NewSynthesizer(gw, config.DefaultPipeline()).Synthesize(context.Background(), "topic", nil)

	if syn == nil {
		t.Fatalf("Synthesize must never return nil")
	}
	if syn.DetailedAnalysis == "" {
		t.Errorf("Degraded synthesis must still explain itself")
	}
}

func TestDecideContinuationParsesReply(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return `{"needs_more_research": true, "reasoning": "gaps remain", "specific_gaps": ["pricing"], "refined_queries": ["topic pricing"], "priority": "high"}`, nil
	})
	dec := NewSynthesizer(gw, config.DefaultPipeline()).DecideContinuation(context.Background(), &Synthesis{}, 1)

	if !dec.NeedsMoreResearch {
		t.Errorf("Expected continuation")
	}
	if dec.CurrentIteration != 1 {
		t.Errorf("Decision must record the iteration, got %d", dec.CurrentIteration)
	}
}

func TestDecideContinuationFallbackUsesIterationBound(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return "no structure at all", nil
	})
	s := NewSynthesizer(gw, config.DefaultPipeline())

	early := s.DecideContinuation(context.Background(), &Synthesis{}, 1)
	if !early.NeedsMoreResearch {
		t.Errorf("Fallback before the bound should continue")
	}

	atBound := s.DecideContinuation(context.Background(), &Synthesis{}, 3)
	if atBound.NeedsMoreResearch {
		t.Errorf("Fallback at the bound must stop")
	}
}
