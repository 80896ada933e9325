package config

import (
	"strings"
	"testing"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("name", "")

	if !v.HasErrors() {
		t.Errorf("Expected validation error for empty value")
	}

	v = NewValidator()
	v.RequireNonEmpty("name", "ok")
	if v.HasErrors() {
		t.Errorf("Unexpected validation error: %v", v.Error())
	}
}

func TestValidatorRange(t *testing.T) {
	v := NewValidator()
	v.ValidateRange("count", 5, 1, 10)
	if v.HasErrors() {
		t.Errorf("Unexpected error for in-range value")
	}

	v = NewValidator()
	v.ValidateRange("count", 11, 1, 10)
	if !v.HasErrors() {
		t.Errorf("Expected error for out-of-range value")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := NewValidator()
	v.ValidateOneOf("style", "markdown", "markdown", "apa", "mla")
	if v.HasErrors() {
		t.Errorf("Unexpected error for allowed value")
	}

	v = NewValidator()
	v.ValidateOneOf("style", "chicago", "markdown", "apa", "mla")
	if !v.HasErrors() {
		t.Errorf("Expected error for disallowed value")
	}
}

func TestValidatorCombinedError(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("a", "")
	v.RequirePositive("b", -1)

	err := v.Error()
	if err == nil {
		t.Fatalf("Expected combined error")
	}
	if !strings.Contains(err.Error(), "a:") || !strings.Contains(err.Error(), "b:") {
		t.Errorf("Combined error missing fields: %v", err)
	}
	if len(v.Errors()) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(v.Errors()))
	}
}

func TestDefaultPipeline(t *testing.T) {
	cfg := DefaultPipeline()

	if cfg.MaxIterations != 3 {
		t.Errorf("Expected default max iterations 3, got %d", cfg.MaxIterations)
	}
	if cfg.MaxSubagents != 4 {
		t.Errorf("Expected default max subagents 4, got %d", cfg.MaxSubagents)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default pipeline should validate: %v", err)
	}
}

func TestPipelineValidate(t *testing.T) {
	cfg := DefaultPipeline()
	cfg.MaxIterations = 0
	cfg.CitationStyle = "chicago"

	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected validation failure")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DEEPRESEARCH_MAX_ITERATIONS", "5")
	t.Setenv("DEEPRESEARCH_SEARCH_ENGINE", "tavily")

	cfg := FromEnv()
	if cfg.MaxIterations != 5 {
		t.Errorf("Expected max iterations 5 from env, got %d", cfg.MaxIterations)
	}
	if cfg.SearchEngine != "tavily" {
		t.Errorf("Expected search engine tavily, got %s", cfg.SearchEngine)
	}
}
