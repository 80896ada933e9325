package research

import (
	"testing"
)

func TestDecodeReplyPlainObject(t *testing.T) {
	var plan Plan
	err := decodeReply(`{"objectives": ["a"], "scope": "s", "estimated_iterations": 2}`, &plan)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(plan.Objectives) != 1 || plan.Objectives[0] != "a" {
		t.Errorf("Unexpected objectives: %v", plan.Objectives)
	}
	if plan.EstimatedIterations != 2 {
		t.Errorf("Expected 2 iterations, got %d", plan.EstimatedIterations)
	}
}

func TestDecodeReplyFencedJSON(t *testing.T) {
	reply := "```json\n{\"scope\": \"fenced\"}\n```"
	var plan Plan
	if err := decodeReply(reply, &plan); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if plan.Scope != "fenced" {
		t.Errorf("Expected fenced scope, got %q", plan.Scope)
	}
}

func TestDecodeReplySurroundingProse(t *testing.T) {
	reply := `Here is the result you asked for:
{"scope": "prose"}
Hope that helps!`
	var plan Plan
	if err := decodeReply(reply, &plan); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if plan.Scope != "prose" {
		t.Errorf("Expected prose scope, got %q", plan.Scope)
	}
}

func TestDecodeReplyArray(t *testing.T) {
	reply := `[{"id": "task_1", "title": "T"}]`
	var tasks []SubTask
	if err := decodeReply(reply, &tasks); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task_1" {
		t.Errorf("Unexpected tasks: %v", tasks)
	}
}

func TestDecodeReplyMalformed(t *testing.T) {
	var plan Plan
	if err := decodeReply("I could not produce JSON, sorry.", &plan); err == nil {
		t.Errorf("Expected error for reply without JSON")
	}
	if err := decodeReply(`{"scope": `, &plan); err == nil {
		t.Errorf("Expected error for truncated JSON")
	}
}
