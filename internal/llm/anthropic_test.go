package llm

import (
	"encoding/json"
	"testing"
)

func TestToolCallAccumulatorReassemblesFragments(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.Start(1, ToolCall{ID: "call-1", Name: "get_available_slots"})
	acc.Append(1, `{"time_pref`)
	acc.Append(1, `erence":"morning"}`)

	call, ok := acc.Finish(1)
	if !ok {
		t.Fatal("expected a finished call")
	}
	var args map[string]string
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("arguments did not reassemble to valid JSON: %v", err)
	}
	if args["time_preference"] != "morning" {
		t.Errorf("args = %v", args)
	}

	if _, ok := acc.Finish(1); ok {
		t.Error("finishing twice must not yield a second call")
	}
}

func TestToolCallAccumulatorFallbackInput(t *testing.T) {
	// Some feeds deliver complete input at block start with no fragments.
	acc := newToolCallAccumulator()
	acc.Start(0, ToolCall{ID: "call-1", Name: "book_demo", Arguments: json.RawMessage(`{"slot_id":"slot-1"}`)})

	call, ok := acc.Finish(0)
	if !ok {
		t.Fatal("expected a finished call")
	}
	if string(call.Arguments) != `{"slot_id":"slot-1"}` {
		t.Errorf("arguments = %s", call.Arguments)
	}
}

func TestToolCallAccumulatorFinishAllClosesOpenBlocks(t *testing.T) {
	// A truncated feed can end the turn with blocks still open; each must
	// yield exactly one call, in index order.
	acc := newToolCallAccumulator()
	acc.Start(2, ToolCall{ID: "call-b", Name: "second"})
	acc.Start(1, ToolCall{ID: "call-a", Name: "first"})
	acc.Append(1, `{"time_preference":"mo`)

	calls := acc.FinishAll()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].ID != "call-a" || calls[1].ID != "call-b" {
		t.Errorf("order = %s, %s", calls[0].ID, calls[1].ID)
	}
	// Truncated fragment text passes through; the engine substitutes {}.
	if string(calls[0].Arguments) != `{"time_preference":"mo` {
		t.Errorf("arguments = %s", calls[0].Arguments)
	}
	if acc.FinishAll() != nil {
		t.Error("second FinishAll must be empty")
	}
}

func TestSchemaRequired(t *testing.T) {
	if got := schemaRequired(map[string]interface{}{"required": []string{"a", "b"}}); len(got) != 2 {
		t.Errorf("[]string form: %v", got)
	}
	if got := schemaRequired(map[string]interface{}{"required": []interface{}{"a", 3, "b"}}); len(got) != 2 {
		t.Errorf("[]interface{} form drops non-strings: %v", got)
	}
	if got := schemaRequired(map[string]interface{}{}); got != nil {
		t.Errorf("absent: %v", got)
	}
}
