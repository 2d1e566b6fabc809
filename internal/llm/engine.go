package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	defaultMaxTurns   = 8
	defaultToolBudget = 30 * time.Second
)

// ErrMaxTurnsExceeded is returned when the model keeps requesting tools past
// the configured turn bound. The protocol itself has no termination
// guarantee, so the bound is enforced here.
var ErrMaxTurnsExceeded = errors.New("tool-calling loop exceeded max turns")

// emptyArgs replaces argument payloads that never materialized into valid
// JSON. A malformed argument stream must not abort an otherwise-healthy
// conversation.
var emptyArgs = json.RawMessage(`{}`)

// Engine drives the submit/stream/execute conversation loop against a
// provider, executing finalized tool calls through the registry.
type Engine struct {
	provider    Provider
	tools       *ToolRegistry
	toolTimeout time.Duration
}

func NewEngine(provider Provider, tools *ToolRegistry) *Engine {
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Engine{
		provider:    provider,
		tools:       tools,
		toolTimeout: defaultToolBudget,
	}
}

// SetToolTimeout overrides the per-handler execution budget.
func (e *Engine) SetToolTimeout(d time.Duration) {
	if d > 0 {
		e.toolTimeout = d
	}
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *ToolRegistry {
	return e.tools
}

func maxTurns(req Request) int {
	if req.MaxTurns > 0 {
		return req.MaxTurns
	}
	return defaultMaxTurns
}

// Stream runs the conversation loop and yields events until the model
// produces a turn with no tool calls, an error occurs, or the turn bound is
// hit. Tool calls are executed strictly sequentially, in emission order:
// later calls in a turn may depend on state produced by earlier ones.
func (e *Engine) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		return e.runLoop(ctx, req, events)
	}), nil
}

func (e *Engine) runLoop(ctx context.Context, req Request, events chan<- Event) error {
	bound := maxTurns(req)

	for turn := 0; turn < bound; turn++ {
		stream, err := e.provider.Stream(ctx, req)
		if err != nil {
			return err
		}

		var toolCalls []ToolCall
		var textBuilder strings.Builder
		for {
			event, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				stream.Close()
				return err
			}
			if event.Type == EventError && event.Err != nil {
				stream.Close()
				return event.Err
			}

			switch event.Type {
			case EventTextDelta:
				textBuilder.WriteString(event.Text)
				events <- event
			case EventToolUseStart:
				events <- event
			case EventToolCall:
				if event.Tool != nil {
					toolCalls = append(toolCalls, *event.Tool)
				}
			case EventDone:
				// Provider turn end; the loop decides whether to continue.
			default:
				events <- event
			}
		}
		stream.Close()

		if len(toolCalls) == 0 {
			events <- Event{Type: EventDone}
			return nil
		}

		if turn == bound-1 {
			return ErrMaxTurnsExceeded
		}

		toolCalls = ensureToolCallIDs(toolCalls)
		toolCalls = dedupeToolCalls(toolCalls)

		results := make([]Message, 0, len(toolCalls))
		for _, call := range toolCalls {
			results = append(results, e.executeToolCall(ctx, call, events))
		}

		req.Messages = append(req.Messages, buildAssistantMessage(textBuilder.String(), toolCalls))
		req.Messages = append(req.Messages, results...)
	}

	return ErrMaxTurnsExceeded
}

// executeToolCall runs one finalized call and always produces exactly one
// result message for it. Every failure class short of a transport error is
// converted into model-visible text so the conversation can self-heal.
func (e *Engine) executeToolCall(ctx context.Context, call ToolCall, events chan<- Event) Message {
	call.Arguments = normalizeArgs(call.Arguments)

	tool, ok := e.tools.Get(call.Name)
	if !ok {
		return ToolErrorMessage(call.ID, call.Name, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	if err := e.tools.ValidateArgs(call.Name, call.Arguments); err != nil {
		return ToolErrorMessage(call.ID, call.Name, err.Error())
	}
	if err := tool.Validate(call.Arguments); err != nil {
		var missing *MissingFieldsError
		if errors.As(err, &missing) {
			return ToolResultMessage(call.ID, call.Name,
				fmt.Sprintf("Cannot proceed yet: %s. Ask the user for the missing details.", missing.Error()))
		}
		return ToolErrorMessage(call.ID, call.Name, err.Error())
	}

	toolCtx, cancel := context.WithTimeout(ctx, e.toolTimeout)
	out, err := tool.Execute(toolCtx, call.Arguments)
	cancel()
	if err != nil {
		events <- Event{Type: EventToolError, ToolName: call.Name, Err: err}
		return ToolErrorMessage(call.ID, call.Name, fmt.Sprintf("Error: %v", err))
	}

	if out.Push != nil {
		events <- Event{Type: EventPush, ToolName: call.Name, Push: out.Push}
	}
	return ToolResultMessage(call.ID, call.Name, out.Text)
}

// normalizeArgs substitutes an empty object when fragment concatenation did
// not produce valid JSON. This trades strict correctness for availability.
func normalizeArgs(args json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return emptyArgs
	}
	return json.RawMessage(trimmed)
}

func buildAssistantMessage(text string, toolCalls []ToolCall) Message {
	var parts []Part
	if text != "" {
		parts = append(parts, Part{Type: PartText, Text: text})
	}
	for i := range toolCalls {
		call := toolCalls[i]
		parts = append(parts, Part{Type: PartToolCall, ToolCall: &call})
	}
	return Message{Role: RoleAssistant, Parts: parts}
}

func ensureToolCallIDs(calls []ToolCall) []ToolCall {
	for i := range calls {
		if strings.TrimSpace(calls[i].ID) == "" {
			calls[i].ID = fmt.Sprintf("toolcall-%d", i+1)
		}
	}
	return calls
}

func dedupeToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) < 2 {
		return calls
	}
	seen := make(map[string]struct{}, len(calls))
	out := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		if _, ok := seen[call.ID]; ok {
			continue
		}
		seen[call.ID] = struct{}{}
		out = append(out, call)
	}
	return out
}
