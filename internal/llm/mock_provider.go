package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockTurn is one scripted model turn.
type MockTurn struct {
	Text      string
	ToolCalls []ToolCall
	Err       error
	Delay     time.Duration
	ChunkSize int
}

// MockProvider replays scripted turns for tests. Each Stream call consumes
// the next turn and records the request it was given.
type MockProvider struct {
	name     string
	turns    []MockTurn
	turnIdx  int
	Requests []Request
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (p *MockProvider) Name() string { return p.name }

// AddTextResponse queues a turn that streams only text.
func (p *MockProvider) AddTextResponse(text string) *MockProvider {
	return p.AddTurn(MockTurn{Text: text})
}

// AddToolCall queues a turn with a single tool call whose arguments are the
// JSON encoding of args.
func (p *MockProvider) AddToolCall(id, name string, args any) *MockProvider {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("mock provider: marshal args: %v", err))
	}
	return p.AddTurn(MockTurn{ToolCalls: []ToolCall{{ID: id, Name: name, Arguments: raw}}})
}

// AddError queues a turn that fails mid-stream.
func (p *MockProvider) AddError(err error) *MockProvider {
	return p.AddTurn(MockTurn{Err: err})
}

func (p *MockProvider) AddTurn(turn MockTurn) *MockProvider {
	p.turns = append(p.turns, turn)
	return p
}

func (p *MockProvider) Reset() {
	p.turnIdx = 0
	p.Requests = nil
}

func (p *MockProvider) CurrentTurn() int { return p.turnIdx }

func (p *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	if p.turnIdx >= len(p.turns) {
		return nil, fmt.Errorf("mock provider %s: no more turns configured (got request %d)", p.name, p.turnIdx+1)
	}
	turn := p.turns[p.turnIdx]
	p.turnIdx++
	p.Requests = append(p.Requests, req)

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}
		if turn.Err != nil {
			return turn.Err
		}

		chunkSize := turn.ChunkSize
		if chunkSize <= 0 {
			chunkSize = 10
		}
		for _, chunk := range chunkText(turn.Text, chunkSize) {
			events <- Event{Type: EventTextDelta, Text: chunk}
		}
		for i := range turn.ToolCalls {
			call := turn.ToolCalls[i]
			events <- Event{Type: EventToolUseStart, ToolName: call.Name}
			events <- Event{Type: EventToolCall, Tool: &call}
		}
		events <- Event{Type: EventUsage, Use: &Usage{InputTokens: 10, OutputTokens: 5}}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func chunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
