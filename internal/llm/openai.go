package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider using the chat-completions streaming
// API. Tool-call arguments arrive as indexed fragments that are reassembled
// before the call is exposed.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(chooseModel(req.Model, p.model)),
			Messages: buildOpenAIMessages(req.System, req.Messages),
			StreamOptions: openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			},
		}
		if req.Temperature > 0 {
			params.Temperature = openai.Float(float64(req.Temperature))
		}
		if req.MaxOutputTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
		}
		if len(req.Tools) > 0 {
			params.Tools = buildOpenAITools(req.Tools)
		}

		toolState := newOpenAIToolState()
		var lastUsage *Usage

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.CompletionTokens > 0 {
				lastUsage = &Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				}
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					events <- Event{Type: EventTextDelta, Text: choice.Delta.Content}
				}
				for _, tc := range choice.Delta.ToolCalls {
					if started := toolState.Add(tc); started != "" {
						events <- Event{Type: EventToolUseStart, ToolName: started}
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai streaming error: %w", err)
		}
		for _, call := range toolState.Calls() {
			call := call
			events <- Event{Type: EventToolCall, Tool: &call}
		}
		if lastUsage != nil {
			events <- Event{Type: EventUsage, Use: lastUsage}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func buildOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			if text := collectTextParts(msg.Parts); text != "" {
				out = append(out, openai.UserMessage(text))
			}
		case RoleAssistant:
			text, toolCalls := splitOpenAIParts(msg.Parts)
			if len(toolCalls) > 0 {
				assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
				if text != "" {
					assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(text),
					}
				}
				out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
				continue
			}
			if text != "" {
				out = append(out, openai.AssistantMessage(text))
			}
		case RoleTool:
			for _, part := range msg.Parts {
				if part.Type != PartToolResult || part.ToolResult == nil {
					continue
				}
				tool := openai.ChatCompletionToolMessageParam{
					ToolCallID: part.ToolResult.ID,
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(part.ToolResult.Content),
					},
				}
				out = append(out, openai.ChatCompletionMessageParamUnion{OfTool: &tool})
			}
		}
	}
	return out
}

func splitOpenAIParts(parts []Part) (string, []openai.ChatCompletionMessageToolCallParam) {
	var textParts []string
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, part := range parts {
		switch part.Type {
		case PartText:
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
		case PartToolCall:
			if part.ToolCall == nil {
				continue
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: part.ToolCall.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      part.ToolCall.Name,
					Arguments: string(part.ToolCall.Arguments),
				},
			})
		}
	}
	return strings.Join(textParts, ""), toolCalls
}

func buildOpenAITools(specs []ToolSpec) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(spec.Schema),
			},
		})
	}
	return tools
}

func collectTextParts(parts []Part) string {
	var b strings.Builder
	for _, part := range parts {
		if part.Type == PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// openaiToolState reassembles indexed tool-call argument fragments.
type openaiToolState struct {
	byIndex map[int64]*openaiToolCallState
	order   []int64
}

type openaiToolCallState struct {
	id   string
	name string
	args strings.Builder
}

func newOpenAIToolState() *openaiToolState {
	return &openaiToolState{byIndex: make(map[int64]*openaiToolCallState)}
}

// Add folds one delta into the state and returns the tool name the first
// time a call's name becomes known, or "" otherwise.
func (s *openaiToolState) Add(tc openai.ChatCompletionChunkChoiceDeltaToolCall) string {
	state, ok := s.byIndex[tc.Index]
	if !ok {
		state = &openaiToolCallState{}
		s.byIndex[tc.Index] = state
		s.order = append(s.order, tc.Index)
	}
	if tc.ID != "" {
		state.id = tc.ID
	}
	var started string
	if tc.Function.Name != "" && state.name == "" {
		state.name = tc.Function.Name
		started = state.name
	}
	if tc.Function.Arguments != "" {
		state.args.WriteString(tc.Function.Arguments)
	}
	return started
}

func (s *openaiToolState) Calls() []ToolCall {
	if len(s.order) == 0 {
		return nil
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	calls := make([]ToolCall, 0, len(s.order))
	for _, idx := range s.order {
		state := s.byIndex[idx]
		if state == nil {
			continue
		}
		calls = append(calls, ToolCall{
			ID:        state.id,
			Name:      state.name,
			Arguments: json.RawMessage(state.args.String()),
		})
	}
	return calls
}
