package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool describes a callable external tool. Validate checks preconditions
// without performing side effects; Execute performs the action. Execute is
// only called after Validate succeeds.
type Tool interface {
	Spec() ToolSpec
	Validate(args json.RawMessage) error
	Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error)
}

// ToolOutput is what a tool hands back: text for the model, and optionally
// a structured push event for the connected client.
type ToolOutput struct {
	Text string
	Push any
}

// MissingFieldsError reports required inputs a tool cannot proceed without.
// The engine converts it into a tool result asking the model to gather the
// missing data; the tool's side effect is not performed.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// ToolRegistry stores tools by name and validates call arguments against
// each tool's declared input schema.
type ToolRegistry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its input schema. Registering a tool with
// an invalid schema is a programming error surfaced at startup.
func (r *ToolRegistry) Register(tool Tool) error {
	spec := tool.Spec()
	sch, err := compileToolSchema(spec)
	if err != nil {
		return fmt.Errorf("register tool %s: %w", spec.Name, err)
	}
	r.tools[spec.Name] = tool
	r.schemas[spec.Name] = sch
	return nil
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistry) Unregister(name string) {
	delete(r.tools, name)
	delete(r.schemas, name)
}

// AllSpecs returns the specs for all registered tools.
func (r *ToolRegistry) AllSpecs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	return specs
}

// ValidateArgs checks finalized call arguments against the tool's input
// schema. Violations mean required data is absent or malformed; they are
// recoverable (the model is told what is wrong), never fatal.
func (r *ToolRegistry) ValidateArgs(name string, args json.RawMessage) error {
	sch, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("tool not registered: %s", name)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func compileToolSchema(spec ToolSpec) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(spec.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := "tool:///" + spec.Name + ".json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}
