// Package tools implements the callable actions exposed to the chat
// model and the registry that validates and dispatches them.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/lapakbot/lapak/pkg/llm"
)

// ErrorKind classifies a tool failure.
type ErrorKind string

const (
	// ErrValidation covers malformed arguments and unknown product ids.
	ErrValidation ErrorKind = "validation"
	// ErrMissingInput means a required value could not be recovered and
	// the customer must be asked for it.
	ErrMissingInput ErrorKind = "missing_input"
	// ErrNotFound means the lookup ran but matched nothing.
	ErrNotFound ErrorKind = "not_found"
	// ErrCollaborator means a downstream service failed.
	ErrCollaborator ErrorKind = "collaborator"
)

// Error is a tagged tool failure. It is data, not a Go error: tool
// failures are conversational outcomes fed back to the model.
type Error struct {
	Kind   ErrorKind
	Detail string
}

// Result is the outcome of one tool execution. Exactly one of Output
// and Err is meaningful.
type Result struct {
	Output string
	Err    *Error
}

// Success wraps a successful tool output.
func Success(output string) Result {
	return Result{Output: output}
}

// Failure wraps a tagged tool failure.
func Failure(kind ErrorKind, detail string) Result {
	return Result{Err: &Error{Kind: kind, Detail: detail}}
}

// Failed reports whether the result carries a failure.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Text renders the result as the plain text handed back to the model.
// This is the only place the success/failure tag is flattened.
func (r Result) Text() string {
	if r.Err == nil {
		return r.Output
	}
	if r.Err.Kind == ErrCollaborator {
		return "Failed to execute tool. Reason: " + r.Err.Detail
	}
	return r.Err.Detail
}

// Tool is one callable action. Implementations carry their per-turn
// context (tenant, catalog snapshot, session) baked in at construction.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, params map[string]any) Result
}

// Set is a per-turn tool registry. Arguments are validated against each
// tool's JSON Schema before dispatch; validation failures become tool
// results, never Go errors.
type Set struct {
	names   []string
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	logger  zerolog.Logger
}

// NewSet compiles the tools' schemas and builds a registry.
func NewSet(logger zerolog.Logger, tools ...Tool) (*Set, error) {
	s := &Set{
		tools:   make(map[string]Tool, len(tools)),
		schemas: make(map[string]*gojsonschema.Schema, len(tools)),
		logger:  logger,
	}

	for _, t := range tools {
		name := t.Name()
		if _, exists := s.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", name)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.InputSchema()))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for tool %s: %w", name, err)
		}

		s.names = append(s.names, name)
		s.tools[name] = t
		s.schemas[name] = schema
	}

	return s, nil
}

// Schemas returns the tool declarations in registration order, ready to
// bind to a model call.
func (s *Set) Schemas() []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(s.names))
	for _, name := range s.names {
		t := s.tools[name]
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return schemas
}

// Has reports whether a tool with the given name is registered.
func (s *Set) Has(name string) bool {
	_, ok := s.tools[name]
	return ok
}

// Execute validates the arguments and runs the named tool. Unknown
// tools and invalid arguments come back as failure results.
func (s *Set) Execute(ctx context.Context, name string, params map[string]any) Result {
	t, ok := s.tools[name]
	if !ok {
		return Failure(ErrValidation, fmt.Sprintf("unknown tool: %s", name))
	}

	outcome, err := s.schemas[name].Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return Failure(ErrValidation, fmt.Sprintf("invalid tool arguments: %v", err))
	}
	if !outcome.Valid() {
		details := make([]string, 0, len(outcome.Errors()))
		for _, e := range outcome.Errors() {
			details = append(details, e.String())
		}
		s.logger.Debug().Str("tool", name).Strs("errors", details).Msg("Tool arguments rejected")
		return Failure(ErrValidation, "invalid tool arguments: "+strings.Join(details, "; "))
	}

	return t.Execute(ctx, params)
}
