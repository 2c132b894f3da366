// Package tools exposes the read-only investigation surface: named tools
// with JSON Schema validated arguments, and snapshot resources addressed by
// URI. Handlers return typed values; the registry owns serialization.
package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidArgs      = errors.New("invalid arguments")
)

// Handler executes one tool call. Arguments arrive already validated against
// the tool's input schema.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`

	handler  Handler
	compiled *jsonschema.Schema
}

type Registry struct {
	tools     map[string]*Tool
	toolNames []string

	resources map[string]*Resource
	resURIs   []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     map[string]*Tool{},
		resources: map[string]*Resource{},
	}
}

// Register compiles the tool's input schema and adds the tool. Schemas are
// Draft 2020-12; a schema that fails to compile is a programming error.
func (r *Registry) Register(name, description string, inputSchema string, h Handler) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := "tool://" + name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(inputSchema)); err != nil {
		return errors.Wrapf(err, "add schema for %s", name)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return errors.Wrapf(err, "compile schema for %s", name)
	}

	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(inputSchema),
		handler:     h,
		compiled:    compiled,
	}
	r.toolNames = append(r.toolNames, name)
	sort.Strings(r.toolNames)
	return nil
}

// Tools returns the catalog in name order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.toolNames))
	for _, name := range r.toolNames {
		out = append(out, r.tools[name])
	}
	return out
}

// Dispatch validates args against the named tool's schema, runs the handler
// and serializes the result as indented JSON. Unknown tools and schema
// violations fail before any handler runs.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", errors.Wrap(ErrToolNotFound, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	norm := normalize(args)
	if err := tool.compiled.Validate(norm); err != nil {
		return "", errors.Wrapf(ErrInvalidArgs, "%s: %v", name, err)
	}
	if m, ok := norm.(map[string]any); ok {
		args = m
	}

	result, err := tool.handler(ctx, args)
	if err != nil {
		return "", err
	}
	return marshalResult(result)
}

func marshalResult(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal result")
	}
	return string(b), nil
}

// normalize round-trips args through encoding/json so the validator sees
// plain maps, slices and float64 numbers regardless of how the transport
// decoded them.
func normalize(args map[string]any) any {
	b, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return args
	}
	return out
}
