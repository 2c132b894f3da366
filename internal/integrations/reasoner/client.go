// Package reasoner abstracts the external reasoning service the
// investigation loop talks to. The orchestrator only sees conversation
// turns, tool declarations and replies; the wire protocol lives in the
// concrete clients.
package reasoner

import (
	"context"
	"encoding/json"
)

// Roles a conversation turn can carry. A system turn carries standing
// instructions and is positioned by the concrete client, not the transcript.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
	RoleTool   = "tool"
)

// ToolDecl advertises one callable tool to the reasoning service.
// Parameters is the tool's JSON Schema.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is one tool invocation requested by the reasoning service.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult carries one tool's serialized output (or error payload) back.
type ToolResult struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// Turn is one entry of the conversation transcript.
type Turn struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Reply is the reasoning service's answer to a transcript: free text,
// tool calls to execute, or both.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Client generates the next reply for a transcript given the available
// tools.
type Client interface {
	Generate(ctx context.Context, turns []Turn, tools []ToolDecl) (Reply, error)
}
