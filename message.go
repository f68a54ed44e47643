package research

import (
	"encoding/json"
	"strings"
)

// Role tags the kind of a conversational turn.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
	RoleSystem Role = "system"
)

// ToolCall is a tool invocation requested by the model. ID is opaque and is
// echoed back by the Tool message that answers the call.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Message is a single turn in a conversation.
//
// AI messages may carry ToolCalls. Tool messages answer exactly one call and
// carry its ToolCallID and the originating tool Name.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// HumanMessage creates a user turn.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// SystemMessage creates a system instruction.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AIMessage creates a model turn, optionally carrying tool calls.
func AIMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

// ToolMessage creates the reply to a single tool call.
func ToolMessage(call ToolCall, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
		IsError:    isError,
	}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAI && len(m.ToolCalls) > 0
}

// withoutToolCalls returns a copy of m with its tool calls removed.
func (m Message) withoutToolCalls() Message {
	m.ToolCalls = nil
	return m
}

// cloneMessages returns a shallow copy of msgs so callers can append without
// aliasing the source slice.
func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// filterByRole keeps messages whose role is one of roles, preserving order.
func filterByRole(msgs []Message, roles ...Role) []Message {
	var out []Message
	for _, m := range msgs {
		for _, r := range roles {
			if m.Role == r {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// joinContent concatenates message contents with sep.
func joinContent(msgs []Message, sep string) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, sep)
}
