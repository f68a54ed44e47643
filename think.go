package research

import "context"

// ThinkToolName is the name the model uses to record a reflection.
const ThinkToolName = "think_tool"

// ThinkInput is the argument of the reflection tool.
type ThinkInput struct {
	Reflection string `json:"reflection" jsonschema:"required,description=Your detailed reflection on research progress, findings, gaps, and next steps"`
}

// ThinkTool lets the model record strategic reasoning in the conversation.
// It has no side effects and returns immediately.
type ThinkTool struct{}

var _ TypedTool[ThinkInput] = ThinkTool{}

func (ThinkTool) Name() string { return ThinkToolName }

func (ThinkTool) Description() string {
	return "Tool for strategic reflection on research progress and decision-making. " +
		"Use after each search to analyze results and plan next steps."
}

func (ThinkTool) Execute(_ context.Context, input ThinkInput) (*ToolResult, error) {
	return TextResult(thinkAck(input.Reflection)), nil
}

func thinkAck(reflection string) string {
	return "Reflection recorded: " + reflection
}

// NewThinkTool returns the reflection tool as a Tool.
func NewThinkTool() Tool {
	return NewTool[ThinkInput](ThinkTool{})
}
