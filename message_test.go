package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_HasToolCalls(t *testing.T) {
	assert.False(t, AIMessage("x").HasToolCalls())
	assert.True(t, AIMessage("", call("c", "t", `{}`)).HasToolCalls())

	human := HumanMessage("x")
	human.ToolCalls = []ToolCall{call("c", "t", `{}`)}
	assert.False(t, human.HasToolCalls())
}

func TestToolMessage(t *testing.T) {
	m := ToolMessage(call("c9", "search", `{}`), "result", true)
	assert.Equal(t, Message{Role: RoleTool, Content: "result", ToolCallID: "c9", Name: "search", IsError: true}, m)
}

func TestFilterAndJoin(t *testing.T) {
	msgs := []Message{HumanMessage("h"), AIMessage("a"), SystemMessage("s"), AIMessage("b")}
	kept := filterByRole(msgs, RoleAI)
	assert.Equal(t, "a|b", joinContent(kept, "|"))
	assert.Empty(t, filterByRole(msgs, RoleTool))
}

func TestState_MergeSupervisor(t *testing.T) {
	st := &State{Notes: []string{"earlier"}, ResearchIterations: 1}
	st.mergeSupervisor(&SupervisorState{
		SupervisorMessages: []Message{HumanMessage("brief")},
		Notes:              []string{"n1", "n2"},
		RawNotes:           []string{"r1"},
		ResearchIterations: 2,
	})
	assert.Equal(t, []string{"earlier", "n1", "n2"}, st.Notes)
	assert.Equal(t, []string{"r1"}, st.RawNotes)
	assert.Len(t, st.SupervisorMessages, 1)
	assert.Equal(t, 3, st.ResearchIterations)
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(PrefixRun), GenerateID(PrefixRun)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^run_\d{8}T\d{6}_[0-9a-f-]{36}$`, a)
}
