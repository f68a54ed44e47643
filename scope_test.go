package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/deep-research-go/prompts"
)

func TestModelScoper_Clarify(t *testing.T) {
	m := script(AIMessage("", call("s", clarifyToolName,
		`{"need_clarification":true,"question":"Which region?","verification":""}`)))
	s := NewModelScoper(m, prompts.Default(), fixedClock)

	c, err := s.Clarify(context.Background(), []Message{
		HumanMessage("best coffee"),
		AIMessage("Do you mean beans or shops?"),
		HumanMessage("beans"),
	})
	require.NoError(t, err)
	assert.True(t, c.NeedClarification)
	assert.Equal(t, "Which region?", c.Question)

	req := m.request(0)
	assert.Equal(t, clarifyToolName, req.ToolChoice)
	assert.Equal(t, []string{clarifyToolName}, toolNames(req.Tools))
	require.Len(t, req.Messages, 1)
	prompt := req.Messages[0].Content
	assert.Contains(t, prompt, "Human: best coffee\nAI: Do you mean beans or shops?\nHuman: beans")
	assert.Contains(t, prompt, "Fri Sep 5, 2025")
}

func TestModelScoper_ClarifyWithoutToolCallProceeds(t *testing.T) {
	s := NewModelScoper(script(AIMessage("I will research beans.")), prompts.Default(), fixedClock)

	c, err := s.Clarify(context.Background(), []Message{HumanMessage("beans")})
	require.NoError(t, err)
	assert.False(t, c.NeedClarification)
	assert.Equal(t, "I will research beans.", c.Verification)
}

func TestModelScoper_ClarifyBlankQuestionUsesContent(t *testing.T) {
	reply := AIMessage("Do you mean beans or cafes?", call("s", clarifyToolName, `{"need_clarification":true,"question":""}`))
	s := NewModelScoper(script(reply), prompts.Default(), fixedClock)

	c, err := s.Clarify(context.Background(), []Message{HumanMessage("best coffee")})
	require.NoError(t, err)
	assert.True(t, c.NeedClarification)
	assert.Equal(t, "Do you mean beans or cafes?", c.Question)
}

func TestModelScoper_ClarifyBadJSON(t *testing.T) {
	s := NewModelScoper(script(AIMessage("", call("s", clarifyToolName, `{"need_clarification":"yes"}`))),
		prompts.Default(), fixedClock)

	_, err := s.Clarify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrModelCall)
}

func TestModelScoper_WriteBrief(t *testing.T) {
	tests := []struct {
		name  string
		reply Message
		want  string
		err   error
	}{
		{"tool call", AIMessage("", call("s", briefToolName, `{"research_brief":"  Find the best beans.  "}`)), "Find the best beans.", nil},
		{"plain content", AIMessage("Find the best beans."), "Find the best beans.", nil},
		{"empty", AIMessage("", call("s", briefToolName, `{"research_brief":""}`)), "", ErrEmptyBrief},
		{"blank content", AIMessage(" \n "), "", ErrEmptyBrief},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := script(tt.reply)
			brief, err := NewModelScoper(m, prompts.Default(), fixedClock).
				WriteBrief(context.Background(), []Message{HumanMessage("beans")})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, brief)
			assert.Equal(t, briefToolName, m.request(0).ToolChoice)
		})
	}
}

func TestModelScoper_ModelError(t *testing.T) {
	s := NewModelScoper(script().failOn(0, errors.New("down")), prompts.Default(), nil)

	_, err := s.WriteBrief(context.Background(), nil)
	assert.ErrorIs(t, err, ErrModelCall)
	assert.Contains(t, err.Error(), briefToolName)
}

func TestBufferString(t *testing.T) {
	got := bufferString([]Message{
		SystemMessage("s"),
		HumanMessage("h"),
		AIMessage("a"),
		ToolMessage(call("c", "t", `{}`), "r", false),
	})
	assert.Equal(t, "System: s\nHuman: h\nAI: a\nTool: r", got)
}
