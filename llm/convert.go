package llm

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	research "github.com/armatrix/deep-research-go"
)

// emptyToolOutput replaces empty tool results, which the API rejects.
const emptyToolOutput = "(no output)"

// buildParams converts a research.Request into API parameters.
//
// System messages are lifted into the system prompt. Consecutive turns with
// the same API role are merged, so a batch of Tool messages becomes a single
// user turn of tool_result blocks.
func buildParams(model anthropic.Model, maxTokens int64, req research.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
	}

	if req.System != "" {
		params.System = append(params.System, anthropic.TextBlockParam{Text: req.System})
	}

	for _, m := range req.Messages {
		if m.Role == research.RoleSystem {
			if m.Content != "" {
				params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
			}
			continue
		}

		role, blocks := toBlocks(m)
		if len(blocks) == 0 {
			continue
		}
		n := len(params.Messages)
		if n > 0 && params.Messages[n-1].Role == role {
			params.Messages[n-1].Content = append(params.Messages[n-1].Content, blocks...)
			continue
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, spec := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: param.NewOpt(spec.Description),
				InputSchema: spec.InputSchema,
			},
		})
	}

	if req.ToolChoice != "" {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.ToolChoice},
		}
	}
	return params
}

func toBlocks(m research.Message) (anthropic.MessageParamRole, []anthropic.ContentBlockParamUnion) {
	switch m.Role {
	case research.RoleAI:
		var blocks []anthropic.ContentBlockParamUnion
		if m.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		for _, call := range m.ToolCalls {
			input := call.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				},
			})
		}
		return anthropic.MessageParamRoleAssistant, blocks

	case research.RoleTool:
		content := m.Content
		if content == "" {
			content = emptyToolOutput
		}
		return anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(m.ToolCallID, content, m.IsError),
		}

	default:
		if m.Content == "" {
			return anthropic.MessageParamRoleUser, nil
		}
		return anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(m.Content),
		}
	}
}

// fromAPIMessage converts an accumulated API response into an AI message.
func fromAPIMessage(msg anthropic.Message) research.Message {
	var (
		texts []string
		calls []research.ToolCall
	)
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			tu := block.AsToolUse()
			calls = append(calls, research.ToolCall{
				ID:    tu.ID,
				Name:  tu.Name,
				Input: json.RawMessage(tu.Input),
			})
		}
	}
	return research.AIMessage(strings.Join(texts, ""), calls...)
}
