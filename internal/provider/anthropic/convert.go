package anthropic

import (
	"encoding/json"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/provider"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// convertRequest transforms a provider.Request into Anthropic SDK parameters.
func convertRequest(req provider.Request, cfg *Config) sdkanthropic.MessageNewParams {
	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: req.System}}
	}

	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	temperature := req.Temperature
	if temperature == nil {
		temperature = cfg.Temperature
	}
	if temperature != nil {
		params.Temperature = sdkanthropic.Float(*temperature)
	}

	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	return params
}

// convertMessages maps block-structured history onto SDK message params.
// The history already matches the wire shape: user/assistant roles only,
// tool results carried as user-message blocks.
func convertMessages(msgs []message.Message) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		blocks := make([]sdkanthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
		for _, block := range msg.Blocks {
			switch block.Type {
			case message.BlockText:
				blocks = append(blocks, sdkanthropic.NewTextBlock(block.Text))
			case message.BlockToolUse:
				// Raw JSON passes through without double-encoding;
				// json.RawMessage implements json.Marshaler.
				input := any(block.Input)
				if len(block.Input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, sdkanthropic.NewToolUseBlock(block.ID, input, block.Name))
			case message.BlockToolResult:
				blocks = append(blocks, sdkanthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
			}
		}

		role := sdkanthropic.MessageParamRoleUser
		if msg.Role == message.RoleAssistant {
			role = sdkanthropic.MessageParamRoleAssistant
		}
		result = append(result, sdkanthropic.MessageParam{Role: role, Content: blocks})
	}
	return result
}

// convertTools transforms tool definitions into Anthropic SDK tool params.
func convertTools(tools []tool.Definition) []sdkanthropic.ToolUnionParam {
	result := make([]sdkanthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		param := &sdkanthropic.ToolParam{Name: t.Name}
		if t.Description != "" {
			param.Description = sdkanthropic.String(t.Description)
		}
		if len(t.InputSchema) > 0 {
			param.InputSchema = convertInputSchema(t.InputSchema)
		}
		result[i] = sdkanthropic.ToolUnionParam{OfTool: param}
	}
	return result
}

// convertInputSchema converts a raw JSON Schema into the SDK's
// ToolInputSchemaParam. Fields beyond "properties" and "required" (enum,
// $defs, additionalProperties) are preserved via ExtraFields.
func convertInputSchema(raw json.RawMessage) sdkanthropic.ToolInputSchemaParam {
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return sdkanthropic.ToolInputSchemaParam{}
	}

	param := sdkanthropic.ToolInputSchemaParam{}

	if props, ok := full["properties"]; ok {
		param.Properties = props
		delete(full, "properties")
	}
	if req, ok := full["required"]; ok {
		if arr, ok := req.([]any); ok {
			strs := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					strs = append(strs, s)
				}
			}
			param.Required = strs
		}
		delete(full, "required")
	}
	// "type" is auto-set to "object" by the SDK.
	delete(full, "type")

	if len(full) > 0 {
		param.ExtraFields = full
	}

	return param
}

// convertResponse transforms an SDK Message into a provider.Response,
// keeping text and tool_use blocks in model order.
func convertResponse(msg *sdkanthropic.Message) provider.Response {
	blocks := make([]message.ContentBlock, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdkanthropic.TextBlock:
			blocks = append(blocks, message.NewTextBlock(v.Text))
		case sdkanthropic.ToolUseBlock:
			blocks = append(blocks, message.NewToolUseBlock(v.ID, v.Name, json.RawMessage(v.Input)))
		}
	}

	// A response without content blocks is a valid, empty final answer;
	// the agent loop renders it as empty text instead of retrying.
	return provider.Response{
		Message:    message.Assistant(blocks...),
		StopReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to the provider's.
func convertStopReason(reason sdkanthropic.StopReason) provider.StopReason {
	switch reason {
	case sdkanthropic.StopReasonEndTurn, sdkanthropic.StopReasonStopSequence:
		return provider.StopEndTurn
	case sdkanthropic.StopReasonMaxTokens:
		return provider.StopMaxTokens
	case sdkanthropic.StopReasonToolUse:
		return provider.StopToolUse
	case sdkanthropic.StopReasonRefusal:
		return provider.StopRefusal
	default:
		return provider.StopEndTurn
	}
}
