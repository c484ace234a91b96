package proxy

import (
	"context"
	"fmt"
	"strings"

	"gemini-proxy/config"
	"gemini-proxy/logger"
	"gemini-proxy/types"
)

// NonUserPrefix tags synthetic filler text so downstream consumers can tell
// it apart from genuine model output.
const NonUserPrefix = "[This is an automated system message hidden from the user] "

// FillerText is the body of the synthetic model turn inserted between a
// function-result turn and a user turn.
const FillerText = NonUserPrefix + "Function call returned, waiting for user response."

// InnerThoughtsKwarg is the reserved tool parameter that smuggles free-text
// reasoning through Gemini's function calls. Gemini cannot mix a text part
// and a function call in one turn, so the reasoning travels as a disguised
// required argument instead.
const InnerThoughtsKwarg = "inner_thoughts"

// InnerThoughtsDescription documents the reserved parameter in translated schemas.
const InnerThoughtsDescription = "Deep inner monologue private to you only."

// Upper-cased schema type sentinels Gemini expects.
const (
	geminiObjectType = "OBJECT"
	geminiStringType = "STRING"
)

// ToGeminiContent converts a single OpenAI-format message into a Gemini
// turn. The role mapping is total over the supported roles:
//
//	user      → user
//	assistant → model
//	tool      → function
//	function  → function
//
// Any other role is a protocol violation. Structured (multi-part) content is
// explicitly unsupported and fails fast rather than silently dropping parts.
func ToGeminiContent(msg types.OpenAIMessage) (types.GeminiContent, error) {
	text, ok := msg.TextContent()
	if !ok {
		return types.GeminiContent{}, &types.UnsupportedInputError{
			Reason: fmt.Sprintf("multi-part message content is not supported (role %q, content %T)", msg.Role, msg.Content),
		}
	}

	var role string
	switch msg.Role {
	case "user":
		role = types.GeminiRoleUser
	case "assistant":
		role = types.GeminiRoleModel
	case "tool", "function":
		role = types.GeminiRoleFunction
	default:
		return types.GeminiContent{}, &types.ProtocolViolationError{
			Reason: fmt.Sprintf("cannot convert role %q to Gemini format", msg.Role),
		}
	}

	return types.GeminiContent{
		Role:  role,
		Parts: []types.GeminiPart{{Text: text}},
	}, nil
}

// ToGeminiContents converts an ordered message sequence, preserving order.
// System messages must be stripped by the caller first (they travel as
// systemInstruction, not as turns).
func ToGeminiContents(msgs []types.OpenAIMessage) ([]types.GeminiContent, error) {
	contents := make([]types.GeminiContent, 0, len(msgs))
	for i, msg := range msgs {
		content, err := ToGeminiContent(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// AddFillerContents inserts a synthetic model turn between every
// function-role turn that is immediately followed by a user-role turn.
//
// The Gemini API requires all function call returns to be immediately
// followed by a model turn, but an agent's function output is often followed
// directly by new user input with no natural model turn in between. The
// insertion is purely positional and idempotent: already-padded sequences
// come back unchanged.
func AddFillerContents(contents []types.GeminiContent) []types.GeminiContent {
	filler := types.GeminiContent{
		Role:  types.GeminiRoleModel,
		Parts: []types.GeminiPart{{Text: FillerText}},
	}

	padded := make([]types.GeminiContent, 0, len(contents))
	for i, content := range contents {
		padded = append(padded, content)
		if content.Role == types.GeminiRoleFunction && i+1 < len(contents) && contents[i+1].Role == types.GeminiRoleUser {
			padded = append(padded, filler)
		}
	}
	return padded
}

// ConvertToolsToGemini translates OpenAI tool definitions into Gemini's
// functionDeclarations dialect: one wrapper element carrying every
// declaration, parameters.type forced to OBJECT, and all property types
// upper-cased.
//
// When innerThoughtsInArgs is enabled, every declaration additionally gets
// the reserved inner_thoughts parameter appended to its properties and to
// the end of its required list, so the model's reasoning comes back as a
// function argument.
//
// Each schema is deep-copied before mutation; the caller's tool list is
// never modified and declarations share no nested state.
func ConvertToolsToGemini(tools []types.OpenAITool, innerThoughtsInArgs bool) []types.GeminiTool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]types.GeminiFunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		params := tool.Function.Parameters.Clone()
		params.Type = geminiObjectType
		if params.Properties == nil {
			params.Properties = make(map[string]types.ToolProperty)
		}
		for name, prop := range params.Properties {
			prop.Type = strings.ToUpper(prop.Type)
			if prop.Items != nil {
				prop.Items.Type = strings.ToUpper(prop.Items.Type)
			}
			params.Properties[name] = prop
		}

		if innerThoughtsInArgs {
			params.Properties[InnerThoughtsKwarg] = types.ToolProperty{
				Type:        geminiStringType,
				Description: InnerThoughtsDescription,
			}
			params.Required = append(params.Required, InnerThoughtsKwarg)
		}

		declarations = append(declarations, types.GeminiFunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  params,
		})
	}

	return []types.GeminiTool{{FunctionDeclarations: declarations}}
}

// BuildGeminiRequest assembles the full generateContent request from an
// OpenAI-format request: system messages become the systemInstruction,
// remaining messages become padded contents, and tools are translated with
// forced function calling (ANY mode) when present.
func BuildGeminiRequest(ctx context.Context, req types.OpenAIRequest, cfg *config.Config) (*types.GeminiRequest, error) {
	log := logger.FromContext(ctx, logger.NewConfigAdapter(cfg)).WithModel(req.Model)

	var systemParts []string
	var turns []types.OpenAIMessage
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if text, ok := msg.TextContent(); ok && text != "" {
				systemParts = append(systemParts, text)
			}
			continue
		}
		turns = append(turns, msg)
	}

	contents, err := ToGeminiContents(turns)
	if err != nil {
		return nil, err
	}

	if cfg.FillerPaddingEnabled {
		before := len(contents)
		contents = AddFillerContents(contents)
		if inserted := len(contents) - before; inserted > 0 {
			log.Debug("🔧 Inserted %d filler model turn(s) to satisfy function→user adjacency", inserted)
		}
	}

	geminiReq := &types.GeminiRequest{Contents: contents}

	if len(systemParts) > 0 {
		geminiReq.SystemInstruction = &types.GeminiContent{
			Parts: []types.GeminiPart{{Text: strings.Join(systemParts, "\n")}},
		}
	}

	if len(req.Tools) > 0 {
		tools := make([]types.OpenAITool, len(req.Tools))
		copy(tools, req.Tools)
		for i := range tools {
			tools[i].Function.Description = cfg.GetToolDescription(tools[i].Function.Name, tools[i].Function.Description)
		}
		geminiReq.Tools = ConvertToolsToGemini(tools, cfg.InnerThoughtsInArgs)
		// ANY mode forces the model to respond with a function call
		geminiReq.ToolConfig = &types.GeminiToolConfig{
			FunctionCallingConfig: &types.GeminiFunctionCallingConfig{Mode: "ANY"},
		}
		log.Debug("🔧 Translated %d tool(s) to functionDeclarations (inner_thoughts=%v)",
			len(req.Tools), cfg.InnerThoughtsInArgs)
	}

	if req.MaxTokens > 0 || req.Temperature != 0 {
		genCfg := &types.GeminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature != 0 {
			temp := req.Temperature
			genCfg.Temperature = &temp
		}
		geminiReq.GenerationConfig = genCfg
	}

	return geminiReq, nil
}
