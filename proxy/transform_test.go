package proxy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-proxy/config"
	"gemini-proxy/types"
)

func TestToGeminiContentRoleMapping(t *testing.T) {
	tests := []struct {
		name     string
		input    types.OpenAIMessage
		expected types.GeminiContent
	}{
		{
			name:  "user_maps_to_user",
			input: types.OpenAIMessage{Role: "user", Content: "Hello"},
			expected: types.GeminiContent{
				Role:  "user",
				Parts: []types.GeminiPart{{Text: "Hello"}},
			},
		},
		{
			name:  "assistant_maps_to_model",
			input: types.OpenAIMessage{Role: "assistant", Content: "Hi there"},
			expected: types.GeminiContent{
				Role:  "model",
				Parts: []types.GeminiPart{{Text: "Hi there"}},
			},
		},
		{
			name:  "tool_maps_to_function",
			input: types.OpenAIMessage{Role: "tool", Content: "result: 42"},
			expected: types.GeminiContent{
				Role:  "function",
				Parts: []types.GeminiPart{{Text: "result: 42"}},
			},
		},
		{
			name:  "function_maps_to_function",
			input: types.OpenAIMessage{Role: "function", Content: "done"},
			expected: types.GeminiContent{
				Role:  "function",
				Parts: []types.GeminiPart{{Text: "done"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ToGeminiContent(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToGeminiContentRejectsUnknownRole(t *testing.T) {
	_, err := ToGeminiContent(types.OpenAIMessage{Role: "developer", Content: "hi"})
	require.Error(t, err)

	var violation *types.ProtocolViolationError
	assert.True(t, errors.As(err, &violation))
}

func TestToGeminiContentRejectsMultiPartContent(t *testing.T) {
	msg := types.OpenAIMessage{
		Role: "user",
		Content: []interface{}{
			map[string]interface{}{"type": "text", "text": "hello"},
			map[string]interface{}{"type": "image_url", "image_url": "http://example.com/cat.png"},
		},
	}

	_, err := ToGeminiContent(msg)
	require.Error(t, err)

	var unsupported *types.UnsupportedInputError
	assert.True(t, errors.As(err, &unsupported), "multi-part content must fail fast, got: %v", err)
}

func TestAddFillerContents(t *testing.T) {
	user := types.GeminiContent{Role: "user", Parts: []types.GeminiPart{{Text: "hi"}}}
	model := types.GeminiContent{Role: "model", Parts: []types.GeminiPart{{Text: "hello"}}}
	function := types.GeminiContent{Role: "function", Parts: []types.GeminiPart{{Text: "result"}}}
	filler := types.GeminiContent{Role: "model", Parts: []types.GeminiPart{{Text: FillerText}}}

	tests := []struct {
		name     string
		input    []types.GeminiContent
		expected []types.GeminiContent
	}{
		{
			name:     "inserts_between_function_and_user",
			input:    []types.GeminiContent{user, model, function, user},
			expected: []types.GeminiContent{user, model, function, filler, user},
		},
		{
			name:     "no_insert_when_function_is_last",
			input:    []types.GeminiContent{user, model, function},
			expected: []types.GeminiContent{user, model, function},
		},
		{
			name:     "no_insert_when_function_followed_by_model",
			input:    []types.GeminiContent{function, model, user},
			expected: []types.GeminiContent{function, model, user},
		},
		{
			name:     "multiple_insertions",
			input:    []types.GeminiContent{function, user, function, user},
			expected: []types.GeminiContent{function, filler, user, function, filler, user},
		},
		{
			name:     "empty_sequence",
			input:    []types.GeminiContent{},
			expected: []types.GeminiContent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AddFillerContents(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Padding an already-padded sequence must change nothing.
func TestAddFillerContentsIdempotent(t *testing.T) {
	input := []types.GeminiContent{
		{Role: "user", Parts: []types.GeminiPart{{Text: "hi"}}},
		{Role: "function", Parts: []types.GeminiPart{{Text: "result"}}},
		{Role: "user", Parts: []types.GeminiPart{{Text: "next"}}},
	}

	once := AddFillerContents(input)
	twice := AddFillerContents(once)
	assert.Equal(t, once, twice)
}

// No function turn may be immediately followed by a user turn after padding.
func TestAddFillerContentsAdjacencyInvariant(t *testing.T) {
	sequences := [][]string{
		{"function", "user"},
		{"user", "function", "user", "function", "user"},
		{"function", "function", "user"},
		{"model", "function", "user", "model"},
	}

	for _, roles := range sequences {
		var contents []types.GeminiContent
		for _, role := range roles {
			contents = append(contents, types.GeminiContent{Role: role, Parts: []types.GeminiPart{{Text: "x"}}})
		}

		padded := AddFillerContents(contents)
		for i := 0; i < len(padded)-1; i++ {
			if padded[i].Role == "function" {
				assert.NotEqual(t, "user", padded[i+1].Role,
					"function turn at %d followed by user turn (input roles: %v)", i, roles)
			}
		}
	}
}

func findMoviesTool() types.OpenAITool {
	return types.OpenAITool{
		Type: "function",
		Function: types.OpenAIToolFunction{
			Name:        "find_movies",
			Description: "Find movie titles currently playing in theaters",
			Parameters: types.ToolSchema{
				Type: "object",
				Properties: map[string]types.ToolProperty{
					"location":    {Type: "string", Description: "The city and state, e.g. San Francisco, CA"},
					"description": {Type: "string", Description: "Any kind of description"},
				},
				Required: []string{"description"},
			},
		},
	}
}

func TestConvertToolsToGemini(t *testing.T) {
	result := ConvertToolsToGemini([]types.OpenAITool{findMoviesTool()}, true)

	require.Len(t, result, 1, "all declarations wrap under a single tool element")
	require.Len(t, result[0].FunctionDeclarations, 1)

	decl := result[0].FunctionDeclarations[0]
	assert.Equal(t, "find_movies", decl.Name)
	assert.Equal(t, "OBJECT", decl.Parameters.Type)
	assert.Equal(t, "STRING", decl.Parameters.Properties["location"].Type)
	assert.Equal(t, "STRING", decl.Parameters.Properties["description"].Type)

	// Reserved reasoning parameter is appended, and required last.
	thoughts, ok := decl.Parameters.Properties[InnerThoughtsKwarg]
	require.True(t, ok)
	assert.Equal(t, "STRING", thoughts.Type)
	assert.Equal(t, InnerThoughtsDescription, thoughts.Description)
	assert.Equal(t, []string{"description", InnerThoughtsKwarg}, decl.Parameters.Required)
}

func TestConvertToolsToGeminiWithoutInnerThoughts(t *testing.T) {
	result := ConvertToolsToGemini([]types.OpenAITool{findMoviesTool()}, false)

	decl := result[0].FunctionDeclarations[0]
	_, ok := decl.Parameters.Properties[InnerThoughtsKwarg]
	assert.False(t, ok)
	assert.Equal(t, []string{"description"}, decl.Parameters.Required)
}

func TestConvertToolsToGeminiDoesNotMutateInput(t *testing.T) {
	tool := findMoviesTool()
	tools := []types.OpenAITool{tool}

	_ = ConvertToolsToGemini(tools, true)

	// The caller's schema keeps its lowercase types and original required list.
	assert.Equal(t, "object", tools[0].Function.Parameters.Type)
	assert.Equal(t, "string", tools[0].Function.Parameters.Properties["location"].Type)
	assert.Equal(t, []string{"description"}, tools[0].Function.Parameters.Required)
	_, ok := tools[0].Function.Parameters.Properties[InnerThoughtsKwarg]
	assert.False(t, ok)
}

func TestConvertToolsToGeminiDeclarationsDoNotAlias(t *testing.T) {
	first := findMoviesTool()
	second := findMoviesTool()
	second.Function.Name = "find_theaters"

	result := ConvertToolsToGemini([]types.OpenAITool{first, second}, true)
	decls := result[0].FunctionDeclarations
	require.Len(t, decls, 2)

	// Mutating one declaration's schema must not leak into the other.
	decls[0].Parameters.Properties["location"] = types.ToolProperty{Type: "NUMBER"}
	assert.Equal(t, "STRING", decls[1].Parameters.Properties["location"].Type)
}

// Lower-casing translated property types back must reproduce the originals.
func TestConvertToolsToGeminiCasingRoundTrip(t *testing.T) {
	tool := findMoviesTool()
	result := ConvertToolsToGemini([]types.OpenAITool{tool}, false)

	for name, prop := range result[0].FunctionDeclarations[0].Parameters.Properties {
		original := tool.Function.Parameters.Properties[name]
		assert.Equal(t, original.Type, strings.ToLower(prop.Type))
	}
}

func TestBuildGeminiRequest(t *testing.T) {
	cfg := config.GetDefaultConfig()
	req := types.OpenAIRequest{
		Model: "gemini-1.5-pro",
		Messages: []types.OpenAIMessage{
			{Role: "system", Content: "You are a helpful assistant"},
			{Role: "user", Content: "Find a movie"},
			{Role: "tool", Content: "found Barbie"},
			{Role: "user", Content: "Great, book it"},
		},
		Tools:     []types.OpenAITool{findMoviesTool()},
		MaxTokens: 100,
	}

	geminiReq, err := BuildGeminiRequest(context.Background(), req, cfg)
	require.NoError(t, err)

	// System message travels as systemInstruction, not as a turn.
	require.NotNil(t, geminiReq.SystemInstruction)
	assert.Equal(t, "You are a helpful assistant", geminiReq.SystemInstruction.Parts[0].Text)

	// user, function, filler, user
	require.Len(t, geminiReq.Contents, 4)
	assert.Equal(t, "user", geminiReq.Contents[0].Role)
	assert.Equal(t, "function", geminiReq.Contents[1].Role)
	assert.Equal(t, "model", geminiReq.Contents[2].Role)
	assert.Equal(t, FillerText, geminiReq.Contents[2].Parts[0].Text)
	assert.Equal(t, "user", geminiReq.Contents[3].Role)

	require.Len(t, geminiReq.Tools, 1)
	require.NotNil(t, geminiReq.ToolConfig)
	require.NotNil(t, geminiReq.ToolConfig.FunctionCallingConfig)
	assert.Equal(t, "ANY", geminiReq.ToolConfig.FunctionCallingConfig.Mode)

	require.NotNil(t, geminiReq.GenerationConfig)
	assert.Equal(t, 100, geminiReq.GenerationConfig.MaxOutputTokens)
}

func TestBuildGeminiRequestPaddingDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.FillerPaddingEnabled = false

	req := types.OpenAIRequest{
		Model: "gemini-1.5-pro",
		Messages: []types.OpenAIMessage{
			{Role: "tool", Content: "result"},
			{Role: "user", Content: "next"},
		},
	}

	geminiReq, err := BuildGeminiRequest(context.Background(), req, cfg)
	require.NoError(t, err)
	require.Len(t, geminiReq.Contents, 2)
	assert.Equal(t, "function", geminiReq.Contents[0].Role)
	assert.Equal(t, "user", geminiReq.Contents[1].Role)
}

func TestBuildGeminiRequestToolDescriptionOverride(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.ToolDescriptions = map[string]string{"find_movies": "Overridden description"}

	req := types.OpenAIRequest{
		Model:    "gemini-1.5-pro",
		Messages: []types.OpenAIMessage{{Role: "user", Content: "hi"}},
		Tools:    []types.OpenAITool{findMoviesTool()},
	}

	geminiReq, err := BuildGeminiRequest(context.Background(), req, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Overridden description", geminiReq.Tools[0].FunctionDeclarations[0].Description)
}

func TestBuildGeminiRequestRejectsBadMessage(t *testing.T) {
	cfg := config.GetDefaultConfig()
	req := types.OpenAIRequest{
		Model: "gemini-1.5-pro",
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: "ok"},
			{Role: "critic", Content: "nope"},
		},
	}

	_, err := BuildGeminiRequest(context.Background(), req, cfg)
	require.Error(t, err)

	var violation *types.ProtocolViolationError
	assert.True(t, errors.As(err, &violation))
}
