package proxy

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"gemini-proxy/types"
)

// TokenCounter estimates the token count of a text. The proxy treats
// counting as a black box; the default is a rough heuristic and callers can
// inject a real tokenizer.
type TokenCounter func(text string) int

// DefaultTokenCounter approximates tokens as one per four runes. Only used
// when the Gemini response carries no usageMetadata.
func DefaultTokenCounter(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// InterpretOptions controls Gemini response interpretation.
type InterpretOptions struct {
	// Model is echoed into the canonical response because the Gemini API
	// never returns the model name.
	Model string

	// InputContents is the request turn sequence, required for usage
	// estimation when the response carries no usageMetadata.
	InputContents []types.GeminiContent

	// PullInnerThoughts strips the reserved inner_thoughts argument out of
	// every function call into the message content. Must match the
	// innerThoughtsInArgs setting used when the request was built.
	PullInnerThoughts bool

	// CountTokens is the estimation fallback; nil means DefaultTokenCounter.
	CountTokens TokenCounter
}

// ConvertGeminiResponse parses a generateContent response into the canonical
// chat completion shape.
//
// Each candidate part becomes one choice with a globally sequential index.
// Function-call parts are rebuilt as canonical tool calls with synthetic
// IDs, with the inner_thoughts argument pulled out as the message content.
// Structural violations (unexpected role, missing inner thoughts,
// unrecognized finish reason) are hard errors: a malformed tool call passed
// upstream would corrupt argument parsing in whatever executes the tool.
func ConvertGeminiResponse(resp *types.GeminiResponse, opts InterpretOptions) (*types.OpenAIResponse, error) {
	var choices []types.OpenAIChoice
	index := 0

	for _, candidate := range resp.Candidates {
		if candidate.Content.Role != types.GeminiRoleModel {
			return nil, &types.ProtocolViolationError{
				Reason: fmt.Sprintf("unexpected role in response content: %q (want %q)", candidate.Content.Role, types.GeminiRoleModel),
			}
		}

		for _, part := range candidate.Content.Parts {
			message, err := interpretPart(part, opts.PullInnerThoughts)
			if err != nil {
				return nil, err
			}

			finishReason, err := mapFinishReason(candidate.FinishReason, len(message.ToolCalls) > 0)
			if err != nil {
				return nil, err
			}

			choices = append(choices, types.OpenAIChoice{
				Index:        index,
				Message:      message,
				FinishReason: finishReason,
			})
			index++
		}
	}

	usage, err := reconcileUsage(resp, choices, opts)
	if err != nil {
		return nil, err
	}

	return &types.OpenAIResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().UTC().Unix(),
		Model:   opts.Model,
		Choices: choices,
		Usage:   usage,
	}, nil
}

// interpretPart converts one response part into a canonical assistant
// message. A part carries either a function call or text, never both.
func interpretPart(part types.GeminiPart, pullInnerThoughts bool) (types.OpenAIMessage, error) {
	if part.FunctionCall == nil {
		// Plain text: the whole part is inner monologue with no tool call.
		return types.OpenAIMessage{
			Role:    "assistant",
			Content: part.Text,
		}, nil
	}

	call := part.FunctionCall
	args := call.Args

	var innerThoughts string
	if pullInnerThoughts {
		raw, ok := args[InnerThoughtsKwarg]
		if !ok {
			return types.OpenAIMessage{}, &types.ProtocolViolationError{
				Reason: fmt.Sprintf("function call %q is missing the %s argument", call.Name, InnerThoughtsKwarg),
			}
		}
		innerThoughts, ok = raw.(string)
		if !ok {
			return types.OpenAIMessage{}, &types.ProtocolViolationError{
				Reason: fmt.Sprintf("function call %q has non-string %s argument (%T)", call.Name, InnerThoughtsKwarg, raw),
			}
		}

		// Strip the reserved key on a copy; the response structure stays
		// untouched for the caller.
		cleaned := make(map[string]interface{}, len(args))
		for k, v := range args {
			if k != InnerThoughtsKwarg {
				cleaned[k] = v
			}
		}
		args = cleaned
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return types.OpenAIMessage{}, &types.ProtocolViolationError{
			Reason: fmt.Sprintf("function call %q has unserializable arguments: %v", call.Name, err),
		}
	}

	return types.OpenAIMessage{
		Role:    "assistant",
		Content: innerThoughts,
		ToolCalls: []types.OpenAIToolCall{{
			// Gemini never supplies a call ID, so synthesize one.
			ID:   "call_" + uuid.NewString(),
			Type: "function",
			Function: types.OpenAIToolCallFunction{
				Name:      call.Name,
				Arguments: string(argsJSON),
			},
		}},
	}, nil
}

// mapFinishReason translates Gemini's finish reason vocabulary onto the
// canonical one. STOP on a tool-calling message reports function_call
// because forced function calling ends every successful turn with STOP.
// Unknown values fail rather than guess.
func mapFinishReason(reason string, hasToolCalls bool) (string, error) {
	switch reason {
	case types.GeminiFinishStop:
		if hasToolCalls {
			return "function_call", nil
		}
		return "stop", nil
	case types.GeminiFinishMaxTokens:
		return "length", nil
	case types.GeminiFinishSafety, types.GeminiFinishRecitation:
		return "content_filter", nil
	default:
		return "", &types.ProtocolViolationError{
			Reason: fmt.Sprintf("unrecognized finish reason %q", reason),
		}
	}
}

// reconcileUsage maps native usageMetadata when present, otherwise estimates
// counts from the JSON-serialized input turns and final response message.
func reconcileUsage(resp *types.GeminiResponse, choices []types.OpenAIChoice, opts InterpretOptions) (types.OpenAIUsage, error) {
	if resp.UsageMetadata != nil {
		return types.OpenAIUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}, nil
	}

	if opts.InputContents == nil {
		return types.OpenAIUsage{}, &types.UsageUnavailableError{
			Reason: "response carries no usageMetadata and no input contents were supplied for estimation",
		}
	}

	count := opts.CountTokens
	if count == nil {
		count = DefaultTokenCounter
	}

	// Very rough approximations on both sides.
	inputJSON, err := json.Marshal(opts.InputContents)
	if err != nil {
		return types.OpenAIUsage{}, fmt.Errorf("serializing input contents for token estimation: %w", err)
	}
	promptTokens := count(string(inputJSON))

	completionTokens := 0
	if len(choices) > 0 {
		messageJSON, err := json.Marshal(choices[len(choices)-1].Message)
		if err != nil {
			return types.OpenAIUsage{}, fmt.Errorf("serializing response message for token estimation: %w", err)
		}
		completionTokens = count(string(messageJSON))
	}

	return types.OpenAIUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}, nil
}
