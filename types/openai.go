package types

// OpenAIRequest represents an incoming OpenAI-style chat completion request,
// the canonical format the proxy accepts before conversion to Gemini's
// contents/parts dialect.
//
// The request structure supports:
//   - Multi-turn conversations through the Messages field
//   - Tool/function calling capabilities through the Tools field
//   - Streaming flag pass-through (streaming itself is not supported)
//   - Token limit controls through MaxTokens
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	Tools       []OpenAITool    `json:"tools,omitempty"`
	ToolChoice  interface{}     `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// OpenAIResponse represents a complete chat completion response in the
// canonical format, reconstructed from a Gemini response.
//
// The ID is freshly generated and the Model field is caller-supplied because
// the Gemini API returns neither.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIMessage represents a message in OpenAI format.
//
// Content is flexible because clients may send either a plain string or a
// structured multi-part array. The proxy only supports string content;
// the transform layer rejects anything else rather than silently dropping
// parts. In responses the content carries the model's inner monologue when
// a tool call is present.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    interface{}      `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// TextContent returns the message content as a string when it is one.
func (m OpenAIMessage) TextContent() (string, bool) {
	s, ok := m.Content.(string)
	return s, ok
}

// OpenAIChoice represents a response choice
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OpenAITool represents a tool definition in OpenAI format
type OpenAITool struct {
	Type     string             `json:"type"`
	Function OpenAIToolFunction `json:"function"`
}

// OpenAIToolFunction represents a tool function definition
type OpenAIToolFunction struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ToolSchema `json:"parameters"`
}

// OpenAIToolCall represents a tool call in OpenAI format. Gemini never
// supplies call identifiers, so IDs on reconstructed calls are synthetic.
type OpenAIToolCall struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Function OpenAIToolCallFunction `json:"function"`
}

// OpenAIToolCallFunction represents tool call function details
type OpenAIToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIUsage represents token usage in OpenAI format.
// TotalTokens always equals PromptTokens + CompletionTokens.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolSchema represents a JSON Schema definition for tool parameters,
// shared by both dialects. The canonical side spells types lowercase
// ("object", "string"); the Gemini side upper-cases them ("OBJECT",
// "STRING"). The transform layer owns the casing conversion.
type ToolSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required"`
}

// ToolProperty represents an individual parameter definition within a tool schema
type ToolProperty struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *ToolPropertyItems `json:"items,omitempty"`
}

// ToolPropertyItems represents the element schema for array-type properties
type ToolPropertyItems struct {
	Type string `json:"type"`
}

// Clone returns a deep copy of the schema so translation never mutates the
// caller's descriptor or aliases state between descriptors.
func (s ToolSchema) Clone() ToolSchema {
	out := ToolSchema{Type: s.Type}
	if s.Properties != nil {
		out.Properties = make(map[string]ToolProperty, len(s.Properties))
		for name, prop := range s.Properties {
			if prop.Items != nil {
				items := *prop.Items
				prop.Items = &items
			}
			out.Properties[name] = prop
		}
	}
	if s.Required != nil {
		out.Required = append([]string(nil), s.Required...)
	}
	return out
}
