package types

// Role values used by the Gemini contents/parts dialect. Note the shifted
// vocabulary relative to OpenAI: the assistant is "model" and tool results
// travel under "function".
const (
	GeminiRoleUser     = "user"
	GeminiRoleModel    = "model"
	GeminiRoleFunction = "function"
)

// Finish reasons returned by the Gemini API. Any value outside this set is
// treated as a protocol violation rather than coerced.
const (
	GeminiFinishStop       = "STOP"
	GeminiFinishMaxTokens  = "MAX_TOKENS"
	GeminiFinishSafety     = "SAFETY"
	GeminiFinishRecitation = "RECITATION"
)

// GeminiRequest represents a generateContent request body.
type GeminiRequest struct {
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent         `json:"contents"`
	Tools             []GeminiTool            `json:"tools,omitempty"`
	ToolConfig        *GeminiToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiContent is a single conversation turn in the Gemini dialect.
//
// The API forbids a "function" turn being immediately followed by a "user"
// turn; the transform layer inserts synthetic "model" filler turns to
// satisfy that constraint.
type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart carries either plain text or a function call, never both.
type GeminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *GeminiFunctionCall `json:"functionCall,omitempty"`
}

// GeminiFunctionCall is a model-issued function invocation. Args is a plain
// JSON object; Gemini does not stringify arguments the way OpenAI does, and
// it never attaches a call ID.
type GeminiFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// GeminiTool wraps function declarations. The API expects a single tool
// element containing the full declaration list.
type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDeclaration `json:"functionDeclarations"`
}

// GeminiFunctionDeclaration describes one callable function in Gemini's
// schema dialect (upper-cased type sentinels).
type GeminiFunctionDeclaration struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ToolSchema `json:"parameters"`
}

// GeminiToolConfig controls function calling behavior.
type GeminiToolConfig struct {
	FunctionCallingConfig *GeminiFunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

// GeminiFunctionCallingConfig holds the function calling mode.
// Mode "ANY" forces the model to respond with a function call.
type GeminiFunctionCallingConfig struct {
	Mode string `json:"mode,omitempty"`
}

// GeminiGenerationConfig carries sampling parameters.
type GeminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	CandidateCount  int      `json:"candidateCount,omitempty"`
}

// GeminiResponse represents a generateContent response body. UsageMetadata
// is optional; when the API omits it the proxy estimates usage itself.
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
}

// GeminiCandidate is one generated completion.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiUsageMetadata is Gemini's native token accounting.
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
