package gemini

/*
	GEMINI API - REQUEST TYPES
*/

// generateContentRequest represents the request to Gemini's streamGenerateContent endpoint.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []tool             `json:"tools,omitempty"`
}

// systemInstruction represents the system instruction for Gemini.
type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content represents a content block with role and parts.
type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

// part represents one content part. Requests only use Text and InlineData;
// responses may carry any of the fields.
type part struct {
	Text                string               `json:"text,omitempty"`
	Thought             bool                 `json:"thought,omitempty"` // true if this part contains a thinking summary
	InlineData          *inlineData          `json:"inlineData,omitempty"`
	ExecutableCode      *executableCode      `json:"executableCode,omitempty"`
	CodeExecutionResult *codeExecutionResult `json:"codeExecutionResult,omitempty"`
}

// inlineData represents inline binary data (base64-encoded images, audio, video, documents).
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// executableCode is code generated by the model for the code execution sandbox.
type executableCode struct {
	Language string `json:"language,omitempty"` // e.g. "PYTHON"
	Code     string `json:"code,omitempty"`
}

// codeExecutionResult is the sandbox output for the preceding executableCode.
type codeExecutionResult struct {
	Outcome string `json:"outcome,omitempty"` // "OUTCOME_OK", "OUTCOME_FAILED", "OUTCOME_DEADLINE_EXCEEDED"
	Output  string `json:"output,omitempty"`
}

// generationConfig represents generation parameters for Gemini.
type generationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	MaxOutputTokens *int            `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// thinkingConfig represents the thinking/reasoning configuration for Gemini.
type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

// tool represents a tool definition for Gemini. Each entry enables exactly one tool.
type tool struct {
	GoogleSearch  *googleSearchTool  `json:"google_search,omitempty"`
	CodeExecution *codeExecutionTool `json:"codeExecution,omitempty"`
}

// googleSearchTool represents the Google Search grounding tool.
type googleSearchTool struct{}

// codeExecutionTool represents the code execution sandbox tool.
type codeExecutionTool struct{}

/*
	GEMINI API - RESPONSE TYPES
*/

// generateContentResponse is one streamed chunk.
type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// candidate represents a response candidate.
type candidate struct {
	Content           *content           `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	Index             int                `json:"index,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

// groundingMetadata links spans of the generated text to web sources.
type groundingMetadata struct {
	GroundingChunks   []groundingChunk   `json:"groundingChunks,omitempty"`
	GroundingSupports []groundingSupport `json:"groundingSupports,omitempty"`
	WebSearchQueries  []string           `json:"webSearchQueries,omitempty"`
}

// groundingChunk represents a grounding chunk.
type groundingChunk struct {
	Web *webChunk `json:"web,omitempty"`
}

// webChunk represents a web chunk.
type webChunk struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// groundingSupport ties one text segment to the chunks backing it.
type groundingSupport struct {
	Segment               *segment  `json:"segment,omitempty"`
	GroundingChunkIndices []int     `json:"groundingChunkIndices,omitempty"`
	ConfidenceScores      []float64 `json:"confidenceScores,omitempty"`
}

// segment is a byte range of the accumulated response text.
type segment struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	Text       string `json:"text,omitempty"`
}

// promptFeedback reports why a prompt was rejected.
type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}
