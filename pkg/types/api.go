package types

// CreateSessionRequest creates and loads a new session.
type CreateSessionRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: qwen2-1.5b-q4
	Model string `json:"model,omitempty" example:"qwen2-1.5b-q4"`
	// Maximum number of new tokens per reply. Zero uses the server default.
	// example: 2048
	MaxNewTokens int `json:"max_new_tokens,omitempty" example:"2048"`
	// System prompt. Empty uses the server default.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Whether assistant/user turns are retained across sends.
	KeepHistory *bool `json:"keep_history,omitempty"`
	// Enable the reasoning prompt dialect (think-segment markers).
	Reasoning bool `json:"reasoning,omitempty"`
	// Enable waveform synthesis after each completed turn.
	AudioOutput bool `json:"audio_output,omitempty"`
	// Optional seed history: alternating user/assistant texts.
	History []string `json:"history,omitempty"`
}

// CreateSessionResponse returns the opaque session handle.
type CreateSessionResponse struct {
	// example: 3
	SessionID int64 `json:"session_id" example:"3"`
	Model     string `json:"model"`
}

// ChatRequest submits one user message to a session.
type ChatRequest struct {
	// Required user message text.
	// example: Write a haiku about the ocean.
	Text string `json:"text" example:"Write a haiku about the ocean."`
}

// ChatHistoryRequest submits a caller-owned full history for a one-shot
// reply. The session's persisted history is not touched.
type ChatHistoryRequest struct {
	Turns []Turn `json:"turns"`
}

// ChatEvent is one NDJSON line of a streamed reply. Delta lines carry
// content fragments; the final line has Done set with the finalized text
// and the engine's context stats.
type ChatEvent struct {
	Delta   string        `json:"delta,omitempty"`
	Done    bool          `json:"done,omitempty"`
	Content string        `json:"content,omitempty"`
	Stats   *ContextStats `json:"stats,omitempty"`
}

// SessionInfo summarizes one live session for GET /sessions.
type SessionInfo struct {
	// example: 3
	SessionID int64 `json:"session_id" example:"3"`
	// example: qwen2-1.5b-q4
	Model string `json:"model" example:"qwen2-1.5b-q4"`
	// Number of turns currently held, including the system turn.
	// example: 5
	Turns int `json:"turns" example:"5"`
	// Whether the engine behind this session finished loading.
	Loaded bool `json:"loaded"`
}

// SessionsResponse wraps GET /sessions.
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Live session count.
	// example: 2
	Sessions int `json:"sessions" example:"2"`
	// Models known to the registry.
	// example: 4
	Models int `json:"models" example:"4"`
	// Default model id, if configured.
	DefaultModel string `json:"default_model,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// MaxTokensRequest updates the per-session token budget.
type MaxTokensRequest struct {
	// example: 512
	MaxNewTokens int `json:"max_new_tokens" example:"512"`
}

// SystemPromptRequest replaces the session's system prompt.
type SystemPromptRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

// SystemPromptResponse returns the session's system prompt.
type SystemPromptResponse struct {
	SystemPrompt string `json:"system_prompt"`
}

// AssistantPromptRequest updates the engine's assistant prompt template.
type AssistantPromptRequest struct {
	AssistantPrompt string `json:"assistant_prompt"`
}

// AudioRequest toggles waveform synthesis for a session.
type AudioRequest struct {
	Enabled bool `json:"enabled"`
}

// ClearHistoryRequest truncates history to the first Keep turns.
type ClearHistoryRequest struct {
	// example: 1
	Keep int `json:"keep" example:"1"`
}

// DebugInfoResponse carries the last rendered prompt and raw response.
type DebugInfoResponse struct {
	Debug string `json:"debug"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
