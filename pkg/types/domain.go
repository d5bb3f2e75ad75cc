package types

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in an ordered conversation history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Model represents a discoverable or loadable model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: qwen2-1.5b-q4
	ID string `json:"id" example:"qwen2-1.5b-q4"`
	// Human-friendly name.
	// example: Qwen2 1.5B (Q4)
	Name string `json:"name" example:"Qwen2 1.5B (Q4)"`
	// Absolute path to the model file or config directory on disk.
	// example: /home/user/models/qwen2-1.5b-q4.gguf
	Path string `json:"path" example:"/home/user/models/qwen2-1.5b-q4.gguf"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant" example:"Q4_K_M"`
	// Optional family (e.g., llama, qwen, deepseek).
	// example: qwen
	Family string `json:"family,omitempty" example:"qwen"`
}

// ContextStats is the engine's per-turn context report. Nil when the engine
// has not been loaded.
type ContextStats struct {
	// Length of the rendered prompt in tokens.
	PromptLen int `json:"prompt_len"`
	// Number of tokens generated in the current sequence.
	GenLen int `json:"gen_len"`
	// Prefill wall time in microseconds.
	PrefillUs int64 `json:"prefill_us"`
	// Decode wall time in microseconds.
	DecodeUs int64 `json:"decode_us"`
	// Vision encoder wall time in microseconds (zero if unused).
	VisionUs int64 `json:"vision_us"`
	// Audio synthesis wall time in microseconds (zero if unused).
	AudioUs int64 `json:"audio_us"`
}
