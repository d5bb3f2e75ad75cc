package session

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultMaxNewTokens = 2048
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Reasoning-dialect marker tokens. The dialect wraps each turn in special
// delimiters and invites an internal thinking segment that is stripped
// before the reply is stored or shown.
const (
	userStart      = "<|User|>"
	assistantStart = "<|Assistant|>"
	thinkStart     = "<think>\n"
	thinkEnd       = "</think>"
	sentenceStart  = "<|begin_of_sentence|>"
	sentenceEnd    = "<|end_of_sentence|>"
)

// stopSentinel is the engine-defined end-of-output marker detected inside
// the decoded character stream.
const stopSentinel = "<eop>"

// Config holds the immutable-after-load parameters of one Session.
// Engine-specific options live in the mutable overlay instead (overlay.go).
type Config struct {
	// ModelID is the registry id the session was created for.
	ModelID string
	// ModelPath points at the model file or config directory on disk.
	ModelPath string
	// MaxNewTokens bounds generated increments per reply. Zero means
	// DefaultMaxNewTokens. Mutable later via SetMaxNewTokens.
	MaxNewTokens int
	// SystemPrompt seeds the history's system turn. Empty means
	// DefaultSystemPrompt.
	SystemPrompt string
	// KeepHistory retains user/assistant turns across sends. When false,
	// history is reset to the system turn before each send.
	KeepHistory bool
	// Reasoning selects the reasoning prompt dialect.
	Reasoning bool
	// AudioOutput asks the engine to synthesize a waveform after each
	// completed turn.
	AudioOutput bool
}

func (c Config) withDefaults() Config {
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = DefaultMaxNewTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}
