package session

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"sessiond/pkg/types"
)

// Session owns one ordered conversation history and drives the engine to
// turn user messages into finished assistant replies.
type Session struct {
	cfg    Config
	engine Engine
	log    zerolog.Logger

	history      []types.Turn
	maxNewTokens int
	systemPrompt string
	audioOutput  bool
	loaded       bool

	// Engine-config overlay (overlay.go). pending collects updates staged
	// before Load; current mirrors the full applied configuration after.
	pending map[string]any
	current map[string]any

	// Transient per-generation state; reset at the start of each run.
	run generationRun

	inFlight atomic.Bool

	lastPrompt   string
	lastResponse string
}

// New constructs a Session around the given engine. seedHistory holds
// alternating user/assistant texts, templated per the active dialect the
// same way live turns are when replayed from storage. The logger is the
// injected diagnostic sink; pass zerolog.Nop() to silence it.
func New(cfg Config, engine Engine, seedHistory []string, log zerolog.Logger) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:          cfg,
		engine:       engine,
		log:          log,
		maxNewTokens: cfg.MaxNewTokens,
		systemPrompt: cfg.SystemPrompt,
		audioOutput:  cfg.AudioOutput,
		pending:      make(map[string]any),
	}
	s.history = append(s.history, types.Turn{
		Role: types.RoleSystem,
		Text: systemTurnText(s.systemPrompt, cfg.Reasoning),
	})
	for i, text := range seedHistory {
		if i%2 == 0 {
			s.history = append(s.history, types.Turn{
				Role: types.RoleUser,
				Text: userTurnText(text, true, cfg.Reasoning),
			})
		} else {
			stored := text
			if cfg.Reasoning {
				stored = finalizeReasoningReply(stored)
			} else {
				stored = deleteThinkPart(stored)
			}
			s.history = append(s.history, types.Turn{Role: types.RoleAssistant, Text: stored})
		}
	}
	return s
}

// Load stages the engine configuration (base options plus any overlay
// updates collected so far) and loads the engine. A failure leaves the
// session registered but unusable: generation calls report nil stats.
func (s *Session) Load() error {
	if s.engine == nil {
		return ErrEngineUnavailable("no engine attached")
	}
	base := s.baseEngineConfig()
	for k, v := range s.pending {
		base[k] = v
	}
	s.current = base
	if err := s.applyConfig(); err != nil {
		return err
	}
	if err := s.engine.Load(); err != nil {
		s.log.Warn().Err(err).Str("model", s.cfg.ModelID).Msg("engine load failed")
		return err
	}
	s.loaded = true
	s.log.Debug().Str("model", s.cfg.ModelID).Msg("engine loaded")
	return nil
}

// Loaded reports whether the engine behind this session finished loading.
func (s *Session) Loaded() bool { return s.loaded }

// ModelID returns the registry id the session was created for.
func (s *Session) ModelID() string { return s.cfg.ModelID }

// History returns a copy of the persisted history.
func (s *Session) History() []types.Turn {
	out := make([]types.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// TurnCount reports the number of persisted turns including the system turn.
func (s *Session) TurnCount() int { return len(s.history) }

// Reset truncates history to the system turn only.
func (s *Session) Reset() {
	if len(s.history) > 1 {
		s.history = s.history[:1]
	}
}

// Truncate keeps the first n turns and drops the rest. Negative n keeps
// none. The last-prompt debug string is invalidated.
func (s *Session) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if len(s.history) > n {
		s.history = s.history[:n]
	}
	s.lastPrompt = ""
}

// SetSystemPrompt replaces the system turn's content, creating the turn if
// absent, re-applying the active dialect's system wrapping.
func (s *Session) SetSystemPrompt(prompt string) {
	s.systemPrompt = prompt
	text := systemTurnText(prompt, s.cfg.Reasoning)
	if len(s.history) > 0 && s.history[0].Role == types.RoleSystem {
		s.history[0].Text = text
		return
	}
	s.history = append([]types.Turn{{Role: types.RoleSystem, Text: text}}, s.history...)
}

// SystemPrompt returns the unwrapped system prompt.
func (s *Session) SystemPrompt() string { return s.systemPrompt }

// SetMaxNewTokens updates the per-reply token budget.
func (s *Session) SetMaxNewTokens(n int) {
	if n > 0 {
		s.maxNewTokens = n
	}
}

// EnableAudioOutput toggles waveform synthesis after completed turns.
func (s *Session) EnableAudioOutput(enable bool) { s.audioOutput = enable }

// SetWaveformCallback registers the audio consumer with the engine. The
// wrapper honors the audio flag and the current run's stop flag so a
// caller-initiated stop also cancels synthesis.
func (s *Session) SetWaveformCallback(cb WaveformFunc) {
	if s.engine == nil || cb == nil {
		s.log.Error().Msg("no engine for waveform callback")
		return
	}
	s.engine.SetWaveformCallback(func(samples []float32, lastChunk bool) bool {
		if !s.audioOutput || s.run.stopRequested {
			return true
		}
		return cb(samples, lastChunk)
	})
}

// DebugInfo returns the last rendered prompt and last raw response.
func (s *Session) DebugInfo() string {
	return "last_prompt:\n" + s.lastPrompt + "\nlast_response:\n" + s.lastResponse
}

// Close releases the engine.
func (s *Session) Close() error {
	s.loaded = false
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}
