package session

import (
	"context"
	"strings"

	"sessiond/internal/utf8stream"
	"sessiond/pkg/types"
)

// generationRun is the transient state of one generation call.
type generationRun struct {
	stopRequested bool
	textEnd       bool
	tokens        int
	response      strings.Builder
}

// Send submits one user message against the persisted history and streams
// the reply through onProgress. The finalized assistant turn is appended to
// history on sentinel detection. Before the engine is loaded the call is a
// no-op reporting nil stats.
func (s *Session) Send(ctx context.Context, text string, onProgress ProgressFunc) (*types.ContextStats, error) {
	if !s.loaded {
		return nil, nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, busyError{}
	}
	defer s.inFlight.Store(false)

	if !s.cfg.KeepHistory {
		s.Reset()
	}
	s.history = append(s.history, types.Turn{
		Role: types.RoleUser,
		Text: userTurnText(text, false, s.cfg.Reasoning),
	})
	s.log.Debug().Int("turns", len(s.history)).Int("max_new_tokens", s.maxNewTokens).Msg("generation start")
	return s.respond(ctx, s.history, true, onProgress)
}

// SendWithHistory runs the identical state machine against a private copy
// of a caller-supplied complete history. The session's persisted history is
// never mutated; used for stateless one-shot multi-turn calls.
func (s *Session) SendWithHistory(ctx context.Context, fullHistory []types.Turn, onProgress ProgressFunc) (*types.ContextStats, error) {
	if !s.loaded {
		return nil, nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, busyError{}
	}
	defer s.inFlight.Store(false)

	temp := make([]types.Turn, len(fullHistory))
	copy(temp, fullHistory)
	s.log.Debug().Int("turns", len(temp)).Msg("one-shot generation start")
	return s.respond(ctx, temp, false, onProgress)
}

// respond drives one full generation: stream the first engine pass through
// the UTF-8 decoder, classify decoded characters against the stop sentinel,
// then keep asking for single increments until stop, end of generation, or
// the token budget.
func (s *Session) respond(ctx context.Context, history []types.Turn, persist bool, onProgress ProgressFunc) (*types.ContextStats, error) {
	s.run = generationRun{}
	run := &s.run
	matcher := newSentinelMatcher(stopSentinel)

	handleChar := func(ch string) {
		if run.textEnd {
			return
		}
		released, matched := matcher.feed(ch)
		if released != "" {
			run.response.WriteString(released)
			if onProgress != nil && !run.stopRequested {
				if onProgress(released, false) {
					run.stopRequested = true
				}
			}
		}
		if matched {
			run.textEnd = true
			s.finalizeReply(run.response.String(), persist)
			if onProgress != nil {
				if onProgress("", true) {
					run.stopRequested = true
				}
			}
		}
	}

	decoder := utf8stream.NewDecoder(handleChar)
	s.lastPrompt = renderPromptDebug(history)

	if err := s.engine.Respond(ctx, history, decoder, stopSentinel, 1); err != nil {
		return nil, err
	}
	run.tokens++
	for !run.stopRequested && !run.textEnd && run.tokens < s.maxNewTokens {
		if ctx.Err() != nil {
			run.stopRequested = true
			break
		}
		if err := s.engine.Generate(ctx, 1); err != nil {
			return nil, err
		}
		run.tokens++
	}
	if !run.textEnd {
		// Truncated run: keep withheld sentinel-prefix bytes as content so
		// the accumulator matches what the engine produced.
		run.response.WriteString(matcher.flush())
		s.lastResponse = run.response.String()
	}
	if !run.stopRequested && s.audioOutput {
		if err := s.engine.GenerateWaveform(); err != nil {
			s.log.Warn().Err(err).Msg("waveform synthesis failed")
		}
	}
	return s.engine.Context(), nil
}

// finalizeReply post-processes the accumulated raw response per the active
// dialect and, when persisting, appends the assistant turn to history. In
// reasoning mode the stray think-start marker left in the just-appended
// user turn is removed.
func (s *Session) finalizeReply(raw string, persist bool) {
	s.lastResponse = raw
	result := raw
	if s.cfg.Reasoning {
		if persist && len(s.history) > 0 {
			last := &s.history[len(s.history)-1]
			last.Text = strings.Replace(last.Text, thinkStart, "", 1)
		}
		result = finalizeReasoningReply(result)
	}
	result = trimLeadingWhitespace(deleteThinkPart(result))
	s.log.Debug().Int("len", len(result)).Msg("generation complete")
	if persist {
		s.history = append(s.history, types.Turn{Role: types.RoleAssistant, Text: result})
	}
}

// renderPromptDebug renders a role-tagged view of the prompt for DebugInfo.
func renderPromptDebug(history []types.Turn) string {
	var b strings.Builder
	for _, t := range history {
		b.WriteString("[" + string(t.Role) + "]: " + t.Text + "\n")
	}
	return b.String()
}
