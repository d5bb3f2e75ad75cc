package session

import "encoding/json"

// baseEngineConfig builds the engine options derived from the session's own
// configuration. Overlay keys are merged on top of these.
func (s *Session) baseEngineConfig() map[string]any {
	cfg := map[string]any{
		"model":          s.cfg.ModelPath,
		"max_new_tokens": s.maxNewTokens,
		"system_prompt":  s.systemPrompt,
	}
	if s.cfg.Reasoning {
		// The session-level markers are the template; the engine must not
		// re-wrap turns itself.
		cfg["use_template"] = false
		cfg["precision"] = "high"
	}
	return cfg
}

// applyConfig serializes the current configuration and hands it to the
// engine.
func (s *Session) applyConfig() error {
	b, err := json.Marshal(s.current)
	if err != nil {
		return err
	}
	if err := s.engine.SetConfig(string(b)); err != nil {
		return err
	}
	s.log.Debug().RawJSON("config", b).Msg("engine config applied")
	return nil
}

// UpdateConfig merges a JSON object of engine-specific keys into the
// session's overlay. Before Load the update is staged and applied at load
// time; afterwards the merged configuration is re-sent to the engine.
// Malformed input is rejected and prior configuration retained.
func (s *Session) UpdateConfig(configJSON string) error {
	patch := map[string]any{}
	if err := json.Unmarshal([]byte(configJSON), &patch); err != nil {
		s.log.Error().Err(err).Msg("rejected malformed config update")
		return malformedConfigError{cause: err}
	}
	if s.current == nil {
		for k, v := range patch {
			s.pending[k] = v
		}
		s.log.Debug().Int("keys", len(patch)).Msg("engine not loaded yet, config staged")
		return nil
	}
	for k, v := range patch {
		s.current[k] = v
	}
	return s.applyConfig()
}

// SetAssistantPrompt updates the engine's assistant prompt template through
// the overlay.
func (s *Session) SetAssistantPrompt(tmpl string) error {
	if s.current == nil {
		s.pending["assistant_prompt_template"] = tmpl
		return nil
	}
	s.current["assistant_prompt_template"] = tmpl
	return s.applyConfig()
}

// OverlayValue exposes one applied configuration key (test hook).
func (s *Session) OverlayValue(key string) (any, bool) {
	if s.current != nil {
		v, ok := s.current[key]
		return v, ok
	}
	v, ok := s.pending[key]
	return v, ok
}
