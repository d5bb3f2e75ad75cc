package session

import (
	"strings"

	"sessiond/pkg/types"
)

// renderPrompt flattens a role-tagged history into a single prompt string.
// Reasoning-dialect turns already carry their delimiter tokens and are
// concatenated as-is; plain turns get a minimal role-tagged layout with a
// trailing assistant cue.
func renderPrompt(history []types.Turn) string {
	templated := false
	for _, t := range history {
		if strings.Contains(t.Text, userStart) || strings.HasPrefix(t.Text, sentenceStart) {
			templated = true
			break
		}
	}
	var b strings.Builder
	if templated {
		for _, t := range history {
			b.WriteString(t.Text)
		}
		return b.String()
	}
	for _, t := range history {
		switch t.Role {
		case types.RoleSystem:
			b.WriteString(t.Text + "\n\n")
		case types.RoleUser:
			b.WriteString("User: " + t.Text + "\n")
		case types.RoleAssistant:
			b.WriteString("Assistant: " + t.Text + "\n")
		}
	}
	b.WriteString("Assistant:")
	return b.String()
}
