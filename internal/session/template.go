package session

import (
	"strings"
	"unicode"
)

func trimLeadingWhitespace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

// userTurnText wraps user content per the active dialect. A live turn (the
// one about to be generated against) carries the think-start suffix that
// invites an internal reasoning segment; a turn replayed from stored
// history omits it.
func userTurnText(text string, forHistory, reasoning bool) string {
	if !reasoning {
		return text
	}
	if forHistory {
		return userStart + text + assistantStart
	}
	return userStart + text + assistantStart + thinkStart
}

// systemTurnText renders the system prompt per the active dialect.
func systemTurnText(prompt string, reasoning bool) string {
	if reasoning {
		return sentenceStart + prompt
	}
	return prompt
}

// deleteThinkPart removes the first think marker pair and everything
// between, inclusive. Absent markers leave the text unchanged; later pairs
// are left intact.
func deleteThinkPart(text string) string {
	start := strings.Index(text, thinkStart)
	if start < 0 {
		return text
	}
	end := strings.Index(text[start:], thinkEnd)
	if end < 0 {
		return text
	}
	return text[:start] + text[start+end+len(thinkEnd):]
}

// finalizeReasoningReply discards everything up to and including the
// think-end marker, trims leading whitespace, and closes the sentence.
func finalizeReasoningReply(text string) string {
	if i := strings.Index(text, thinkEnd); i >= 0 {
		text = text[i+len(thinkEnd):]
	}
	return trimLeadingWhitespace(text) + sentenceEnd
}
