package session

import "strings"

// sentinelMatcher splits a stream of decoded characters into ordinary
// content and the stop sentinel. Because the sentinel spans several
// characters while the decoder emits one at a time, characters matching a
// sentinel prefix are withheld until the match either completes or fails;
// a failed prefix is released as ordinary content.
type sentinelMatcher struct {
	sentinel string
	pending  []byte
}

func newSentinelMatcher(sentinel string) *sentinelMatcher {
	return &sentinelMatcher{sentinel: sentinel}
}

// feed consumes one decoded character and returns the content released for
// emission now, plus whether the full sentinel just completed. On a
// completed match the withheld sentinel bytes are discarded.
func (m *sentinelMatcher) feed(ch string) (string, bool) {
	m.pending = append(m.pending, ch...)
	var released strings.Builder
	for len(m.pending) > 0 {
		p := string(m.pending)
		if p == m.sentinel {
			m.pending = m.pending[:0]
			return released.String(), true
		}
		if strings.HasPrefix(m.sentinel, p) {
			break
		}
		// Mismatch: release the first byte and retry the remainder, so a
		// sentinel starting mid-buffer is still caught.
		released.WriteByte(m.pending[0])
		m.pending = m.pending[:copy(m.pending, m.pending[1:])]
	}
	return released.String(), false
}

// flush releases any withheld prefix. Called when generation ends without a
// sentinel so no content is silently dropped.
func (m *sentinelMatcher) flush() string {
	out := string(m.pending)
	m.pending = m.pending[:0]
	return out
}
