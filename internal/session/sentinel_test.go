package session

import "testing"

// feedString pushes text one character at a time, the way the decoder
// delivers it, collecting released content.
func feedString(m *sentinelMatcher, text string) (string, bool) {
	var out string
	matched := false
	for _, r := range text {
		rel, ok := m.feed(string(r))
		out += rel
		if ok {
			matched = true
		}
	}
	return out, matched
}

func TestSentinelDetectedAcrossCharacters(t *testing.T) {
	m := newSentinelMatcher(stopSentinel)
	out, matched := feedString(m, "Hello<eop>")
	if !matched {
		t.Fatalf("sentinel not detected")
	}
	if out != "Hello" {
		t.Fatalf("expected Hello got %q", out)
	}
}

func TestSentinelFalsePrefixReleased(t *testing.T) {
	m := newSentinelMatcher(stopSentinel)
	out, matched := feedString(m, "a<ex b")
	if matched {
		t.Fatalf("unexpected match")
	}
	if out+m.flush() != "a<ex b" {
		t.Fatalf("content lost: %q", out)
	}
}

func TestSentinelAfterFalseStart(t *testing.T) {
	m := newSentinelMatcher(stopSentinel)
	out, matched := feedString(m, "<<eop>")
	if !matched {
		t.Fatalf("sentinel not detected after false start")
	}
	if out != "<" {
		t.Fatalf("expected single < got %q", out)
	}
}

func TestSentinelPartialHeldThenFlushed(t *testing.T) {
	m := newSentinelMatcher(stopSentinel)
	out, matched := feedString(m, "x<eo")
	if matched {
		t.Fatalf("unexpected match")
	}
	if out != "x" {
		t.Fatalf("expected only x released got %q", out)
	}
	if got := m.flush(); got != "<eo" {
		t.Fatalf("expected flushed prefix <eo got %q", got)
	}
}

func TestSentinelMultiByteContent(t *testing.T) {
	m := newSentinelMatcher(stopSentinel)
	out, matched := feedString(m, "世界<eop>")
	if !matched || out != "世界" {
		t.Fatalf("expected 世界 with match, got %q matched=%v", out, matched)
	}
}
