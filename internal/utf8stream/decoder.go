// Package utf8stream reassembles complete UTF-8 characters from an
// arbitrarily fragmented byte stream. Engine output arrives in chunks that
// may split a multi-byte character at any boundary; the decoder buffers the
// incomplete tail and emits only whole characters. Malformed bytes are
// dropped one at a time, never failing the stream.
package utf8stream

// Decoder accumulates raw bytes and emits complete UTF-8 characters through
// a callback. It holds no synchronization; callers must not share one
// Decoder across goroutines.
type Decoder struct {
	onChar func(string)
	buf    []byte
}

// NewDecoder constructs a Decoder that invokes onChar once per complete
// character. A nil callback is allowed; decoded characters are then dropped.
func NewDecoder(onChar func(string)) *Decoder {
	return &Decoder{onChar: onChar}
}

// charLen classifies a lead byte by its high bits and returns the total
// character length, or -1 for a byte that cannot start a character.
func charLen(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1 // ASCII
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return -1
}

// isContinuation reports whether b carries the 10xxxxxx continuation pattern.
func isContinuation(b byte) bool { return b&0xC0 == 0x80 }

// Feed appends p to the internal buffer and emits every complete character
// now available. An incomplete trailing character is retained for the next
// Feed. Unrecognized lead bytes and miscontinued sequences are skipped one
// byte at a time.
func (d *Decoder) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	d.buf = append(d.buf, p...)

	pos := 0
	for pos < len(d.buf) {
		n := charLen(d.buf[pos])
		if n < 0 {
			// Invalid lead byte: drop it and keep scanning.
			pos++
			continue
		}
		if pos+n > len(d.buf) {
			// Incomplete character, wait for more data.
			break
		}
		valid := true
		for i := 1; i < n; i++ {
			if !isContinuation(d.buf[pos+i]) {
				valid = false
				break
			}
		}
		if !valid {
			// Bad continuation: skip only the lead byte so a valid
			// character starting inside the run is still recovered.
			pos++
			continue
		}
		if d.onChar != nil {
			d.onChar(string(d.buf[pos : pos+n]))
		}
		pos += n
	}
	if pos > 0 {
		d.buf = d.buf[:copy(d.buf, d.buf[pos:])]
	}
}

// Write implements io.Writer so the decoder can serve directly as the
// engine's byte sink. It always consumes the full slice.
func (d *Decoder) Write(p []byte) (int, error) {
	d.Feed(p)
	return len(p), nil
}

// Pending returns the number of buffered bytes belonging to an incomplete
// character.
func (d *Decoder) Pending() int { return len(d.buf) }

// Reset drops any buffered partial character.
func (d *Decoder) Reset() { d.buf = d.buf[:0] }
