package comm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// FrameBuffer accumulates received bytes and extracts JSON frames.
type FrameBuffer struct {
	buf       strings.Builder
	pending   []byte
	decodeErr bool
}

// Append adds a received chunk.
// Invalid UTF-8 is salvaged by keeping only ASCII bytes, and the
// decode error flag is raised. An incomplete multi-byte sequence at the
// end of chunk is held until the next Append.
func (b *FrameBuffer) Append(chunk []byte) {
	if len(b.pending) > 0 {
		chunk = append(b.pending, chunk...)
		b.pending = nil
	}
	if n := incompleteTail(chunk); n > 0 {
		b.pending = append([]byte(nil), chunk[len(chunk)-n:]...)
		chunk = chunk[:len(chunk)-n]
	}
	if utf8.Valid(chunk) {
		b.buf.Write(chunk)
		return
	}
	for _, c := range chunk {
		if c < 127 {
			b.buf.WriteByte(c)
		} else {
			b.decodeErr = true
		}
	}
}

// TryExtract returns the next frame if there's one.
// The candidate starts at the first '{' and ends at the last '}'. When it
// parses, all text through the closing '}' is consumed, including noise
// before the '{'. Otherwise the buffer is left as-is for a later retry.
func (b *FrameBuffer) TryExtract() (string, bool) {
	s := b.buf.String()
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return "", false
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	rest := s[end+1:]
	b.buf.Reset()
	b.buf.WriteString(rest)
	return candidate, true
}

// DecodeErr reports whether bytes were dropped since the last call,
// and clears the flag.
func (b *FrameBuffer) DecodeErr() bool {
	err := b.decodeErr
	b.decodeErr = false
	return err
}

// Len returns the number of buffered bytes not consumed yet.
func (b *FrameBuffer) Len() int {
	return b.buf.Len() + len(b.pending)
}

// String returns the buffered text not consumed yet.
func (b *FrameBuffer) String() string {
	return b.buf.String()
}

// Reset discards everything.
func (b *FrameBuffer) Reset() {
	b.buf.Reset()
	b.pending = nil
	b.decodeErr = false
}

// incompleteTail returns the length of a truncated but otherwise valid
// multi-byte sequence at the end of p.
func incompleteTail(p []byte) int {
	for n := 1; n < utf8.UTFMax && n <= len(p); n++ {
		c := p[len(p)-n]
		if c < utf8.RuneSelf {
			return 0
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(p[len(p)-n:]) {
				return 0
			}
			return n
		}
	}
	return 0
}
