package icap

import (
	"bytes"
	"strings"
)

// Hard size limits on a single message's header block.
const (
	maxHeaders         = 100
	maxHeaderNameLen   = 100
	maxHeaderValueLen  = 4096
	initialBufCapacity = 4096
	// maxBufferBytes bounds the receive buffer so a malicious or broken peer
	// can't force unbounded allocation before any size cap on headers kicks
	// in (the Encapsulated table can legally declare offsets far beyond the
	// header block).
	maxBufferBytes = 1 << 20
)

// HeaderMap is an ASCII-case-insensitive header name -> value mapping.
// Names are stored canonicalized to lowercase; lookups fold the queried
// name the same way.
type HeaderMap struct {
	values map[string]string
}

func newHeaderMap() *HeaderMap {
	return &HeaderMap{values: make(map[string]string)}
}

// Get returns the header value for name (case-insensitive) and whether it
// was present.
func (h *HeaderMap) Get(name string) (string, bool) {
	v, ok := h.values[canonicalHeaderName(name)]
	return v, ok
}

// Len reports the number of distinct header names stored.
func (h *HeaderMap) Len() int {
	return len(h.values)
}

func (h *HeaderMap) set(name, value string) {
	h.values[canonicalHeaderName(name)] = value
}

func canonicalHeaderName(name string) string {
	return strings.ToLower(name)
}

// parseHeaderLines reads header lines from buf[pos:] until a terminating
// empty line, populating hm. It reports whether an Encapsulated header was
// observed. ok=false means more bytes are needed; the caller must retry from
// the same pos (no line is consumed until it is fully parsed and folded in).
func parseHeaderLines(buf []byte, pos int, hm *HeaderMap) (newPos int, sawEncapsulated bool, ok bool, err *Error) {
	for {
		line, next, lineOK, lerr := readLine(buf, pos)
		if lerr != nil {
			return 0, false, false, lerr
		}
		if !lineOK {
			return pos, sawEncapsulated, false, nil
		}
		pos = next

		if len(line) == 0 {
			return pos, sawEncapsulated, true, nil
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return 0, false, false, newErr(KindInvalidFormat, "header line missing colon")
		}
		name := line[:colon]
		value := bytes.TrimSpace(line[colon+1:])

		if len(name) > maxHeaderNameLen {
			return 0, false, false, newErr(KindMessageTooLarge, "header name exceeds maximum length")
		}
		if len(value) > maxHeaderValueLen {
			return 0, false, false, newErr(KindMessageTooLarge, "header value exceeds maximum length")
		}

		nameStr := string(name)
		if strings.EqualFold(nameStr, "encapsulated") {
			sawEncapsulated = true
		}

		hm.set(nameStr, string(value))
		if hm.Len() > maxHeaders {
			return 0, false, false, newErr(KindMessageTooLarge, "too many headers")
		}
	}
}
