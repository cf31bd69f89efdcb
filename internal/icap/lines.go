package icap

// maxLineLen bounds a single CRLF-terminated line read from the front of the
// buffer (start line or header line): MAX_HEADER_NAME_LEN +
// MAX_HEADER_VALUE_LEN plus a small delimiter allowance.
const maxLineLen = maxHeaderNameLen + maxHeaderValueLen + 104

// readLine extracts the next CRLF- or LF-terminated line from the front of
// buf[pos:]. A bare LF is accepted; a trailing CR before LF is stripped. It
// returns the line payload (without terminator), the new read position, and
// whether a full line was available. No terminator found and nothing over
// the length cap yet means "need more data" (ok=false, err=nil).
func readLine(buf []byte, pos int) (line []byte, newPos int, ok bool, err *Error) {
	c := newCursor(buf)
	c.advanceBy(pos)

	scanned := 0
	for {
		b, present := c.peek()
		if !present {
			break
		}
		if b == '\n' {
			end := c.position()
			lineStart := pos
			if end > lineStart && buf[end-1] == '\r' {
				end--
			}
			c.advance()
			return buf[lineStart:end], c.position(), true, nil
		}
		c.advance()
		scanned++
		if scanned > maxLineLen {
			return nil, 0, false, newErr(KindMessageTooLarge, "line exceeds maximum length")
		}
	}
	return nil, pos, false, nil
}
