package icap

import (
	"bytes"
	"strconv"
)

// decodeChunked decodes HTTP/1.1 chunked transfer encoding over buf[start:end].
// It is a pure function: it never mutates buf and never sees bytes outside
// the given range. On success it returns the concatenated chunk data and the
// index (absolute, within buf) of the first byte not consumed by the chunked
// body itself -- the trailer section, if any, is intentionally left
// unconsumed and undecoded; trailers are never surfaced. ok is false
// when the range ends before a terminating zero-size chunk is seen, meaning
// the caller should wait for more bytes.
func decodeChunked(buf []byte, start, end int) (data []byte, consumedEnd int, ok bool, err *Error) {
	pos := start
	var out []byte

	for {
		sizeLineEnd, lineLen, found := findLineEnd(buf, pos, end)
		if !found {
			return nil, 0, false, nil
		}

		sizeTok := bytes.TrimSpace(buf[pos:sizeLineEnd])
		if semi := bytes.IndexByte(sizeTok, ';'); semi >= 0 {
			sizeTok = bytes.TrimSpace(sizeTok[:semi])
		}
		if len(sizeTok) == 0 {
			return nil, 0, false, newErr(KindInvalidChunkSize, "empty chunk size")
		}
		size, convErr := strconv.ParseUint(string(sizeTok), 16, 32)
		if convErr != nil {
			return nil, 0, false, newErr(KindInvalidChunkSize, "non-hexadecimal chunk size: "+string(sizeTok))
		}
		pos = sizeLineEnd + lineLen

		if size == 0 {
			return out, pos, true, nil
		}

		dataEnd := pos + int(size)
		if dataEnd+2 > end {
			// chunk data plus its trailing CRLF doesn't fit in what's
			// available yet.
			return nil, 0, false, nil
		}

		out = append(out, buf[pos:dataEnd]...)
		pos = dataEnd

		if buf[pos] != '\r' || buf[pos+1] != '\n' {
			return nil, 0, false, newErr(KindInvalidChunkEncoding, "missing CRLF after chunk data")
		}
		pos += 2
	}
}

// findLineEnd locates the next CRLF- or LF-terminated line within
// buf[from:limit], returning the index where the line's payload ends and the
// length of its terminator (1 for bare LF, 2 for CRLF).
func findLineEnd(buf []byte, from, limit int) (lineEnd int, termLen int, found bool) {
	for i := from; i < limit; i++ {
		if buf[i] == '\n' {
			if i > from && buf[i-1] == '\r' {
				return i - 1, 2, true
			}
			return i, 1, true
		}
	}
	return 0, 0, false
}
