package icap

import "testing"

func TestDecodeChunkedBasic(t *testing.T) {
	buf := []byte("5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")
	data, consumed, ok, err := decodeChunked(buf, 0, len(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if string(data) != "hello world" {
		t.Errorf("data = %q", data)
	}
	// consumed should stop right after the "0\r\n" line, before the
	// trailer-terminating blank line.
	want := len("5\r\nhello\r\n6\r\n world\r\n0\r\n")
	if consumed != want {
		t.Errorf("consumed = %d, want %d", consumed, want)
	}
}

func TestDecodeChunkedNeedMoreData(t *testing.T) {
	buf := []byte("5\r\nhel")
	_, _, ok, err := decodeChunked(buf, 0, len(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false (need more data)")
	}
}

func TestDecodeChunkedMissingCRLFAfterData(t *testing.T) {
	buf := []byte("5\r\nhelloXX0\r\n\r\n")
	_, _, _, err := decodeChunked(buf, 0, len(buf))
	assertKind(t, err, KindInvalidChunkEncoding)
}

func TestDecodeChunkedInvalidSize(t *testing.T) {
	buf := []byte("xyz\r\ndata\r\n0\r\n\r\n")
	_, _, _, err := decodeChunked(buf, 0, len(buf))
	assertKind(t, err, KindInvalidChunkSize)
}

func TestDecodeChunkedEmptyBody(t *testing.T) {
	buf := []byte("0\r\n\r\n")
	data, _, ok, err := decodeChunked(buf, 0, len(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(data) != 0 {
		t.Errorf("expected empty data, got %q", data)
	}
}

func TestDecodeChunkedWithinBoundedRange(t *testing.T) {
	// Chunked body followed by bytes belonging to a later section.
	full := []byte("5\r\nhello\r\n0\r\n\r\nTRAILING")
	rangeEnd := len("5\r\nhello\r\n0\r\n\r\n")
	data, _, ok, err := decodeChunked(full, 0, rangeEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || string(data) != "hello" {
		t.Fatalf("data = %q, ok = %v", data, ok)
	}
}
