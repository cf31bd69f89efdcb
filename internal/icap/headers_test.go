package icap

import "testing"

func TestParseHeaderLinesBasic(t *testing.T) {
	buf := []byte("Host: example.org\r\nConnection:   close  \r\n\r\n")
	hm := newHeaderMap()
	pos, sawEnc, ok, err := parseHeaderLines(buf, 0, hm)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if sawEnc {
		t.Error("did not expect Encapsulated to be seen")
	}
	if pos != len(buf) {
		t.Errorf("pos = %d, want %d", pos, len(buf))
	}
	if v, _ := hm.Get("host"); v != "example.org" {
		t.Errorf("host = %q", v)
	}
	if v, _ := hm.Get("connection"); v != "close" {
		t.Errorf("connection = %q, want trimmed value", v)
	}
}

func TestParseHeaderLinesDetectsEncapsulated(t *testing.T) {
	buf := []byte("Encapsulated: null-body=0\r\n\r\n")
	hm := newHeaderMap()
	_, sawEnc, ok, err := parseHeaderLines(buf, 0, hm)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !sawEnc {
		t.Error("expected Encapsulated to be seen")
	}
}

func TestParseHeaderLinesMissingColon(t *testing.T) {
	buf := []byte("NotAHeaderLine\r\n\r\n")
	hm := newHeaderMap()
	_, _, _, err := parseHeaderLines(buf, 0, hm)
	assertKind(t, err, KindInvalidFormat)
}

func TestParseHeaderLinesNeedMoreData(t *testing.T) {
	buf := []byte("Host: example.org\r\n")
	hm := newHeaderMap()
	_, _, ok, err := parseHeaderLines(buf, 0, hm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false, no terminating blank line yet")
	}
}
