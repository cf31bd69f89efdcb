package icap

import (
	"sort"
	"strconv"
	"strings"
)

// sectionEntry is one (kind, offset) pair from a parsed Encapsulated header.
type sectionEntry struct {
	kind   SectionKind
	offset int
}

var encapsulatedTokens = map[string]SectionKind{
	"null-body": NullBody,
	"req-hdr":   ReqHdr,
	"req-body":  ReqBody,
	"res-hdr":   ResHdr,
	"res-body":  ResBody,
	"opt-body":  OptBody,
}

// parseEncapsulatedHeader parses the value of an Encapsulated header into an
// ordered, offset-sorted table. RFC 3507 requires the entries already
// ordered; declared out of order is tolerated and re-sorted.
func parseEncapsulatedHeader(value string) ([]sectionEntry, *Error) {
	items := strings.Split(value, ",")
	entries := make([]sectionEntry, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		eq := strings.IndexByte(item, '=')
		if eq < 0 {
			return nil, newErr(KindInvalidEncapsulated, "encapsulated entry missing '=': "+item)
		}
		name := strings.ToLower(strings.TrimSpace(item[:eq]))
		offsetTok := strings.TrimSpace(item[eq+1:])

		kind, known := encapsulatedTokens[name]
		if !known {
			return nil, newErr(KindInvalidEncapsulated, "unknown encapsulated section name: "+name)
		}
		offset, convErr := strconv.Atoi(offsetTok)
		if convErr != nil || offset < 0 {
			return nil, newErr(KindInvalidEncapsulated, "encapsulated offset must be a non-negative integer: "+offsetTok)
		}
		entries = append(entries, sectionEntry{kind: kind, offset: offset})
	}

	if len(entries) == 0 {
		return nil, newErr(KindInvalidEncapsulated, "encapsulated header had no valid entries")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].offset < entries[j].offset
	})
	return entries, nil
}
