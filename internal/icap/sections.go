package icap

func isBodyKind(k SectionKind) bool {
	return k == ReqBody || k == ResBody || k == OptBody
}

// extractSections walks the encapsulated table against buf, where bodyStart
// is the absolute index of offset-zero (the byte following the ICAP header
// terminator). It returns the decoded/copied payload per section kind, and
// the absolute index one past the last byte it actually consumed -- used to trim
// the receive buffer once the message completes. ok=false means at least one
// section needs more bytes than are currently available.
func extractSections(buf []byte, bodyStart int, table []sectionEntry) (sections map[SectionKind][]byte, consumedEnd int, ok bool, err *Error) {
	sections = make(map[SectionKind][]byte, len(table))
	consumedEnd = bodyStart

	for i, entry := range table {
		absStart := bodyStart + entry.offset
		terminal := i == len(table)-1

		if entry.kind == NullBody {
			// null-body marks "no encapsulated body"; it carries no bytes
			// of its own and must not swallow whatever follows it (e.g. a
			// pipelined next message already sitting in the buffer).
			if len(buf) < absStart {
				return nil, 0, false, nil
			}
			sections[entry.kind] = nil
			continue
		}

		var absEnd int
		if terminal {
			absEnd = len(buf)
		} else {
			absEnd = bodyStart + table[i+1].offset
		}

		if len(buf) < absStart {
			return nil, 0, false, nil
		}
		if !terminal && len(buf) < absEnd {
			return nil, 0, false, nil
		}

		if isBodyKind(entry.kind) {
			data, consumed, decOK, decErr := decodeChunked(buf, absStart, absEnd)
			if decErr != nil {
				return nil, 0, false, decErr
			}
			if !decOK {
				return nil, 0, false, nil
			}
			sections[entry.kind] = data
			if consumed > consumedEnd {
				consumedEnd = consumed
			}
			continue
		}

		end := absEnd
		if end > len(buf) {
			end = len(buf)
		}
		raw := make([]byte, end-absStart)
		copy(raw, buf[absStart:end])
		sections[entry.kind] = raw
		if end > consumedEnd {
			consumedEnd = end
		}
	}

	return sections, consumedEnd, true, nil
}

// classifyEncapsulation derives the EncapsulationVariant from the set of
// section kinds observed, in precedence order: null-body, then opt-body,
// then request+response pairing, then request-only, then response-only,
// then null-body as the default when nothing was declared at all.
func classifyEncapsulation(sections map[SectionKind][]byte) EncapsulationVariant {
	_, hasNull := sections[NullBody]
	optBody, hasOpt := sections[OptBody]
	reqHdr, hasReqHdr := sections[ReqHdr]
	reqBody, hasReqBody := sections[ReqBody]
	resHdr, hasResHdr := sections[ResHdr]
	resBody, hasResBody := sections[ResBody]

	hasReq := hasReqHdr || hasReqBody
	hasRes := hasResHdr || hasResBody

	switch {
	case hasNull:
		return EncapsulationVariant{Kind: EncNullBody}
	case hasOpt:
		return EncapsulationVariant{Kind: EncOptions, OptBody: optBody}
	case hasReq && hasRes:
		return EncapsulationVariant{
			Kind:      EncRequestResponse,
			ReqHeader: reqHdr,
			ReqBody:   reqBody,
			ResHeader: resHdr,
			ResBody:   resBody,
		}
	case hasReq:
		return EncapsulationVariant{Kind: EncRequestOnly, ReqHeader: reqHdr, ReqBody: reqBody}
	case hasRes:
		return EncapsulationVariant{Kind: EncResponseOnly, ResHeader: resHdr, ResBody: resBody}
	default:
		return EncapsulationVariant{Kind: EncNullBody}
	}
}
