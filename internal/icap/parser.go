// Package icap implements an incremental, single-owner, single-threaded
// decoder for ICAP (RFC 3507) request and response messages, including their
// encapsulated HTTP header and chunk-transfer-encoded body sections. The
// parser consumes opaque byte slices pushed in by a caller; it never reads a
// socket itself.
package icap

// State names the state-machine driver's current position in a message.
type State int

const (
	StateStartLine State = iota
	StateHeaders
	StateEncapsulatedHeader
	StateBody
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateStartLine:
		return "StartLine"
	case StateHeaders:
		return "Headers"
	case StateEncapsulatedHeader:
		return "EncapsulatedHeader"
	case StateBody:
		return "Body"
	case StateComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Parser is a single-owner, single-threaded, push-driven ICAP message
// decoder. One instance parses one logical connection's message stream
// sequentially: feed it bytes with Push; it returns a fully-formed Message
// once enough bytes have arrived, and is then ready for the next message on
// the same connection. A Parser that returns an error is poisoned and must
// be discarded.
type Parser struct {
	state State
	buf   []byte
	pos   int

	poisoned bool
	fatal    *Error

	method  Method
	uri     string
	version Version
	status  uint16
	reason  string
	headers *HeaderMap

	sawEncapsulated bool
	table           []sectionEntry
	bodyStart       int
	sections        map[SectionKind][]byte
	consumedEnd     int
}

// New returns a fresh Parser in state StartLine.
func New() *Parser {
	p := &Parser{}
	p.resetAccumulators()
	p.buf = make([]byte, 0, initialBufCapacity)
	return p
}

// State reports the parser's current position in the state machine, for
// observability in tests.
func (p *Parser) State() State {
	return p.state
}

func (p *Parser) resetAccumulators() {
	p.state = StateStartLine
	p.method = MethodUnknown
	p.uri = ""
	p.version = VersionUnknown
	p.status = 0
	p.reason = ""
	p.headers = newHeaderMap()
	p.sawEncapsulated = false
	p.table = nil
	p.bodyStart = 0
	p.sections = nil
	p.consumedEnd = 0
}

// Push appends bytes to the internal buffer and advances the state machine
// as far as the available data allows. It returns (nil, nil) when more
// bytes are needed, (msg, nil) exactly once per completed message, or
// (nil, err) on any protocol violation, after which the Parser is poisoned
// and must be discarded. Calling Push with the concatenation of two byte
// slices in two calls yields the same result as one call with both
// concatenated.
func (p *Parser) Push(data []byte) (*Message, error) {
	if p.poisoned {
		return nil, p.fatal
	}

	if len(data) > 0 {
		p.buf = append(p.buf, data...)
	}
	if len(p.buf) > maxBufferBytes {
		return nil, p.poison(newErr(KindMessageTooLarge, "receive buffer exceeds maximum size"))
	}

	for {
		switch p.state {
		case StateStartLine:
			done, err := p.stepStartLine()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				return nil, nil
			}

		case StateHeaders:
			done, err := p.stepHeaders()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				return nil, nil
			}

		case StateEncapsulatedHeader:
			if err := p.stepEncapsulatedHeader(); err != nil {
				return nil, p.poison(err)
			}

		case StateBody:
			done, err := p.stepBody()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				return nil, nil
			}

		case StateComplete:
			msg, err := p.buildMessage()
			if err != nil {
				return nil, p.poison(err)
			}
			p.finishMessage()
			return msg, nil
		}
	}
}

func (p *Parser) poison(err *Error) *Error {
	p.poisoned = true
	p.fatal = err
	return err
}

func (p *Parser) stepStartLine() (done bool, err *Error) {
	for {
		raw, newPos, ok, lerr := readLine(p.buf, p.pos)
		if lerr != nil {
			return false, lerr
		}
		if !ok {
			return false, nil
		}
		if len(raw) == 0 {
			// A blank line ahead of a start line is the CRLF closing the
			// previous message's chunked body (its empty trailer section),
			// which the chunk decoder leaves unconsumed. Skip it so
			// pipelined messages on one connection keep parsing.
			p.pos = newPos
			continue
		}

		sl, serr := parseStartLine(raw)
		if serr != nil {
			return false, serr
		}

		p.pos = newPos
		p.version = sl.version
		if sl.isResponse {
			p.status = sl.status
			p.reason = sl.reason
		} else {
			p.method = sl.method
			p.uri = sl.uri
		}
		p.state = StateHeaders
		return true, nil
	}
}

func (p *Parser) stepHeaders() (done bool, err *Error) {
	newPos, sawEnc, ok, herr := parseHeaderLines(p.buf, p.pos, p.headers)
	if herr != nil {
		return false, herr
	}
	if !ok {
		return false, nil
	}
	p.pos = newPos
	p.sawEncapsulated = sawEnc

	if p.method != MethodUnknown && p.method != Options && !sawEnc {
		return false, newErr(KindMissingEncapsulated, "ReqMod/RespMod requests must declare an Encapsulated header")
	}

	p.state = StateEncapsulatedHeader
	return true, nil
}

func (p *Parser) stepEncapsulatedHeader() *Error {
	if p.sawEncapsulated {
		value, _ := p.headers.Get("encapsulated")
		table, terr := parseEncapsulatedHeader(value)
		if terr != nil {
			return terr
		}
		p.table = table
	} else {
		p.table = nil
	}
	p.bodyStart = p.pos
	p.state = StateBody
	return nil
}

func (p *Parser) stepBody() (done bool, err *Error) {
	if len(p.table) == 0 {
		p.sections = map[SectionKind][]byte{}
		p.consumedEnd = p.bodyStart
		p.state = StateComplete
		return true, nil
	}

	sections, consumedEnd, ok, serr := extractSections(p.buf, p.bodyStart, p.table)
	if serr != nil {
		return false, serr
	}
	if !ok {
		return false, nil
	}
	p.sections = sections
	p.consumedEnd = consumedEnd
	p.state = StateComplete
	return true, nil
}

func (p *Parser) buildMessage() (*Message, *Error) {
	isRequest := p.method != MethodUnknown
	isResponse := p.status != 0

	if isRequest == isResponse {
		return nil, newErr(KindInvalidMessage, "message must be exactly one of request or response")
	}

	msg := &Message{
		IsRequest:    isRequest,
		Version:      p.version,
		Headers:      p.headers,
		Encapsulated: classifyEncapsulation(p.sections),
	}
	if isRequest {
		msg.Method = p.method
		msg.URI = p.uri
	} else {
		msg.Status = p.status
		msg.Reason = p.reason
	}
	return msg, nil
}

// finishMessage clears every accumulator and trims the buffer to the last
// consumed byte, retaining any already-buffered prefix of the next message.
func (p *Parser) finishMessage() {
	rest := p.buf[p.consumedEnd:]
	capacity := initialBufCapacity
	if len(rest) > capacity {
		capacity = len(rest)
	}
	trimmed := make([]byte, len(rest), capacity)
	copy(trimmed, rest)
	p.buf = trimmed
	p.pos = 0
	p.resetAccumulators()
}
