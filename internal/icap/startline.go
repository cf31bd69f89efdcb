package icap

import (
	"strconv"
	"strings"
)

const icapPrefix = "ICAP/"

// startLine is the parsed, not-yet-classified first line of a message.
type startLine struct {
	isResponse bool

	method  Method
	uri     string
	version Version

	status uint16
	reason string
}

// parseStartLine classifies and parses a single start line, already split
// from its terminator. It rejects anything that doesn't split into exactly
// three space-separated tokens.
func parseStartLine(line []byte) (startLine, *Error) {
	parts := strings.Split(string(line), " ")
	if len(parts) != 3 {
		return startLine{}, newErr(KindInvalidFormat, "start line must have exactly three space-separated tokens")
	}
	tok0, tok1, tok2 := parts[0], parts[1], parts[2]

	if strings.HasPrefix(tok0, icapPrefix) {
		return parseResponseStartLine(tok0, tok1, tok2)
	}
	return parseRequestStartLine(tok0, tok1, tok2)
}

func parseResponseStartLine(versionTok, statusTok, reasonTok string) (startLine, *Error) {
	version, err := parseVersionToken(versionTok)
	if err != nil {
		return startLine{}, err
	}

	status, convErr := strconv.Atoi(statusTok)
	if convErr != nil || status < 100 || status > 599 {
		return startLine{}, newErr(KindInvalidStatus, "status code must be a decimal integer in [100,599]")
	}

	return startLine{
		isResponse: true,
		version:    version,
		status:     uint16(status),
		reason:     reasonTok,
	}, nil
}

func parseRequestStartLine(methodTok, uriTok, versionTok string) (startLine, *Error) {
	var method Method
	switch methodTok {
	case "REQMOD":
		method = ReqMod
	case "RESPMOD":
		method = RespMod
	case "OPTIONS":
		method = Options
	default:
		return startLine{}, newErr(KindInvalidMethod, "unrecognized ICAP method: "+methodTok)
	}

	version, err := parseVersionToken(versionTok)
	if err != nil {
		return startLine{}, err
	}

	return startLine{
		isResponse: false,
		method:     method,
		uri:        uriTok,
		version:    version,
	}, nil
}

func parseVersionToken(tok string) (Version, *Error) {
	if !strings.HasPrefix(tok, icapPrefix) {
		return VersionUnknown, newErr(KindInvalidVersion, "expected ICAP/x.y version token, got: "+tok)
	}
	switch tok {
	case "ICAP/1.0":
		return V1_0, nil
	case "ICAP/1.1":
		return V1_1, nil
	default:
		return VersionUnknown, newErr(KindInvalidVersion, "unsupported ICAP version: "+tok)
	}
}
