// Package validate scans decoded ICAP-encapsulated HTTP sections for
// SQL-injection and script-injection shaped payloads before they reach the
// content-adaptation stage.
package validate

import (
	"regexp"
	"strings"
)

// Finding describes a single pattern match inside a scanned section.
type Finding struct {
	Section string // "req-hdr", "req-body", "res-hdr", "res-body"
	Rule    string
	Excerpt string
}

// Compiled regex patterns for security validation, carried over from the
// original content-adaptation stack's JSON-body scanner.
var (
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|insert\s+into|delete\s+from|update\s+set|drop\s+table|create\s+table)`),
		regexp.MustCompile(`(?i)(exec\s*\(|execute\s*\(|sp_executesql)`),
		regexp.MustCompile(`(?i)(union.*select|select.*from.*where|1\s*=\s*1|1\s*or\s*1)`),
	}

	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)vbscript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)<iframe[^>]*>`),
	}
)

const excerptRadius = 24

// Scanner applies the package's compiled rule sets, up to a per-section
// byte limit. It is stateless and safe for concurrent use across
// connections.
type Scanner struct {
	maxScanBytes int
}

// New returns a Scanner that inspects at most maxScanBytes of any single
// section, to keep pathologically large bodies from costing a full regex
// sweep per push.
func New(maxScanBytes int) *Scanner {
	if maxScanBytes <= 0 {
		maxScanBytes = 1 << 16
	}
	return &Scanner{maxScanBytes: maxScanBytes}
}

// ScanSection runs both pattern sets against a decoded section's bytes and
// returns every match found. section is a label used only for reporting
// ("req-hdr", "req-body", "res-hdr", "res-body").
func (s *Scanner) ScanSection(section string, data []byte) []Finding {
	if len(data) == 0 {
		return nil
	}
	if len(data) > s.maxScanBytes {
		data = data[:s.maxScanBytes]
	}

	text := string(data)
	lower := strings.ToLower(text)
	var findings []Finding

	for _, p := range sqlInjectionPatterns {
		if loc := p.FindStringIndex(lower); loc != nil {
			findings = append(findings, Finding{
				Section: section,
				Rule:    "sql-injection",
				Excerpt: excerpt(text, loc[0], loc[1]),
			})
		}
	}
	for _, p := range xssPatterns {
		if loc := p.FindStringIndex(text); loc != nil {
			findings = append(findings, Finding{
				Section: section,
				Rule:    "script-injection",
				Excerpt: excerpt(text, loc[0], loc[1]),
			})
		}
	}
	return findings
}

func excerpt(text string, start, end int) string {
	lo := start - excerptRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + excerptRadius
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// Sanitize strips control characters and neutralizes the script-injection
// patterns Scanner looks for, for use when a section must be forwarded
// rather than rejected.
func Sanitize(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == 0 || (r < 32 && r != 9 && r != 10 && r != 13) {
			return -1
		}
		return r
	}, input)

	for _, pattern := range xssPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	return strings.TrimSpace(cleaned)
}
