// Package adapt implements the REQMOD/RESPMOD content-adaptation logic: it
// scans decoded encapsulated HTTP bodies for credit-card-shaped data,
// replaces it with a vault-backed token on the way in, and restores the
// original card number on the way out.
package adapt

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/tokenshield/icap-core/internal/vault"
)

// cardRegex matches the major card brands' PAN shapes (Visa, Mastercard,
// Amex, Discover, Diners, JCB) anywhere in a body.
var cardRegex = regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|3(?:0[0-5]|[68][0-9])[0-9]{11}|6(?:011|5[0-9]{2})[0-9]{12}|(?:2131|1800|35\d{3})\d{11})\b`)

// tokenRegex matches tokens minted by generateToken: a Luhn-valid 16-digit
// number carrying the reserved 9999 prefix, which no real card range uses.
var tokenRegex = regexp.MustCompile(`\b9999[0-9]{12}\b`)

// Store is the subset of vault.Store the adaptation service depends on.
type Store interface {
	Put(token, cardNumber, cardType string) error
	Get(token string) (cardNumber string, ok bool)
}

var _ Store = (*vault.Store)(nil)

// Service tokenizes card numbers found in REQMOD bodies and detokenizes
// previously minted tokens found in RESPMOD bodies.
type Service struct {
	store Store
}

// New returns a Service backed by store.
func New(store Store) *Service {
	return &Service{store: store}
}

// Result reports what a Tokenize or Detokenize pass did to a body.
type Result struct {
	Body     []byte
	Modified bool
	Count    int
}

// Tokenize replaces every Luhn-valid card number found in body with a
// freshly minted token, recording the mapping in the vault.
func (s *Service) Tokenize(body []byte) Result {
	text := string(body)
	count := 0

	out := cardRegex.ReplaceAllStringFunc(text, func(match string) string {
		digits := stripSeparators(match)
		if !isValidLuhn(digits) {
			return match
		}

		token := s.generateToken()
		if err := s.store.Put(token, digits, detectCardType(digits)); err != nil {
			return match
		}
		count++
		return token
	})

	return Result{Body: []byte(out), Modified: count > 0, Count: count}
}

// Detokenize replaces every token found in body with the card number it
// was minted from, when the vault still has a mapping for it.
func (s *Service) Detokenize(body []byte) Result {
	text := string(body)
	count := 0

	out := tokenRegex.ReplaceAllStringFunc(text, func(token string) string {
		card, ok := s.store.Get(token)
		if !ok {
			return token
		}
		count++
		return card
	})

	return Result{Body: []byte(out), Modified: count > 0, Count: count}
}

func (s *Service) generateToken() string {
	prefix := "9999"
	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < 11; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		b.WriteByte(byte(n.Int64()) + '0')
	}
	partial := b.String()
	return partial + strconv.Itoa(luhnCheckDigit(partial))
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

func isValidLuhn(number string) bool {
	var digits []int
	for _, ch := range number {
		if ch < '0' || ch > '9' {
			return false
		}
		digits = append(digits, int(ch-'0'))
	}
	if len(digits) < 2 {
		return false
	}

	sum := 0
	alternate := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if alternate {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
		alternate = !alternate
	}
	return sum%10 == 0
}

func luhnCheckDigit(number string) int {
	sum := 0
	alternate := true
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if alternate {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
		alternate = !alternate
	}
	return (10 - (sum % 10)) % 10
}

func detectCardType(cardNumber string) string {
	switch {
	case matches(`^4[0-9]{12}(?:[0-9]{3})?$`, cardNumber):
		return "visa"
	case matches(`^5[1-5][0-9]{14}$`, cardNumber), matches(`^2[2-7][0-9]{14}$`, cardNumber):
		return "mastercard"
	case matches(`^3[47][0-9]{13}$`, cardNumber):
		return "amex"
	case matches(`^6011[0-9]{12}$`, cardNumber), matches(`^64[4-9][0-9]{13}$`, cardNumber), matches(`^65[0-9]{14}$`, cardNumber):
		return "discover"
	default:
		return "unknown"
	}
}

func matches(pattern, s string) bool {
	ok, _ := regexp.MatchString(pattern, s)
	return ok
}
