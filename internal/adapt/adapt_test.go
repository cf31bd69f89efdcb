package adapt

import (
	"strings"
	"testing"
)

type fakeStore struct {
	cards map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: make(map[string]string)}
}

func (f *fakeStore) Put(token, cardNumber, cardType string) error {
	f.cards[token] = cardNumber
	return nil
}

func (f *fakeStore) Get(token string) (string, bool) {
	card, ok := f.cards[token]
	return card, ok
}

func TestTokenizeReplacesValidCardNumber(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	body := []byte(`{"card_number":"4111111111111111","amount":42}`)
	res := svc.Tokenize(body)

	if !res.Modified || res.Count != 1 {
		t.Fatalf("res = %+v", res)
	}
	if strings.Contains(string(res.Body), "4111111111111111") {
		t.Error("card number should have been replaced")
	}
	if len(store.cards) != 1 {
		t.Errorf("expected one stored mapping, got %d", len(store.cards))
	}
}

func TestTokenizeIgnoresInvalidLuhn(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	body := []byte(`{"card_number":"4111111111111112"}`)
	res := svc.Tokenize(body)

	if res.Modified {
		t.Fatalf("should not tokenize a Luhn-invalid number: %+v", res)
	}
}

func TestDetokenizeRestoresCardNumber(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	tokenizeRes := svc.Tokenize([]byte(`4111111111111111`))
	detokenizeRes := svc.Detokenize(tokenizeRes.Body)

	if !detokenizeRes.Modified || detokenizeRes.Count != 1 {
		t.Fatalf("detokenizeRes = %+v", detokenizeRes)
	}
	if string(detokenizeRes.Body) != "4111111111111111" {
		t.Errorf("body = %q", detokenizeRes.Body)
	}
}

func TestDetokenizeLeavesUnknownTokenUntouched(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	body := []byte("9999000000000000")
	res := svc.Detokenize(body)
	if res.Modified {
		t.Errorf("should not modify a token the store has no mapping for: %+v", res)
	}
}

func TestDetectCardTypeByBrand(t *testing.T) {
	cases := map[string]string{
		"4111111111111111": "visa",
		"5500000000000004": "mastercard",
		"340000000000009":  "amex",
		"6011000000000004": "discover",
		"1234567890123":    "unknown",
	}
	for number, want := range cases {
		if got := detectCardType(number); got != want {
			t.Errorf("detectCardType(%q) = %q, want %q", number, got, want)
		}
	}
}

func TestIsValidLuhn(t *testing.T) {
	if !isValidLuhn("4111111111111111") {
		t.Error("expected a valid Luhn number")
	}
	if isValidLuhn("4111111111111112") {
		t.Error("expected an invalid Luhn number")
	}
	if isValidLuhn("abc") {
		t.Error("non-digit input must be rejected")
	}
}
