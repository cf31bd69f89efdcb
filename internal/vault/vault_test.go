package vault

import "testing"

func TestLastNShorterThanN(t *testing.T) {
	if got := lastN("12", 4); got != "12" {
		t.Errorf("lastN = %q", got)
	}
}

func TestLastNLongerThanN(t *testing.T) {
	if got := lastN("4111111111111111", 4); got != "1111" {
		t.Errorf("lastN = %q", got)
	}
}

func TestFirstNShorterThanN(t *testing.T) {
	if got := firstN("12", 6); got != "12" {
		t.Errorf("firstN = %q", got)
	}
}

func TestFirstNLongerThanN(t *testing.T) {
	if got := firstN("4111111111111111", 6); got != "411111" {
		t.Errorf("firstN = %q", got)
	}
}

func TestOpenRejectsMissingEncryptionKey(t *testing.T) {
	_, err := Open(Config{DSN: "user:pass@tcp(127.0.0.1:3306)/db"})
	if err == nil {
		t.Fatal("expected an error when no encryption key is configured")
	}
}
