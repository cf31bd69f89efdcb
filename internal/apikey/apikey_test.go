package apikey

import "testing"

func TestGenerateProducesPrefixedID(t *testing.T) {
	k, err := Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(k.ID) < len(keyPrefix) || k.ID[:len(keyPrefix)] != keyPrefix {
		t.Errorf("ID = %q, want prefix %q", k.ID, keyPrefix)
	}
	if k.Secret == "" {
		t.Error("expected a non-empty secret")
	}
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("super-secret-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Verify(hash, "super-secret-value") {
		t.Error("expected Verify to succeed with the correct secret")
	}
	if Verify(hash, "wrong-value") {
		t.Error("expected Verify to fail with the wrong secret")
	}
}
