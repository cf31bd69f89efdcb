package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := New(3, time.Minute, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1:1234", 1) {
			t.Fatalf("spend %d should be allowed", i)
		}
	}
}

func TestBlocksAfterBudgetExceeded(t *testing.T) {
	l := New(2, time.Minute, time.Minute)
	l.Allow("10.0.0.1:1", 1)
	l.Allow("10.0.0.1:1", 1)
	if l.Allow("10.0.0.1:1", 1) {
		t.Fatal("3rd unit within window should be blocked")
	}
}

func TestSingleLargeCostBlocksImmediately(t *testing.T) {
	l := New(1024, time.Minute, time.Minute)
	if !l.Allow("10.0.0.1:1", 1500) {
		t.Fatal("first spend in a window should always be admitted regardless of size")
	}
	if l.Allow("10.0.0.1:1", 1) {
		t.Fatal("a single oversized body should exhaust the budget for the rest of the window")
	}
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	l := New(1, 10*time.Millisecond, time.Millisecond)
	l.Allow("10.0.0.1:1", 1)
	if l.Allow("10.0.0.1:1", 1) {
		t.Fatal("2nd unit should be blocked within the window")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("10.0.0.1:1", 1) {
		t.Fatal("spend after window+block expiry should be allowed")
	}
}

func TestCleanupEvictsExpiredPeers(t *testing.T) {
	l := New(5, time.Millisecond, time.Millisecond)
	l.Allow("10.0.0.1:1", 1)
	time.Sleep(5 * time.Millisecond)
	l.Cleanup()
	total, _, _ := l.Stats()
	if total != 0 {
		t.Errorf("expected peer to be evicted, total = %d", total)
	}
}
