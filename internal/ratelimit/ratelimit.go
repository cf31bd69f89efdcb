// Package ratelimit throttles ICAP connections by the adaptation cost they
// impose on the daemon, not by a flat per-connection attempt count. A
// generic per-client-IP HTTP throttle treats every hit as equally expensive;
// that model doesn't fit this daemon, where a single pipelined RESPMOD
// transaction can carry a multi-megabyte encapsulated body that
// internal/validate must regex-scan and internal/adapt must tokenize or
// detokenize against the vault. A peer sending one huge body costs far more
// than one sending many tiny OPTIONS probes, so this limiter tracks a
// cumulative cost budget per remote address within a fixed window rather
// than a request count.
package ratelimit

import (
	"sync"
	"time"
)

// peerLoad tracks the adaptation cost a single remote address has spent
// within the current window.
type peerLoad struct {
	unitsUsed    int
	windowStart  time.Time
	blockedUntil time.Time
}

// Limiter enforces a fixed-window cost budget per remote address, blocking
// a peer for a cooldown period once its cumulative spend exceeds the budget
// inside one window.
type Limiter struct {
	peers         map[string]*peerLoad
	maxUnits      int
	windowSize    time.Duration
	blockDuration time.Duration
	mu            sync.RWMutex
}

// New creates a Limiter allowing maxUnits of adaptation cost per windowSize
// from a single remote address, blocking offenders for blockDuration once
// they exceed it.
func New(maxUnits int, windowSize, blockDuration time.Duration) *Limiter {
	return &Limiter{
		peers:         make(map[string]*peerLoad),
		maxUnits:      maxUnits,
		windowSize:    windowSize,
		blockDuration: blockDuration,
	}
}

// Allow reports whether remoteAddr may spend cost more units of adaptation
// work right now, and records the spend if so. cost is typically the byte
// length of the encapsulated section about to be scanned and
// tokenized/detokenized; a cheap flat-rate check (e.g. gating a new TCP
// connection before any ICAP message has been parsed) passes 1.
func (l *Limiter) Allow(remoteAddr string, cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	peer, exists := l.peers[remoteAddr]
	if !exists {
		l.peers[remoteAddr] = &peerLoad{unitsUsed: cost, windowStart: now}
		return true
	}

	if !peer.blockedUntil.IsZero() && now.Before(peer.blockedUntil) {
		return false
	}

	if now.Sub(peer.windowStart) >= l.windowSize {
		peer.unitsUsed = cost
		peer.windowStart = now
		peer.blockedUntil = time.Time{}
		return true
	}

	peer.unitsUsed += cost

	if peer.unitsUsed > l.maxUnits {
		peer.blockedUntil = now.Add(l.blockDuration)
		return false
	}
	return true
}

// Cleanup evicts peers whose window has expired and who are not currently
// blocked, bounding the map's size on a long-lived daemon.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for addr, peer := range l.peers {
		windowExpired := now.Sub(peer.windowStart) >= l.windowSize
		blockExpired := peer.blockedUntil.IsZero() || now.After(peer.blockedUntil)
		if windowExpired && blockExpired {
			delete(l.peers, addr)
		}
	}
}

// Stats reports how many peers are tracked, blocked, and within their
// current window.
func (l *Limiter) Stats() (total, blocked, active int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	total = len(l.peers)
	for _, peer := range l.peers {
		if !peer.blockedUntil.IsZero() && now.Before(peer.blockedUntil) {
			blocked++
		}
		if now.Sub(peer.windowStart) < l.windowSize {
			active++
		}
	}
	return total, blocked, active
}
