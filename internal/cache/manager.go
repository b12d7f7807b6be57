package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"flipmail/internal/parser"
)

// CachedCandidate represents an in-memory cached parse result with expiry
type CachedCandidate struct {
	Candidate *parser.ShipmentCandidate
	ExpiresAt time.Time
}

// IsExpired checks if the cached result has expired
func (c *CachedCandidate) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Manager caches parse results keyed on email content. Extraction is
// deterministic, so identical content always yields identical results
// and entries never need invalidation, only expiry.
type Manager struct {
	memory   sync.Map // map[string]*CachedCandidate
	disabled bool
	ttl      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new cache manager
func NewManager(disabled bool, ttl time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	manager := &Manager{
		disabled: disabled,
		ttl:      ttl,
		ctx:      ctx,
		cancel:   cancel,
	}

	if !disabled {
		go manager.cleanupLoop()
	}

	return manager
}

// Key derives the cache key for an email's subject and body
func Key(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "\x00" + body))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cached parse result, nil on miss
func (m *Manager) Get(key string) *parser.ShipmentCandidate {
	if m.disabled {
		return nil
	}

	value, ok := m.memory.Load(key)
	if !ok {
		return nil
	}
	cached := value.(*CachedCandidate)
	if cached.IsExpired() {
		m.memory.Delete(key)
		return nil
	}
	return cached.Candidate
}

// Set stores a parse result
func (m *Manager) Set(key string, candidate *parser.ShipmentCandidate) {
	if m.disabled {
		return
	}

	m.memory.Store(key, &CachedCandidate{
		Candidate: candidate,
		ExpiresAt: time.Now().Add(m.ttl),
	})
}

// Close stops the cleanup goroutine
func (m *Manager) Close() {
	m.cancel()
}

// cleanupLoop periodically evicts expired entries
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.memory.Range(func(key, value interface{}) bool {
				if value.(*CachedCandidate).IsExpired() {
					m.memory.Delete(key)
				}
				return true
			})
		}
	}
}
