package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// nonceStore tracks SIWE nonces between issuance and login. Nonces are
// single-use and expire after the configured TTL; stale entries are pruned
// lazily on access.
type nonceStore struct {
	mu     sync.Mutex
	issued map[string]time.Time
	ttl    time.Duration
}

func newNonceStore(ttl time.Duration) *nonceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &nonceStore{issued: make(map[string]time.Time), ttl: ttl}
}

func (s *nonceStore) Issue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(buf)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.issued[nonce] = time.Now()
	return nonce, nil
}

func (s *nonceStore) Has(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	_, ok := s.issued[nonce]
	return ok
}

func (s *nonceStore) Consume(nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.issued, nonce)
}

func (s *nonceStore) pruneLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for nonce, at := range s.issued {
		if at.Before(cutoff) {
			delete(s.issued, nonce)
		}
	}
}
