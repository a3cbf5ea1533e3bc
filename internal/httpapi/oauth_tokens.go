package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"remotestorage/internal/config"
)

// oauthFormToken binds a single-use consent-form token to the client IP
// that requested it, so a stolen token can't be replayed from elsewhere.
type oauthFormToken struct {
	value   string
	ip      string
	issued  time.Time
}

func (t oauthFormToken) expired(now time.Time) bool {
	return now.Sub(t.issued) > config.OAuthFormTokenTTL
}

// oauthFormTokenStore is in-memory consent-flow state, guarded by its own
// mutex distinct from the storage database's so a long engine call never
// blocks the OAuth form.
type oauthFormTokenStore struct {
	mu     sync.Mutex
	tokens []oauthFormToken
}

func newOauthFormTokenStore() *oauthFormTokenStore {
	return &oauthFormTokenStore{}
}

// Issue sweeps expired entries and entries for ip, then mints and stores a
// fresh token for ip.
func (s *oauthFormTokenStore) Issue(ip string) (string, error) {
	value, err := randomHex(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if !t.expired(now) && t.ip != ip {
			kept = append(kept, t)
		}
	}
	s.tokens = append(kept, oauthFormToken{value: value, ip: ip, issued: now})

	return value, nil
}

// Consume reports whether value is a live, unexpired token issued to ip,
// and removes it either way (single use).
func (s *oauthFormTokenStore) Consume(ip, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i, t := range s.tokens {
		if t.value == value {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			return t.ip == ip && !t.expired(now)
		}
	}
	return false
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
