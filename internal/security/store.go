package security

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

// storedUser is the JSON-serializable shape of a User, used both for
// plaintext and (once encrypted) secretbox payloads.
type storedUser struct {
	Username     string                   `json:"username"`
	PasswordHash []byte                   `json:"password_hash"`
	Tokens       map[string]TokenMetadata `json:"tokens"`
}

func toStored(u *User) storedUser {
	return storedUser{Username: u.Username, PasswordHash: u.PasswordHash, Tokens: u.Tokens}
}

func (s storedUser) toUser() *User {
	tokens := s.Tokens
	if tokens == nil {
		tokens = map[string]TokenMetadata{}
	}
	return &User{Username: s.Username, PasswordHash: s.PasswordHash, Tokens: tokens}
}

// Store persists the user table to a single file, encrypted at rest with
// nacl/secretbox whenever an encryption key is configured.
type Store struct {
	path          string
	encryptionKey *[32]byte
}

// NewStore returns a Store writing to path. encryptionKey may be nil, in
// which case the file is written as plain JSON.
func NewStore(path string, encryptionKey *[32]byte) *Store {
	return &Store{path: path, encryptionKey: encryptionKey}
}

// Save writes every user to disk, replacing the previous file entirely.
func (s *Store) Save(users []*User) error {
	if s.path == "" {
		return nil
	}

	stored := make([]storedUser, len(users))
	for i, u := range users {
		stored[i] = toStored(u)
	}

	if s.encryptionKey == nil {
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("security: marshal users: %w", err)
		}
		return s.writeAtomic(payload)
	}

	sealed := make([][]byte, len(stored))
	for i, u := range stored {
		plain, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("security: marshal user: %w", err)
		}
		var nonce [24]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("security: generate nonce: %w", err)
		}
		sealed[i] = secretbox.Seal(nonce[:], plain, &nonce, s.encryptionKey)
	}

	payload, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("security: marshal sealed users: %w", err)
	}
	return s.writeAtomic(payload)
}

// writeAtomic writes payload to a temp file next to s.path and renames it
// into place, so a crash mid-write never leaves a truncated or partially
// written userfile behind.
func (s *Store) writeAtomic(payload []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("security: write temp userfile: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("security: rename temp userfile: %w", err)
	}
	return nil
}

// Load reads the user table from disk. It first tries plain JSON, falling
// back to encrypted payloads, so a server can be pointed at an
// encryption_key after having run unencrypted for a while and still read
// its existing userfile.
func (s *Store) Load() ([]*User, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("security: read userfile: %w", err)
	}

	var plain []storedUser
	if err := json.Unmarshal(content, &plain); err == nil {
		return toUsers(plain), nil
	}

	var sealed [][]byte
	if err := json.Unmarshal(content, &sealed); err != nil {
		return nil, fmt.Errorf("security: unknown userfile format: %w", err)
	}
	if s.encryptionKey == nil {
		return nil, fmt.Errorf("security: userfile is encrypted but no encryption key is configured")
	}

	out := make([]storedUser, 0, len(sealed))
	for _, box := range sealed {
		if len(box) < 24 {
			return nil, fmt.Errorf("security: encrypted entry too short")
		}
		var nonce [24]byte
		copy(nonce[:], box[:24])
		plainBytes, ok := secretbox.Open(nil, box[24:], &nonce, s.encryptionKey)
		if !ok {
			return nil, fmt.Errorf("security: decrypt user entry: authentication failed")
		}
		var u storedUser
		if err := json.Unmarshal(plainBytes, &u); err != nil {
			return nil, fmt.Errorf("security: unmarshal decrypted user: %w", err)
		}
		out = append(out, u)
	}
	return toUsers(out), nil
}

func toUsers(stored []storedUser) []*User {
	users := make([]*User, len(stored))
	for i, s := range stored {
		users[i] = s.toUser()
	}
	return users
}
