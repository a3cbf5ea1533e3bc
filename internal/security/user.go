package security

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"
)

// User is one account on the server: a username, its bcrypt password hash,
// and every bearer token currently issued to it, keyed by the opaque token
// string.
type User struct {
	Username     string
	PasswordHash []byte
	Tokens       map[string]TokenMetadata
}

// NewUser hashes password and returns an empty-token User ready to be
// stored.
func NewUser(username, password string) (*User, error) {
	if err := validation.Validate(username, validation.Required, validation.Length(1, 255)); err != nil {
		return nil, fmt.Errorf("security: invalid username: %w", err)
	}
	if err := validation.Validate(password, validation.Required, validation.Length(8, 1024)); err != nil {
		return nil, fmt.Errorf("security: invalid password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("security: hash password: %w", err)
	}

	return &User{Username: username, PasswordHash: hash, Tokens: map[string]TokenMetadata{}}, nil
}

// CheckPassword reports whether password matches this user's stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// TokenDescriptions returns (token, description) pairs sorted by token for
// stable listing output.
func (u *User) TokenDescriptions() []struct{ Token, Description string } {
	out := make([]struct{ Token, Description string }, 0, len(u.Tokens))
	for token, meta := range u.Tokens {
		out = append(out, struct{ Token, Description string }{token, meta.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
