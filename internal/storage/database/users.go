package database

import (
	"errors"
	"fmt"
	"time"

	"remotestorage/internal/security"
)

// AuthenticateErrorKind enumerates why a password-authenticated operation
// (token generation, user removal) was refused.
type AuthenticateErrorKind int

const (
	WrongBearerSyntax AuthenticateErrorKind = iota
	UserNotFound
	WrongPassword
)

// AuthenticateError reports why CreateUser/GenerateToken/RemoveUser failed.
type AuthenticateError struct {
	Kind   AuthenticateErrorKind
	Detail error
}

func (e *AuthenticateError) Error() string {
	switch e.Kind {
	case WrongBearerSyntax:
		return fmt.Sprintf("invalid scope syntax: %v", e.Detail)
	case UserNotFound:
		return "user not found"
	default:
		return "wrong password"
	}
}

func (e *AuthenticateError) Unwrap() error { return e.Detail }

// CreateUser adds a user, or replaces an existing one with the same
// username and clears its tokens, then persists the table.
func (db *Database) CreateUser(username, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, err := security.NewUser(username, password)
	if err != nil {
		return fmt.Errorf("database: create user: %w", err)
	}

	replaced := false
	for i, existing := range db.users {
		if existing.Username == username {
			db.users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		db.users = append(db.users, user)
	}

	return db.saveUsers()
}

// RemoveUser deletes a user after verifying their password, and persists
// the table.
func (db *Database) RemoveUser(username, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx, user, err := db.findUser(username)
	if err != nil {
		return err
	}
	if !user.CheckPassword(password) {
		return &AuthenticateError{Kind: WrongPassword}
	}

	db.users = append(db.users[:idx], db.users[idx+1:]...)
	return db.saveUsers()
}

// GenerateToken mints a new opaque bearer token scoped by scopes (a
// comma-separated "module:right" list) for username, after checking
// password, and persists the table.
func (db *Database) GenerateToken(username, password, description, scopes string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, user, err := db.findUser(username)
	if err != nil {
		return "", err
	}
	if !user.CheckPassword(password) {
		return "", &AuthenticateError{Kind: WrongPassword}
	}

	meta, err := security.NewTokenMetadata(description, scopes, db.settings.TokenLifetime, time.Now())
	if err != nil {
		return "", &AuthenticateError{Kind: WrongBearerSyntax, Detail: err}
	}

	token, err := security.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("database: generate token: %w", err)
	}

	if user.Tokens == nil {
		user.Tokens = map[string]security.TokenMetadata{}
	}
	user.Tokens[token] = meta

	if err := db.saveUsers(); err != nil {
		return "", err
	}
	return token, nil
}

// ListUsernames returns every known username, for the admin listing API.
func (db *Database) ListUsernames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, len(db.users))
	for i, u := range db.users {
		names[i] = u.Username
	}
	return names
}

// findUser must be called with db.mu held.
func (db *Database) findUser(username string) (int, *security.User, error) {
	for i, u := range db.users {
		if u.Username == username {
			return i, u, nil
		}
	}
	return 0, nil, &AuthenticateError{Kind: UserNotFound, Detail: errors.New(username)}
}

// saveUsers must be called with db.mu held.
func (db *Database) saveUsers() error {
	if db.settings.UserStore == nil {
		return nil
	}
	if err := db.settings.UserStore.Save(db.users); err != nil {
		return fmt.Errorf("database: save users: %w", err)
	}
	return nil
}
