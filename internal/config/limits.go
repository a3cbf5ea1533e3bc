package config

import "time"

const (
	// OAuthFormTokenTTL is how long a consent-form token remains usable
	// before a sweep on the next insertion discards it.
	OAuthFormTokenTTL = 5 * time.Minute

	// MinTokenLifetimeSeconds and MaxTokenLifetimeSeconds bound the
	// token_lifetime_seconds setting to sane values.
	MinTokenLifetimeSeconds = 60
	MaxTokenLifetimeSeconds = 365 * 24 * 60 * 60

	// MaxPathPartLength caps a single path segment's byte length, well
	// above any legitimate filename but short enough to keep filesystem
	// engine paths under common OS limits once nested several levels deep.
	MaxPathPartLength = 255

	// MaxAdminRequestBytes caps the body of an admin API request (login,
	// user creation, token generation) — a handful of short string fields,
	// never a document upload, so this is far smaller than the storage
	// API's own per-document limit.
	MaxAdminRequestBytes = 64 << 10
)
