// Package domain holds the sentinel errors shared across layers that don't
// otherwise have a narrower home of their own; most of this module's error
// taxonomy (access refusals, bearer parse failures, path parse failures) is
// instead carried as typed values in internal/storage/proto and
// internal/storage/path, checked with errors.As rather than errors.Is.
package domain

import "errors"

// ErrUnauthorized indicates an admin session token is missing, expired, or
// fails signature verification. Checked with errors.Is by callers of
// internal/auth.SessionIssuer.VerifyToken.
var ErrUnauthorized = errors.New("unauthorized")
