package models

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are the JWT claims carried by a self-issued admin session
// token. The server signs and verifies these itself; there is no external
// identity provider.
type AdminClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// GetUsername returns the admin username the session was issued for.
func (c *AdminClaims) GetUsername() string {
	return c.Username
}
