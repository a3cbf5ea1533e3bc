package auth

import (
	"errors"
	"log/slog"
	"time"

	"remotestorage/internal/domain"
	"remotestorage/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

const sessionLifetime = 12 * time.Hour

// HS256SessionIssuer implements SessionIssuer with a server-held HMAC
// secret. It replaces an earlier JWKS-backed verifier now that admin
// sessions are issued by this server rather than an external provider.
type HS256SessionIssuer struct {
	secret []byte
	logger *slog.Logger
}

// NewSessionIssuer builds an HS256SessionIssuer from a shared secret. The
// secret must be non-empty; callers typically source it from
// config.Settings.AdminSessionSecretOrEnv.
func NewSessionIssuer(secret string, logger *slog.Logger) (SessionIssuer, error) {
	if secret == "" {
		return nil, errors.New("admin session secret cannot be empty")
	}
	return &HS256SessionIssuer{secret: []byte(secret), logger: logger}, nil
}

// IssueToken signs a new session token for username, valid for
// sessionLifetime.
func (v *HS256SessionIssuer) IssueToken(username string) (string, error) {
	now := time.Now()
	claims := &models.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// VerifyToken validates a session token and extracts its claims.
func (v *HS256SessionIssuer) VerifyToken(tokenString string) (*models.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		v.logger.Debug("admin session token rejected", "error", err.Error())
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.AdminClaims)
	if !ok || claims.Username == "" {
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}
