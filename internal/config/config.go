// Package config loads server configuration from a TOML settings file.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// HTTPSSettings configures the optional TLS listener.
type HTTPSSettings struct {
	Port         int    `toml:"port"`
	KeyfilePath  string `toml:"keyfile_path"`
	CertfilePath string `toml:"certfile_path"`
	EnableHSTS   bool   `toml:"enable_hsts"`
}

// Settings is the full set of recognized TOML settings keys.
type Settings struct {
	Domain               string         `toml:"domain"`
	DomainSuffix         string         `toml:"domain_suffix"`
	Port                 int            `toml:"port"`
	AdminUIPort          int            `toml:"admin_ui_port"`
	TokenLifetimeSeconds int            `toml:"token_lifetime_seconds"`
	OAuthWaitSeconds     int            `toml:"oauth_wait_seconds"`
	// LogfilePath is a file path, not a directory; SetupLogFile rotates
	// timestamped files alongside it using its own base name.
	LogfilePath string `toml:"logfile_path"`
	UserfilePath         string         `toml:"userfile_path"`
	DataPath             string         `toml:"data_path"`
	CustomEncryptionKey  string         `toml:"custom_encryption_key"`
	Engine               string         `toml:"engine"`
	DatabaseURL          string         `toml:"database_url"`
	AdminSessionSecret   string         `toml:"admin_session_secret"`
	AdminUsername        string         `toml:"admin_username"`
	AdminPasswordHash    string         `toml:"admin_password_hash"`
	HTTPS                *HTTPSSettings `toml:"https"`
}

func defaults() Settings {
	return Settings{
		Port:                 8800,
		AdminUIPort:          8900,
		TokenLifetimeSeconds: 3600,
		OAuthWaitSeconds:     2,
		LogfilePath:          "remotestorage.log",
		UserfilePath:         "users.json",
		DataPath:             "./data",
		Engine:               "filesystem",
	}
}

// Load reads and validates settings from a TOML file at path.
func Load(path string) (Settings, error) {
	settings := defaults()
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return Settings{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	switch settings.Engine {
	case "memory", "filesystem", "localstore":
	default:
		return Settings{}, fmt.Errorf("config: unknown engine %q", settings.Engine)
	}
	if settings.Engine == "localstore" && settings.DatabaseURL == "" {
		return Settings{}, fmt.Errorf("config: engine \"localstore\" requires database_url")
	}
	if settings.Domain == "" {
		return Settings{}, fmt.Errorf("config: domain is required")
	}
	if settings.TokenLifetimeSeconds < MinTokenLifetimeSeconds || settings.TokenLifetimeSeconds > MaxTokenLifetimeSeconds {
		return Settings{}, fmt.Errorf("config: token_lifetime_seconds must be between %d and %d", MinTokenLifetimeSeconds, MaxTokenLifetimeSeconds)
	}

	return settings, nil
}

// EncryptionKey decodes CustomEncryptionKey (32 bytes, hex-encoded) if set.
// A nil, nil return means the userfile is stored unencrypted.
func (s Settings) EncryptionKey() (*[32]byte, error) {
	if s.CustomEncryptionKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(s.CustomEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("config: custom_encryption_key must be hex-encoded: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("config: custom_encryption_key must decode to 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// CheckAdminPassword reports whether username/password match the single
// configured admin credential pair. The admin identity is independent of
// the remoteStorage user table: it authenticates the admin API, not
// storage access.
func (s Settings) CheckAdminPassword(username, password string) bool {
	if s.AdminUsername == "" || s.AdminPasswordHash == "" || username != s.AdminUsername {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.AdminPasswordHash), []byte(password)) == nil
}

// AdminSessionSecretOrEnv returns the configured admin session secret,
// falling back to the REMOTESTORAGE_ADMIN_SESSION_SECRET environment
// variable so it needn't be committed alongside the rest of settings.toml.
func (s Settings) AdminSessionSecretOrEnv() string {
	if s.AdminSessionSecret != "" {
		return s.AdminSessionSecret
	}
	return os.Getenv("REMOTESTORAGE_ADMIN_SESSION_SECRET")
}
