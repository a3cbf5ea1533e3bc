package config

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeSettings(t, `domain = "example.com"`)
	settings, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if settings.Port != 8800 || settings.Engine != "filesystem" || settings.TokenLifetimeSeconds != 3600 {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
}

func TestLoadRejectsMissingDomain(t *testing.T) {
	path := writeSettings(t, `port = 9000`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing domain")
	}
}

func TestLoadRejectsLocalstoreWithoutDatabaseURL(t *testing.T) {
	path := writeSettings(t, "domain = \"example.com\"\nengine = \"localstore\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for localstore engine missing database_url")
	}
}

func TestEncryptionKeyRoundTrip(t *testing.T) {
	settings := Settings{CustomEncryptionKey: "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"}
	key, err := settings.EncryptionKey()
	if err != nil {
		t.Fatal(err)
	}
	if key == nil || key[0] != 0x01 || key[31] != 0x1f {
		t.Fatalf("unexpected key: %+v", key)
	}
}

func TestCheckAdminPasswordMatchesConfiguredPair(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}
	settings := Settings{AdminUsername: "root", AdminPasswordHash: string(hash)}

	if !settings.CheckAdminPassword("root", "correct horse") {
		t.Fatal("expected matching credentials to authenticate")
	}
	if settings.CheckAdminPassword("root", "wrong") {
		t.Fatal("expected wrong password to be rejected")
	}
	if settings.CheckAdminPassword("other", "correct horse") {
		t.Fatal("expected wrong username to be rejected")
	}
}

func TestEncryptionKeyAbsent(t *testing.T) {
	settings := Settings{}
	key, err := settings.EncryptionKey()
	if err != nil || key != nil {
		t.Fatalf("expected nil key, got %v, %v", key, err)
	}
}
