package security

import (
	"path/filepath"
	"testing"
)

func TestNewUserChecksPassword(t *testing.T) {
	u, err := NewUser("alice", "correcthorsebattery")
	if err != nil {
		t.Fatal(err)
	}
	if !u.CheckPassword("correcthorsebattery") {
		t.Fatal("expected correct password to check out")
	}
	if u.CheckPassword("wrong") {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestNewUserRejectsShortPassword(t *testing.T) {
	if _, err := NewUser("alice", "short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestStoreRoundTripsPlaintext(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "users.json"), nil)

	u, err := NewUser("alice", "correcthorsebattery")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save([]*User{u}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Username != "alice" {
		t.Fatalf("got %+v", loaded)
	}
	if !loaded[0].CheckPassword("correcthorsebattery") {
		t.Fatal("expected password hash to round-trip")
	}
}

func TestStoreRoundTripsEncrypted(t *testing.T) {
	dir := t.TempDir()
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	store := NewStore(filepath.Join(dir, "users.json"), &key)

	u, err := NewUser("bob", "correcthorsebattery")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save([]*User{u}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Username != "bob" {
		t.Fatalf("got %+v", loaded)
	}
}

func TestStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "does-not-exist.json"), nil)
	users, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if users != nil {
		t.Fatalf("expected nil, got %+v", users)
	}
}
