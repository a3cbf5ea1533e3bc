package security

import (
	"testing"
	"time"

	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

func TestGenerateTokenLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 20; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatal(err)
		}
		if len(token) < minTokenLength || len(token) > maxTokenLength {
			t.Fatalf("token length %d out of range", len(token))
		}
		for _, r := range token {
			if !containsRune(tokenAlphabet, r) {
				t.Fatalf("token contains unexpected character %q", r)
			}
		}
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestTokenMetadataCheckExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	meta, err := NewTokenMetadata("test", "*:rw", time.Hour, issued)
	if err != nil {
		t.Fatal(err)
	}

	req := &proto.Request{Method: proto.Get, Path: path.MustParse("doc.txt")}
	if err := meta.Check(req, issued.Add(30*time.Minute)); err != nil {
		t.Fatalf("expected token still valid: %v", err)
	}
	if err := meta.Check(req, issued.Add(2*time.Hour)); err == nil {
		t.Fatal("expected token to have expired")
	}
}

func TestTokenMetadataCheckScopeDenied(t *testing.T) {
	issued := time.Now()
	meta, err := NewTokenMetadata("test", "contacts:r", 0, issued)
	if err != nil {
		t.Fatal(err)
	}

	allowed := &proto.Request{Method: proto.Get, Path: path.MustParse("contacts/a.vcf")}
	if err := meta.Check(allowed, issued); err != nil {
		t.Fatalf("expected allowed: %v", err)
	}

	denied := &proto.Request{Method: proto.Put, Path: path.MustParse("contacts/a.vcf")}
	if err := meta.Check(denied, issued); err == nil {
		t.Fatal("expected write to be denied by read-only scope")
	}

	outOfModule := &proto.Request{Method: proto.Get, Path: path.MustParse("photos/a.jpg")}
	if err := meta.Check(outOfModule, issued); err == nil {
		t.Fatal("expected out-of-module request to be denied")
	}
}
