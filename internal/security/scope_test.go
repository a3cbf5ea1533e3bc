package security

import (
	"testing"

	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

func TestParseBearerAccessValid(t *testing.T) {
	cases := []struct {
		input  string
		module string
		right  Right
	}{
		{"*:rw", "*", ReadWrite},
		{"*:r", "*", Read},
		{"contacts:rw", "contacts", ReadWrite},
		{"contacts:r", "contacts", Read},
		{"my_module_42:rw", "my_module_42", ReadWrite},
	}
	for _, c := range cases {
		access, err := ParseBearerAccess(c.input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.input, err)
		}
		if access.Module != c.module || access.Right != c.right {
			t.Fatalf("%q: got %+v", c.input, access)
		}
	}
}

func TestParseBearerAccessRejectsPublic(t *testing.T) {
	if _, err := ParseBearerAccess("public:rw"); err == nil {
		t.Fatal("expected error for public module")
	}
}

func TestParseBearerAccessRejectsBadFormat(t *testing.T) {
	cases := []string{"norights", "a:b:c", "Module:rw", "mod:wrong"}
	for _, c := range cases {
		if _, err := ParseBearerAccess(c); err == nil {
			t.Fatalf("%q: expected error", c)
		}
	}
}

func TestCheckRequestValidReadWrite(t *testing.T) {
	access := BearerAccess{Module: "contacts", Right: ReadWrite}
	req := &proto.Request{Method: proto.Put, Path: path.MustParse("contacts/friend.vcf")}
	if err := access.CheckRequest(req); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
}

func TestCheckRequestValidReadOnlyRejectsWrite(t *testing.T) {
	access := BearerAccess{Module: "contacts", Right: Read}
	req := &proto.Request{Method: proto.Put, Path: path.MustParse("contacts/friend.vcf")}
	if err := access.CheckRequest(req); err == nil {
		t.Fatal("expected write to be rejected by read-only scope")
	}
}

func TestCheckRequestOutOfModuleScope(t *testing.T) {
	access := BearerAccess{Module: "contacts", Right: ReadWrite}
	req := &proto.Request{Method: proto.Get, Path: path.MustParse("photos/beach.jpg")}
	err := access.CheckRequest(req)
	if err == nil {
		t.Fatal("expected out-of-scope rejection")
	}
	var rve *RequestValidityError
	if !asRequestValidityError(err, &rve) || rve.Kind != OutOfModuleScope {
		t.Fatalf("expected OutOfModuleScope, got %v", err)
	}
}

func TestCheckRequestWildcardGrantsAnyModule(t *testing.T) {
	access := BearerAccess{Module: "*", Right: Read}
	req := &proto.Request{Method: proto.Get, Path: path.MustParse("anything/here.txt")}
	if err := access.CheckRequest(req); err != nil {
		t.Fatalf("expected wildcard to allow, got %v", err)
	}
}

func asRequestValidityError(err error, target **RequestValidityError) bool {
	rve, ok := err.(*RequestValidityError)
	if !ok {
		return false
	}
	*target = rve
	return true
}
