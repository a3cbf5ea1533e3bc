package database

import (
	"context"
	"testing"

	"remotestorage/internal/storage/engine/memory"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

func newTestDatabase(t *testing.T) (*Database, string) {
	t.Helper()
	db, err := New(memory.New(), Settings{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateUser("alice", "correcthorsebattery"); err != nil {
		t.Fatal(err)
	}
	token, err := db.GenerateToken("alice", "correcthorsebattery", "test token", "*:rw")
	if err != nil {
		t.Fatal(err)
	}
	return db, token
}

func TestPerformRejectsMissingToken(t *testing.T) {
	db, _ := newTestDatabase(t)
	resp := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("private/doc.txt")})
	if resp.Status.Kind != proto.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %v", resp.Status.Kind)
	}
	if resp.Status.AccessError.Kind != proto.MissingToken {
		t.Fatalf("expected missing token, got %v", resp.Status.AccessError.Kind)
	}
}

func TestPerformAllowsPublicDocumentWithoutToken(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("hi")).WithContentType("text/plain")
	putResp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("public/note.txt"), Token: token, Item: &doc})
	if putResp.Status.Kind != proto.StatusPerformed {
		t.Fatalf("expected put performed, got %v", putResp.Status.Kind)
	}

	getResp := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("public/note.txt")})
	if getResp.Status.Kind != proto.StatusPerformed {
		t.Fatalf("expected public get to succeed without token, got %v", getResp.Status.Kind)
	}
}

func TestPerformRejectsListingPublicFolder(t *testing.T) {
	db, _ := newTestDatabase(t)
	resp := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("public/")})
	if resp.Status.Kind != proto.StatusUnauthorized || resp.Status.AccessError.Kind != proto.CanNotListPublic {
		t.Fatalf("expected can-not-list-public, got %+v", resp.Status)
	}
}

func TestPerformCreateThenReadRoundTrips(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("buy milk")).WithContentType("text/plain")

	putResp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("notes/todo.txt"), Token: token, Item: &doc})
	if putResp.Status.Kind != proto.StatusPerformed || putResp.Status.Performed.Kind != proto.EngineCreateSuccess {
		t.Fatalf("expected create success, got %+v", putResp.Status)
	}

	getResp := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("notes/todo.txt"), Token: token})
	if getResp.Status.Kind != proto.StatusPerformed || getResp.Status.Performed.Kind != proto.EngineGetSuccessDocument {
		t.Fatalf("expected get success, got %+v", getResp.Status)
	}
	if string(getResp.Status.Performed.Document.Content) != "buy milk" {
		t.Fatalf("got content %q", getResp.Status.Performed.Document.Content)
	}
}

func TestPerformRejectsFolderMutation(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("x")).WithContentType("text/plain")
	resp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("folder/"), Token: token, Item: &doc})
	if resp.Status.Kind != proto.StatusNotSuitableForFolderItem {
		t.Fatalf("expected folder mutation rejection, got %v", resp.Status.Kind)
	}
}

func TestPerformEnforcesScope(t *testing.T) {
	db, _ := newTestDatabase(t)
	token, err := db.GenerateToken("alice", "correcthorsebattery", "read-only contacts", "contacts:r")
	if err != nil {
		t.Fatal(err)
	}

	doc := item.NewDocument().WithContent([]byte("x")).WithContentType("text/plain")
	putResp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("contacts/a.vcf"), Token: token, Item: &doc})
	if putResp.Status.Kind != proto.StatusUnauthorized {
		t.Fatalf("expected write denied by read-only scope, got %v", putResp.Status.Kind)
	}

	outOfScope := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("photos/a.jpg"), Token: token})
	if outOfScope.Status.Kind != proto.StatusUnauthorized {
		t.Fatalf("expected out-of-module denial, got %v", outOfScope.Status.Kind)
	}
}

func TestPerformIfMatchPreconditionReplay(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("v1")).WithContentType("text/plain")
	putResp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("doc.txt"), Token: token, Item: &doc})
	etag := putResp.Status.Performed.Etag

	staleDoc := item.NewDocument().WithContent([]byte("v2")).WithContentType("text/plain")
	staleResp := db.Perform(context.Background(), proto.Request{
		Method: proto.Put, Path: path.MustParse("doc.txt"), Token: token, Item: &staleDoc,
		Limits: []proto.Limit{{Kind: proto.IfMatch, Etag: "not-the-current-etag"}},
	})
	if staleResp.Status.Kind != proto.StatusNoIfMatch {
		t.Fatalf("expected no-if-match, got %v", staleResp.Status.Kind)
	}

	freshResp := db.Perform(context.Background(), proto.Request{
		Method: proto.Put, Path: path.MustParse("doc.txt"), Token: token, Item: &staleDoc,
		Limits: []proto.Limit{{Kind: proto.IfMatch, Etag: etag}},
	})
	if freshResp.Status.Kind != proto.StatusPerformed {
		t.Fatalf("expected matching if-match to succeed, got %+v", freshResp.Status)
	}
}

func TestPerformContentNotChangedPreemption(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("same")).WithContentType("text/plain")
	db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("doc.txt"), Token: token, Item: &doc})

	repeat := item.NewDocument().WithContent([]byte("same")).WithContentType("text/plain")
	resp := db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("doc.txt"), Token: token, Item: &repeat})
	if resp.Status.Kind != proto.StatusContentNotChanged {
		t.Fatalf("expected content-not-changed, got %v", resp.Status.Kind)
	}
}

func TestPerformAncestorsFabricateAndCollapseThroughFacade(t *testing.T) {
	db, token := newTestDatabase(t)
	doc := item.NewDocument().WithContent([]byte("x")).WithContentType("text/plain")
	db.Perform(context.Background(), proto.Request{Method: proto.Put, Path: path.MustParse("a/b/c.txt"), Token: token, Item: &doc})

	getFolder := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("a/"), Token: token})
	if getFolder.Status.Kind != proto.StatusPerformed || getFolder.Status.Performed.Kind != proto.EngineGetSuccessFolder {
		t.Fatalf("expected fabricated ancestor folder, got %+v", getFolder.Status)
	}

	db.Perform(context.Background(), proto.Request{Method: proto.Delete, Path: path.MustParse("a/b/c.txt"), Token: token})

	afterDelete := db.Perform(context.Background(), proto.Request{Method: proto.Get, Path: path.MustParse("a/"), Token: token})
	if afterDelete.Status.Kind != proto.StatusPerformed || afterDelete.Status.Performed.Kind != proto.EngineNotFound {
		t.Fatalf("expected ancestor to have collapsed, got %+v", afterDelete.Status)
	}
}
