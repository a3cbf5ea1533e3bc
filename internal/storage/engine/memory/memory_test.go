package memory

import (
	"context"
	"testing"

	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

func TestPutFabricatesAncestorsUpToRoot(t *testing.T) {
	ctx := context.Background()
	e := New()

	doc := item.NewDocument().WithContent([]byte("hello")).WithContentType("text/plain")
	_, err := e.Perform(ctx, &proto.Request{
		Method: proto.Put,
		Path:   path.MustParse("a/b/c.txt"),
		Item:   &doc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := e.Snapshot(ctx)
	for _, p := range []string{"a/b/c.txt", "a/b/", "a/", ""} {
		if _, ok := snap[p]; !ok {
			t.Fatalf("expected %q to exist, snapshot=%v", p, snap)
		}
	}
	if snap[""].Etag == nil {
		t.Fatal("expected root to carry a fresh etag")
	}
}

func TestDeleteCollapsesEmptyAncestorsNotRoot(t *testing.T) {
	ctx := context.Background()
	e := New()

	doc := item.NewDocument().WithContent([]byte("x")).WithContentType("text/plain")
	if _, err := e.Perform(ctx, &proto.Request{Method: proto.Put, Path: path.MustParse("a/b/c.txt"), Item: &doc}); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Perform(ctx, &proto.Request{Method: proto.Delete, Path: path.MustParse("a/b/c.txt")}); err != nil {
		t.Fatal(err)
	}

	snap, _ := e.Snapshot(ctx)
	for _, p := range []string{"a/b/c.txt", "a/b/", "a/"} {
		if _, ok := snap[p]; ok {
			t.Fatalf("expected %q to have collapsed away", p)
		}
	}
	if _, ok := snap[""]; !ok {
		t.Fatal("expected root to survive collapse")
	}
}

func TestHeadClearsContent(t *testing.T) {
	ctx := context.Background()
	e := NewWithFixtures()

	resp, err := e.Perform(ctx, &proto.Request{Method: proto.Head, Path: path.MustParse("folder_a/document.txt")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != proto.EngineGetSuccessDocument {
		t.Fatalf("unexpected kind %v", resp.Kind)
	}
	if resp.Document.Content != nil {
		t.Fatal("expected HEAD to clear content")
	}
	if resp.Document.ContentType == "" {
		t.Fatal("expected content-type to survive HEAD")
	}
}

func TestHeadFolderLeavesChildrenEmpty(t *testing.T) {
	ctx := context.Background()
	e := NewWithFixtures()

	resp, err := e.Perform(ctx, &proto.Request{Method: proto.Head, Path: path.MustParse("folder_b/")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != proto.EngineGetSuccessFolder {
		t.Fatalf("unexpected kind %v", resp.Kind)
	}
	if len(resp.Children) != 0 {
		t.Fatalf("expected empty children on HEAD, got %v", resp.Children)
	}
}

func TestGetFolderListsDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	e := NewWithFixtures()

	resp, err := e.Perform(ctx, &proto.Request{Method: proto.Get, Path: path.MustParse("folder_b/")})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Children) != 2 {
		t.Fatalf("expected 2 direct children, got %d: %v", len(resp.Children), resp.Children)
	}
}
