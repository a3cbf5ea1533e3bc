// Package memory implements the in-memory reference storage engine: an
// ordered map from canonical path string to item, with explicit recursive
// ancestor fabrication and collapse.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"remotestorage/internal/storage/engine"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

// Engine is the in-memory storage engine. It is not itself safe for
// concurrent use without external synchronization; the database facade's
// single mutex around Perform provides that.
type Engine struct {
	mu   sync.Mutex
	root map[string]item.Item
}

// New returns an engine seeded only with a freshly stamped root folder.
func New() *Engine {
	root := map[string]item.Item{
		path.Root.String(): item.NewFolder().WithStamp(item.NewEtag(), item.Now()),
	}
	return &Engine{root: root}
}

// NewWithFixtures seeds the tree used by engine-contract tests shared
// across engine implementations: folder_a/document.txt, folder_b/document.txt,
// folder_b/other_document.txt, plus their ancestor folders.
func NewWithFixtures() *Engine {
	e := New()
	seed := func(p string, it item.Item) {
		e.root[p] = it.WithStamp(item.NewEtag(), item.Now())
	}
	doc := func(content, contentType string) item.Item {
		return item.NewDocument().WithContent([]byte(content)).WithContentType(contentType)
	}
	seed("folder_a/document.txt", doc("My Document Content Here (folder a)", "text/html"))
	seed("folder_b/document.txt", doc("My Document Content Here (folder b)", "text/html"))
	seed("folder_b/other_document.txt", doc("My Other Document Content Here (folder b)", "text/html"))
	seed("folder_a/", item.NewFolder())
	seed("folder_b/", item.NewFolder())
	seed("public/folder_c/document.txt", doc("My Document Content Here (folder c)", "text/html"))
	seed("public/folder_c/", item.NewFolder())
	seed("public/", item.NewFolder())
	seed("document.txt", doc("My Document Content Here (root)", "text/html"))
	return e
}

// Factory registers this engine under the name "memory".
func Factory(map[string]any) (engine.Engine, error) {
	return New(), nil
}

func (e *Engine) Perform(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perform(ctx, request)
}

func (e *Engine) perform(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	switch request.Method {
	case proto.Put:
		return e.put(ctx, request)
	case proto.Delete:
		return e.delete(ctx, request)
	default:
		return e.get(request)
	}
}

func (e *Engine) put(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	newEtag := item.NewEtag()
	newLastModified := item.Now()

	key := request.Path.String()
	_, existed := e.root[key]

	newItem := *request.Item
	newItem = newItem.WithStamp(newEtag, newLastModified)
	e.root[key] = newItem

	response := proto.EngineResponse{Kind: proto.EngineCreateSuccess, Etag: newEtag, LastModified: newLastModified}
	if existed {
		response.Kind = proto.EngineUpdateSuccess
	}

	current := request.Path
	for {
		parent, ok := current.Parent()
		if !ok {
			break
		}
		if _, err := e.perform(ctx, engine.AncestorPutRequest(parent)); err != nil {
			return proto.EngineResponse{}, err
		}
		current = parent
	}

	return response, nil
}

func (e *Engine) delete(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	key := request.Path.String()
	if _, ok := e.root[key]; !ok {
		return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
	}
	delete(e.root, key)
	response := proto.EngineResponse{Kind: proto.EngineDeleteSuccess}

	current := request.Path
	for {
		parent, ok := current.Parent()
		if !ok || parent.IsRoot() {
			break
		}

		folderResponse, err := e.perform(ctx, engine.AncestorGetRequest(parent))
		if err != nil {
			return proto.EngineResponse{}, err
		}
		if folderResponse.Kind != proto.EngineGetSuccessFolder || len(folderResponse.Children) != 0 {
			break
		}
		if _, err := e.perform(ctx, engine.AncestorDeleteRequest(parent)); err != nil {
			return proto.EngineResponse{}, err
		}
		current = parent
	}

	return response, nil
}

func (e *Engine) get(request *proto.Request) (proto.EngineResponse, error) {
	key := request.Path.String()

	switch {
	case request.Path.IsDocument():
		it, ok := e.root[key]
		if !ok {
			return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
		}
		if request.Method == proto.Head {
			it = it.CloneWithoutContent()
		}
		return proto.EngineResponse{Kind: proto.EngineGetSuccessDocument, Document: it}, nil

	case request.Path.IsFolder():
		folder, ok := e.root[key]
		if !ok {
			return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
		}

		children := map[string]item.Item{}
		if request.Method != proto.Head {
			for childKey, childItem := range e.root {
				childPath, err := path.Parse(childKey)
				if err != nil {
					continue
				}
				if childPath.IsDirectChild(request.Path) {
					children[childKey] = childItem
				}
			}
		}

		return proto.EngineResponse{Kind: proto.EngineGetSuccessFolder, Folder: folder, Children: children}, nil

	default:
		return proto.EngineResponse{}, fmt.Errorf("path is not a folder nor a document")
	}
}

// Snapshot returns a defensive copy of the whole tree, for fixture-based
// assertions in tests.
func (e *Engine) Snapshot(_ context.Context) (map[string]item.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]item.Item, len(e.root))
	for k, v := range e.root {
		out[k] = v
	}
	return out, nil
}

// sortedKeys is a small helper used by listing tests that want
// deterministic iteration order.
func sortedKeys(m map[string]item.Item) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
