// Package engine defines the storage-engine capability abstraction and a
// named registry of engine constructors, adapted from the teacher's
// model-capabilities registry (internal/capabilities) into an engine-type
// registry.
package engine

import (
	"context"
	"fmt"
	"sync"

	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

// Engine is the single-method capability every storage backend
// implements. All ancestor fabrication/collapse bookkeeping lives inside
// the implementation, not in the interface.
type Engine interface {
	Perform(ctx context.Context, request *proto.Request) (proto.EngineResponse, error)
}

// TestFixtureEngine is an additional capability an engine may implement to
// expose a flat snapshot of its tree for test assertions.
type TestFixtureEngine interface {
	Engine
	Snapshot(ctx context.Context) (map[string]item.Item, error)
}

// Factory constructs an Engine from a raw settings map decoded from TOML.
type Factory func(settings map[string]any) (Engine, error)

// Registry is a thread-safe, named lookup of engine factories, mirroring
// the capability registry pattern used for provider/model capabilities
// elsewhere in this codebase's lineage.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with no factories registered.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Re-registering a name overwrites it.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Build constructs the named engine.
func (r *Registry) Build(name string, settings map[string]any) (Engine, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown engine type %q", name)
	}
	return factory(settings)
}

// Names returns the currently registered engine type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// ancestorPutItem is the Folder item shape engines pass to recursive
// internal PUTs: no etag/last-modified, the engine stamps those itself.
func ancestorPutItem() *item.Item {
	folder := item.NewFolder()
	return &folder
}

// AncestorPutRequest builds the synthetic internal PUT used to fabricate
// an ancestor folder.
func AncestorPutRequest(p path.Path) *proto.Request {
	return &proto.Request{
		Method: proto.Put,
		Path:   p,
		Item:   ancestorPutItem(),
		Origin: proto.InternalOrigin,
	}
}

// AncestorGetRequest builds the synthetic internal GET used to inspect an
// ancestor folder's children before deciding whether to collapse it.
func AncestorGetRequest(p path.Path) *proto.Request {
	return &proto.Request{
		Method: proto.Get,
		Path:   p,
		Origin: proto.InternalOrigin,
	}
}

// AncestorDeleteRequest builds the synthetic internal DELETE used to
// collapse an emptied ancestor folder.
func AncestorDeleteRequest(p path.Path) *proto.Request {
	return &proto.Request{
		Method: proto.Delete,
		Path:   p,
		Origin: proto.InternalOrigin,
	}
}
