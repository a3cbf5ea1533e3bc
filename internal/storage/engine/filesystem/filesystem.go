// Package filesystem implements the filesystem-backed storage engine:
// each document is a content file plus a TOML sidecar carrying its
// metadata, and each folder has a sidecar only.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"remotestorage/internal/storage/engine"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

const sidecarExtension = ".itemdata.toml"

// Engine stores items as content files with TOML sidecars under a root
// directory on disk.
type Engine struct {
	rootPath string
}

// New creates (if absent) the data directory and returns an engine rooted
// there.
func New(rootPath string) (*Engine, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem engine: create root: %w", err)
	}
	e := &Engine{rootPath: rootPath}

	rootSidecar := e.diskPath(path.Root.AsDatafile(sidecarExtension))
	if _, err := os.Stat(rootSidecar); errors.Is(err, os.ErrNotExist) {
		root := item.NewFolder().WithStamp(item.NewEtag(), item.Now())
		if err := writeSidecar(rootSidecar, root); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Factory registers this engine under the name "filesystem". settings
// must contain a "path" string key.
func Factory(settings map[string]any) (engine.Engine, error) {
	dataPath, _ := settings["path"].(string)
	if dataPath == "" {
		return nil, fmt.Errorf("filesystem engine: missing \"path\" setting")
	}
	return New(dataPath)
}

func (e *Engine) diskPath(p path.Path) string {
	return filepath.Join(e.rootPath, filepath.FromSlash(p.String()))
}

type sidecar struct {
	Kind         string  `toml:"kind"`
	Etag         *string `toml:"etag,omitempty"`
	LastModified *string `toml:"last_modified,omitempty"`
	ContentType  *string `toml:"content_type,omitempty"`
}

func toSidecar(it item.Item) sidecar {
	s := sidecar{}
	if it.Kind == item.Document {
		s.Kind = "document"
		if it.ContentType != "" {
			s.ContentType = &it.ContentType
		}
	} else {
		s.Kind = "folder"
	}
	if it.Etag != nil {
		etag := string(*it.Etag)
		s.Etag = &etag
	}
	if it.LastModified != nil {
		lm := it.LastModified.String()
		s.LastModified = &lm
	}
	return s
}

func (s sidecar) toItem() (item.Item, error) {
	var it item.Item
	switch s.Kind {
	case "document":
		it.Kind = item.Document
		if s.ContentType != nil {
			it.ContentType = *s.ContentType
		}
	case "folder":
		it.Kind = item.Folder
	default:
		return item.Item{}, fmt.Errorf("filesystem engine: unknown sidecar kind %q", s.Kind)
	}
	if s.Etag != nil {
		etag := item.Etag(*s.Etag)
		it.Etag = &etag
	}
	if s.LastModified != nil {
		t, err := parseLastModified(*s.LastModified)
		if err != nil {
			return item.Item{}, err
		}
		it.LastModified = &t
	}
	return it, nil
}

func parseLastModified(value string) (item.LastModified, error) {
	t, err := time.Parse(time.RFC1123Z, value)
	if err != nil {
		return item.LastModified{}, err
	}
	return item.LastModified(t), nil
}

func writeSidecar(diskPath string, it item.Item) error {
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(diskPath)
	if err != nil {
		return fmt.Errorf("filesystem engine: write sidecar: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(toSidecar(it))
}

func readSidecar(diskPath string) (item.Item, error) {
	var s sidecar
	if _, err := toml.DecodeFile(diskPath, &s); err != nil {
		return item.Item{}, err
	}
	return s.toItem()
}

func (e *Engine) Perform(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
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
	contentPath := e.diskPath(request.Path)
	_, statErr := os.Stat(contentPath)
	existed := statErr == nil

	newEtag := item.NewEtag()
	newLastModified := item.Now()
	newItem := request.Item.WithStamp(newEtag, newLastModified)

	if err := os.MkdirAll(filepath.Dir(contentPath), 0o755); err != nil {
		return proto.EngineResponse{}, fmt.Errorf("filesystem engine: mkdir: %w", err)
	}

	content := newItem.Content
	if content == nil {
		content = []byte{}
	}
	if err := os.WriteFile(contentPath, content, 0o644); err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while writing data on disk"}, nil
	}
	if err := writeSidecar(e.diskPath(request.Path.AsDatafile(sidecarExtension)), newItem.CloneWithoutContent()); err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while writing data on disk"}, nil
	}

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
		if _, err := e.Perform(ctx, engine.AncestorPutRequest(parent)); err != nil {
			return proto.EngineResponse{}, err
		}
		current = parent
	}

	return response, nil
}

func (e *Engine) delete(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	contentPath := e.diskPath(request.Path)
	if _, err := os.Stat(contentPath); errors.Is(err, os.ErrNotExist) {
		return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
	}

	if err := os.Remove(e.diskPath(request.Path.AsDatafile(sidecarExtension))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while deleting sidecar"}, nil
	}

	if err := os.Remove(contentPath); err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while deleting data from disk"}, nil
	}

	response := proto.EngineResponse{Kind: proto.EngineDeleteSuccess}

	current := request.Path
	for {
		parent, ok := current.Parent()
		if !ok || parent.IsRoot() {
			break
		}

		folderResponse, err := e.Perform(ctx, engine.AncestorGetRequest(parent))
		if err != nil {
			return proto.EngineResponse{}, err
		}
		if folderResponse.Kind != proto.EngineGetSuccessFolder || len(folderResponse.Children) != 0 {
			break
		}
		if _, err := e.Perform(ctx, engine.AncestorDeleteRequest(parent)); err != nil {
			return proto.EngineResponse{}, err
		}
		current = parent
	}

	return response, nil
}

func (e *Engine) get(request *proto.Request) (proto.EngineResponse, error) {
	switch {
	case request.Path.IsDocument():
		return e.getDocument(request)
	case request.Path.IsFolder():
		return e.getFolder(request)
	default:
		return proto.EngineResponse{}, fmt.Errorf("path is not a folder nor a document")
	}
}

func (e *Engine) getDocument(request *proto.Request) (proto.EngineResponse, error) {
	contentPath := e.diskPath(request.Path)

	var content []byte
	if request.Method == proto.Head {
		if _, err := os.Stat(contentPath); errors.Is(err, os.ErrNotExist) {
			return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
		}
	} else {
		data, err := os.ReadFile(contentPath)
		if errors.Is(err, os.ErrNotExist) {
			return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
		}
		if err != nil {
			return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while reading content file"}, nil
		}
		content = data
	}

	it, err := readSidecar(e.diskPath(request.Path.AsDatafile(sidecarExtension)))
	if err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while reading itemdata file"}, nil
	}
	if it.Kind != item.Document {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "expected document itemdata, got folder itemdata"}, nil
	}
	it.Content = content

	return proto.EngineResponse{Kind: proto.EngineGetSuccessDocument, Document: it}, nil
}

func (e *Engine) getFolder(request *proto.Request) (proto.EngineResponse, error) {
	folderPath := e.diskPath(request.Path)
	if _, err := os.Stat(folderPath); errors.Is(err, os.ErrNotExist) {
		return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
	}

	folder, err := readSidecar(e.diskPath(request.Path.AsDatafile(sidecarExtension)))
	if err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while reading folder itemdata"}, nil
	}

	children := map[string]item.Item{}
	if request.Method != proto.Head {
		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while listing folder"}, nil
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.Contains(name, ".itemdata.") {
				continue
			}

			wireName := name
			if entry.IsDir() {
				wireName += "/"
			}
			childPath, err := path.Parse(request.Path.String() + wireName)
			if err != nil {
				continue
			}

			childSidecar, err := readSidecar(e.diskPath(childPath.AsDatafile(sidecarExtension)))
			if err != nil {
				return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while reading child itemdata"}, nil
			}
			if childSidecar.Kind == item.Document {
				content, err := os.ReadFile(e.diskPath(childPath))
				if err != nil {
					return proto.EngineResponse{Kind: proto.EngineInternalError, Message: "error while reading child content"}, nil
				}
				childSidecar.Content = content
			}

			children[childPath.String()] = childSidecar
		}
	}

	return proto.EngineResponse{Kind: proto.EngineGetSuccessFolder, Folder: folder, Children: children}, nil
}

// Snapshot walks the whole data directory and returns every item keyed by
// its canonical path string, for fixture-based test assertions.
func (e *Engine) Snapshot(ctx context.Context) (map[string]item.Item, error) {
	result := map[string]item.Item{}

	var walk func(p path.Path) error
	walk = func(p path.Path) error {
		resp, err := e.Perform(ctx, &proto.Request{Method: proto.Get, Path: p})
		if err != nil {
			return err
		}
		if resp.Kind != proto.EngineGetSuccessFolder {
			return fmt.Errorf("filesystem engine: expected folder at %q", p.String())
		}
		result[p.String()] = resp.Folder

		for childKey, childItem := range resp.Children {
			result[childKey] = childItem
			if childItem.Kind == item.Folder {
				childPath, err := path.Parse(childKey)
				if err != nil {
					return err
				}
				if err := walk(childPath); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(path.Root); err != nil {
		return nil, err
	}
	return result, nil
}
