// Package database implements the request pipeline that mediates between
// the HTTP adapter and a storage engine: authorization, precondition
// evaluation, dispatch, and event notification.
package database

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"remotestorage/internal/security"
	"remotestorage/internal/storage/engine"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

var publicPrefix = path.MustParse("public/")

// Settings controls token lifetime and (optionally) where the user table
// is persisted.
type Settings struct {
	TokenLifetime time.Duration
	UserStore     *security.Store
}

// Database is the single entry point mutating requests pass through. A
// single mutex around Perform gives it the same cooperative, one-request-
// at-a-time concurrency model the reference engines assume.
type Database struct {
	mu sync.Mutex

	engine    engine.Engine
	users     []*security.User
	listeners []proto.Listener
	settings  Settings
	logger    *slog.Logger

	eventVersion uint64
}

// New constructs a Database around eng. If settings.UserStore is non-nil and
// already holds a user table, it is loaded immediately.
func New(eng engine.Engine, settings Settings, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db := &Database{engine: eng, settings: settings, logger: logger}

	if settings.UserStore != nil {
		users, err := settings.UserStore.Load()
		if err != nil {
			return nil, fmt.Errorf("database: load users: %w", err)
		}
		db.users = users
	}

	return db, nil
}

// RegisterListener adds a listener notified synchronously, inside the
// lock, whenever a request mutates the database.
func (db *Database) RegisterListener(l proto.Listener) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.listeners = append(db.listeners, l)
}

// Perform runs the full authorize/precondition/dispatch pipeline for a
// single request and returns its outcome.
func (db *Database) Perform(ctx context.Context, request proto.Request) proto.Response {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.logger.Debug("performing request", "method", request.Method.String(), "path", request.Path.String())

	status := db.perform(ctx, request)
	return proto.Response{Request: request, Status: status}
}

func (db *Database) perform(ctx context.Context, request proto.Request) proto.ResponseStatus {
	if err := db.isAllowed(&request); err != nil {
		return proto.ResponseStatus{Kind: proto.StatusUnauthorized, AccessError: err}
	}

	if (request.Method == proto.Put || request.Method == proto.Delete) && request.Path.IsFolder() {
		return proto.ResponseStatus{Kind: proto.StatusNotSuitableForFolderItem}
	}

	previewMethod := proto.Head
	if request.Method == proto.Put {
		previewMethod = proto.Get
	}
	previewRequest := &proto.Request{Method: previewMethod, Path: request.Path, Origin: proto.InternalOrigin}
	previewResponse, err := db.engine.Perform(ctx, previewRequest)
	if err != nil {
		return proto.ResponseStatus{Kind: proto.StatusInternalError, ErrorMessage: err.Error()}
	}

	if status, handled := db.evaluatePreconditions(request, previewResponse); handled {
		return status
	}

	if request.Method == proto.Head {
		return proto.ResponseStatus{Kind: proto.StatusPerformed, Performed: previewResponse}
	}

	switch {
	case request.Item == nil:
		if request.Method == proto.Put {
			return proto.ResponseStatus{Kind: proto.StatusMissingRequestItem}
		}
		return db.dispatch(ctx, request)

	case request.Item.Kind == item.Folder:
		return proto.ResponseStatus{Kind: proto.StatusNotSuitableForFolderItem}

	default:
		if request.Method == proto.Put {
			if status, short := db.putPreemption(request, previewResponse); short {
				return status
			}
		}
		return db.dispatch(ctx, request)
	}
}

// evaluatePreconditions checks If-Match/If-None-Match against the preview
// response. handled is true when the pipeline must return immediately
// without reaching the engine for the real request.
func (db *Database) evaluatePreconditions(request proto.Request, preview proto.EngineResponse) (proto.ResponseStatus, bool) {
	switch preview.Kind {
	case proto.EngineNotFound:
		if request.Method == proto.Put && hasNonWildcardIfMatch(request.Limits) {
			return proto.ResponseStatus{Kind: proto.StatusPerformed, Performed: proto.EngineResponse{Kind: proto.EngineNotFound}}, true
		}
		return proto.ResponseStatus{}, false

	case proto.EngineGetSuccessDocument:
		etag := preview.Document.Etag
		if etag == nil {
			return proto.ResponseStatus{Kind: proto.StatusInternalError, ErrorMessage: "get does not return etag"}, true
		}
		for _, limit := range request.Limits {
			switch limit.Kind {
			case proto.IfMatch:
				if *etag != limit.Etag {
					return proto.ResponseStatus{Kind: proto.StatusNoIfMatch, FoundEtag: *etag}, true
				}
			case proto.IfNoneMatch:
				if *etag == limit.Etag || limit.Etag == item.WildcardEtag {
					return proto.ResponseStatus{Kind: proto.StatusIfNoneMatch, FoundEtag: *etag}, true
				}
			}
		}
		return proto.ResponseStatus{}, false

	default:
		return proto.ResponseStatus{}, false
	}
}

func hasNonWildcardIfMatch(limits []proto.Limit) bool {
	for _, l := range limits {
		if l.Kind == proto.IfMatch && l.Etag != item.WildcardEtag {
			return true
		}
	}
	return false
}

// putPreemption short-circuits a PUT whose content is byte-for-byte
// identical to what is already stored, avoiding a write (and the version
// bump and event it would cause) for a no-op upload.
func (db *Database) putPreemption(request proto.Request, preview proto.EngineResponse) (proto.ResponseStatus, bool) {
	switch preview.Kind {
	case proto.EngineGetSuccessDocument:
		if preview.Document.Kind == item.Folder {
			return proto.ResponseStatus{Kind: proto.StatusNotSuitableForFolderItem}, true
		}
		if request.Item != nil &&
			bytes.Equal(preview.Document.Content, request.Item.Content) &&
			preview.Document.ContentType == request.Item.ContentType {
			return proto.ResponseStatus{Kind: proto.StatusContentNotChanged}, true
		}
		return proto.ResponseStatus{}, false

	case proto.EngineGetSuccessFolder:
		return proto.ResponseStatus{Kind: proto.StatusNotSuitableForFolderItem}, true

	case proto.EngineNotFound:
		if hasNonWildcardIfMatch(request.Limits) {
			return proto.ResponseStatus{Kind: proto.StatusPerformed, Performed: proto.EngineResponse{Kind: proto.EngineNotFound}}, true
		}
		return proto.ResponseStatus{}, false

	case proto.EngineInternalError:
		return proto.ResponseStatus{Kind: proto.StatusInternalError, ErrorMessage: preview.Message}, true

	default:
		return proto.ResponseStatus{Kind: proto.StatusInternalError, ErrorMessage: fmt.Sprintf("unexpected preview response kind %v", preview.Kind)}, true
	}
}

func (db *Database) dispatch(ctx context.Context, request proto.Request) proto.ResponseStatus {
	response, err := db.engine.Perform(ctx, &request)
	if err != nil {
		return proto.ResponseStatus{Kind: proto.StatusInternalError, ErrorMessage: err.Error()}
	}

	if response.HasMutatedDatabase() {
		db.eventVersion++
		if event, ok := proto.BuildEvent(uuid.NewString(), request, response, db.eventVersion); ok {
			for _, listener := range db.listeners {
				if err := listener.Notify(event); err != nil {
					db.logger.Warn("listener rejected event", "error", err)
				}
			}
		}
	}

	return proto.ResponseStatus{Kind: proto.StatusPerformed, Performed: response}
}

func (db *Database) isAllowed(request *proto.Request) *proto.AccessError {
	if request.Path.StartsWith(publicPrefix) {
		if request.Path.IsDocument() {
			return nil
		}
		return &proto.AccessError{Kind: proto.CanNotListPublic}
	}

	if request.Token == "" {
		return &proto.AccessError{Kind: proto.MissingToken}
	}
	return db.checkToken(request)
}

func (db *Database) checkToken(request *proto.Request) *proto.AccessError {
	for _, user := range db.users {
		meta, ok := user.Tokens[request.Token]
		if !ok {
			continue
		}
		if err := meta.Check(request, time.Now()); err != nil {
			return &proto.AccessError{Kind: proto.NotValidToken, Detail: []error{err}}
		}
		return nil
	}
	return &proto.AccessError{Kind: proto.UnknownToken}
}
