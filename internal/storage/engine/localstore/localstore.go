// Package localstore implements the Postgres-backed storage engine: every
// item, folder or document, lives as one row in a flat "items" table keyed
// by its canonical path string.
package localstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"remotestorage/internal/domain/repositories"
	"remotestorage/internal/repository/postgres"
	"remotestorage/internal/storage/engine"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

const schema = `
CREATE TABLE IF NOT EXISTS %s (
	path          text PRIMARY KEY,
	kind          smallint NOT NULL,
	etag          text,
	last_modified timestamptz,
	content_type  text,
	content       bytea
)`

// Engine is the Postgres-backed storage engine. Ancestor fabrication and
// collapse run inside a single transaction per request, so a crash
// mid-chain can never leave an orphaned ancestor folder.
type Engine struct {
	pool      *pgxpool.Pool
	table     string
	txManager repositories.TransactionManager
}

// New opens a connection pool against databaseURL and ensures the items
// table, and its root row, exist.
func New(ctx context.Context, databaseURL, table string) (*Engine, error) {
	if table == "" {
		table = "items"
	}
	pool, err := postgres.CreateConnectionPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	e := &Engine{pool: pool, table: table, txManager: postgres.NewTransactionManager(pool)}
	if _, err := pool.Exec(ctx, fmt.Sprintf(schema, table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("localstore engine: create table: %w", err)
	}

	_, exists, err := e.readRow(ctx, path.Root)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !exists {
		root := item.NewFolder().WithStamp(item.NewEtag(), item.Now())
		if err := e.writeRow(ctx, path.Root, root); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return e, nil
}

// Factory returns an engine.Factory bound to ctx, registered under the name
// "localstore". Its settings must contain a "database_url" string key and
// may contain a "table" string key.
func Factory(ctx context.Context) engine.Factory {
	return func(settings map[string]any) (engine.Engine, error) {
		databaseURL, _ := settings["database_url"].(string)
		if databaseURL == "" {
			return nil, fmt.Errorf("localstore engine: missing \"database_url\" setting")
		}
		table, _ := settings["table"].(string)
		return New(ctx, databaseURL, table)
	}
}

// Close releases the underlying connection pool.
func (e *Engine) Close() {
	e.pool.Close()
}

func (e *Engine) writeRow(ctx context.Context, p path.Path, it item.Item) error {
	var etag *string
	if it.Etag != nil {
		s := string(*it.Etag)
		etag = &s
	}
	var lastModified *time.Time
	if it.LastModified != nil {
		t := it.LastModified.Time().UTC()
		lastModified = &t
	}
	var contentType *string
	if it.Kind == item.Document && it.ContentType != "" {
		contentType = &it.ContentType
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (path, kind, etag, last_modified, content_type, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (path) DO UPDATE SET
			kind = EXCLUDED.kind,
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			content_type = EXCLUDED.content_type,
			content = EXCLUDED.content`, e.table)

	_, err := postgres.GetExecutor(ctx, e.pool).Exec(ctx, query, p.String(), int(it.Kind), etag, lastModified, contentType, it.Content)
	return err
}

func scanItem(kind int, etag *string, lastModified *time.Time, contentType *string, content []byte) item.Item {
	it := item.Item{Kind: item.Kind(kind), Content: content}
	if contentType != nil {
		it.ContentType = *contentType
	}
	if etag != nil {
		e := item.Etag(*etag)
		it.Etag = &e
	}
	if lastModified != nil {
		lm := item.LastModified(*lastModified)
		it.LastModified = &lm
	}
	return it
}

func (e *Engine) readRow(ctx context.Context, p path.Path) (item.Item, bool, error) {
	query := fmt.Sprintf("SELECT kind, etag, last_modified, content_type, content FROM %s WHERE path = $1", e.table)
	row := postgres.GetExecutor(ctx, e.pool).QueryRow(ctx, query, p.String())

	var kind int
	var etag *string
	var lastModified *time.Time
	var contentType *string
	var content []byte

	err := row.Scan(&kind, &etag, &lastModified, &contentType, &content)
	if err == pgx.ErrNoRows {
		return item.Item{}, false, nil
	}
	if err != nil {
		return item.Item{}, false, fmt.Errorf("localstore engine: read row: %w", err)
	}

	return scanItem(kind, etag, lastModified, contentType, content), true, nil
}

func (e *Engine) deleteRow(ctx context.Context, p path.Path) error {
	_, err := postgres.GetExecutor(ctx, e.pool).Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE path = $1", e.table), p.String())
	return err
}

func (e *Engine) Perform(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	switch request.Method {
	case proto.Put:
		return e.put(ctx, request)
	case proto.Delete:
		return e.delete(ctx, request)
	default:
		return e.get(ctx, request)
	}
}

func (e *Engine) put(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	var response proto.EngineResponse

	err := e.txManager.ExecTx(ctx, func(ctx context.Context) error {
		_, existed, err := e.readRow(ctx, request.Path)
		if err != nil {
			response = proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}
			return nil
		}

		newEtag := item.NewEtag()
		newLastModified := item.Now()
		newItem := request.Item.WithStamp(newEtag, newLastModified)

		if err := e.writeRow(ctx, request.Path, newItem); err != nil {
			response = proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}
			return nil
		}

		response = proto.EngineResponse{Kind: proto.EngineCreateSuccess, Etag: newEtag, LastModified: newLastModified}
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
				return err
			}
			current = parent
		}

		return nil
	})
	if err != nil {
		return proto.EngineResponse{}, err
	}

	return response, nil
}

func (e *Engine) delete(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	var response proto.EngineResponse

	err := e.txManager.ExecTx(ctx, func(ctx context.Context) error {
		_, existed, err := e.readRow(ctx, request.Path)
		if err != nil {
			response = proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}
			return nil
		}
		if !existed {
			response = proto.EngineResponse{Kind: proto.EngineNotFound}
			return nil
		}

		if err := e.deleteRow(ctx, request.Path); err != nil {
			response = proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}
			return nil
		}

		response = proto.EngineResponse{Kind: proto.EngineDeleteSuccess}

		current := request.Path
		for {
			parent, ok := current.Parent()
			if !ok || parent.IsRoot() {
				break
			}

			folderResponse, err := e.Perform(ctx, engine.AncestorGetRequest(parent))
			if err != nil {
				return err
			}
			if folderResponse.Kind != proto.EngineGetSuccessFolder || len(folderResponse.Children) != 0 {
				break
			}
			if _, err := e.Perform(ctx, engine.AncestorDeleteRequest(parent)); err != nil {
				return err
			}
			current = parent
		}

		return nil
	})
	if err != nil {
		return proto.EngineResponse{}, err
	}

	return response, nil
}

func (e *Engine) get(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	switch {
	case request.Path.IsDocument():
		it, ok, err := e.readRow(ctx, request.Path)
		if err != nil {
			return proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}, nil
		}
		if !ok {
			return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
		}
		if request.Method == proto.Head {
			it = it.CloneWithoutContent()
		}
		return proto.EngineResponse{Kind: proto.EngineGetSuccessDocument, Document: it}, nil

	case request.Path.IsFolder():
		return e.getFolder(ctx, request)

	default:
		return proto.EngineResponse{}, fmt.Errorf("path is not a folder nor a document")
	}
}

func (e *Engine) getFolder(ctx context.Context, request *proto.Request) (proto.EngineResponse, error) {
	folder, ok, err := e.readRow(ctx, request.Path)
	if err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}, nil
	}
	if !ok {
		return proto.EngineResponse{Kind: proto.EngineNotFound}, nil
	}

	children := map[string]item.Item{}
	if request.Method == proto.Head {
		return proto.EngineResponse{Kind: proto.EngineGetSuccessFolder, Folder: folder, Children: children}, nil
	}

	rows, err := postgres.GetExecutor(ctx, e.pool).Query(ctx, fmt.Sprintf(
		"SELECT path, kind, etag, last_modified, content_type, content FROM %s WHERE path LIKE $1 ESCAPE '\\' AND path != $2", e.table),
		likeEscape(request.Path.String())+"%", request.Path.String())
	if err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}, nil
	}
	defer rows.Close()

	for rows.Next() {
		var childKey string
		var kind int
		var etag *string
		var lastModified *time.Time
		var contentType *string
		var content []byte
		if err := rows.Scan(&childKey, &kind, &etag, &lastModified, &contentType, &content); err != nil {
			return proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}, nil
		}

		childPath, err := path.Parse(childKey)
		if err != nil || !childPath.IsDirectChild(request.Path) {
			continue
		}

		children[childKey] = scanItem(kind, etag, lastModified, contentType, content)
	}
	if err := rows.Err(); err != nil {
		return proto.EngineResponse{Kind: proto.EngineInternalError, Message: err.Error()}, nil
	}

	return proto.EngineResponse{Kind: proto.EngineGetSuccessFolder, Folder: folder, Children: children}, nil
}

// likeEscape backslash-escapes LIKE metacharacters in a path prefix so
// that a path segment legitimately containing "%" or "_" cannot change
// which rows the child-listing query matches.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Snapshot returns every row keyed by its canonical path, for fixture-based
// test assertions shared with the other reference engines.
func (e *Engine) Snapshot(ctx context.Context) (map[string]item.Item, error) {
	rows, err := e.pool.Query(ctx, fmt.Sprintf("SELECT path, kind, etag, last_modified, content_type, content FROM %s", e.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]item.Item{}
	for rows.Next() {
		var p string
		var kind int
		var etag *string
		var lastModified *time.Time
		var contentType *string
		var content []byte
		if err := rows.Scan(&p, &kind, &etag, &lastModified, &contentType, &content); err != nil {
			return nil, err
		}
		out[p] = scanItem(kind, etag, lastModified, contentType, content)
	}
	return out, rows.Err()
}
