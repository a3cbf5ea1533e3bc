// Package httpapi adapts the storage facade, WebFinger discovery, the
// OAuth implicit-grant flow, and the admin API onto net/http.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"remotestorage/internal/middleware"
	"remotestorage/internal/storage/database"
	"remotestorage/internal/storage/item"
	"remotestorage/internal/storage/path"
	"remotestorage/internal/storage/proto"
)

// StorageHandler serves HEAD/GET/PUT/DELETE/OPTIONS on /storage/<path...>.
type StorageHandler struct {
	db     *database.Database
	logger *slog.Logger
}

// NewStorageHandler builds a StorageHandler around db.
func NewStorageHandler(db *database.Database, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{db: db, logger: logger}
}

const maxDocumentBytes = 100 << 20

func methodFor(httpMethod string) (proto.Method, bool) {
	switch httpMethod {
	case http.MethodHead:
		return proto.Head, true
	case http.MethodGet:
		return proto.Get, true
	case http.MethodPut:
		return proto.Put, true
	case http.MethodDelete:
		return proto.Delete, true
	default:
		return 0, false
	}
}

func parseLimits(r *http.Request) []proto.Limit {
	var limits []proto.Limit
	if v := r.Header.Get("If-Match"); v != "" {
		limits = append(limits, proto.Limit{Kind: proto.IfMatch, Etag: parseEtagHeader(v)})
	}
	if v := r.Header.Get("If-None-Match"); v != "" {
		limits = append(limits, proto.Limit{Kind: proto.IfNoneMatch, Etag: parseEtagHeader(v)})
	}
	return limits
}

func parseEtagHeader(v string) item.Etag {
	v = strings.Trim(v, `"`)
	if v == "*" {
		return item.WildcardEtag
	}
	return item.Etag(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	if origin != "*" {
		w.Header().Set("Vary", "Origin")
	}
}

// ServeHTTP implements the method table of SPEC_FULL.md section 6.1.
func (h *StorageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, r)
	w.Header().Set("Cache-Control", "no-cache")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "HEAD, GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, If-Match, If-None-Match")
		w.WriteHeader(http.StatusOK)
		return
	}

	method, ok := methodFor(r.Method)
	if !ok {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rawPath := r.PathValue("path")
	p, err := path.Parse(rawPath)
	if err != nil {
		http.Error(w, "invalid path: "+err.Error(), http.StatusBadRequest)
		return
	}

	request := proto.Request{
		Method: method,
		Path:   p,
		Token:  middleware.BearerToken(r),
		Limits: parseLimits(r),
	}

	if method == proto.Put {
		if p.IsFolder() {
			http.Error(w, "cannot PUT a folder path", http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if len(body) > maxDocumentBytes {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		doc := item.NewDocument().WithContent(body).WithContentType(r.Header.Get("Content-Type"))
		request.Item = &doc
	}

	response := h.db.Perform(r.Context(), request)
	h.writeResponse(w, p.String(), response.Status)
}

func (h *StorageHandler) writeResponse(w http.ResponseWriter, requestPath string, status proto.ResponseStatus) {
	switch status.Kind {
	case proto.StatusPerformed:
		h.writePerformed(w, requestPath, status.Performed)
	case proto.StatusUnauthorized:
		http.Error(w, status.AccessError.Error(), http.StatusUnauthorized)
	case proto.StatusNoIfMatch:
		w.Header().Set("ETag", `"`+string(status.FoundEtag)+`"`)
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
	case proto.StatusIfNoneMatch:
		w.Header().Set("ETag", `"`+string(status.FoundEtag)+`"`)
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
	case proto.StatusContentNotChanged:
		w.WriteHeader(http.StatusNotModified)
	case proto.StatusNotSuitableForFolderItem, proto.StatusMissingRequestItem:
		http.Error(w, "bad request", http.StatusBadRequest)
	case proto.StatusInternalError:
		h.logger.Error("storage internal error", "error", status.ErrorMessage)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *StorageHandler) writePerformed(w http.ResponseWriter, requestPath string, engineResponse proto.EngineResponse) {
	switch engineResponse.Kind {
	case proto.EngineGetSuccessDocument:
		doc := engineResponse.Document
		if doc.Etag != nil {
			w.Header().Set("ETag", `"`+string(*doc.Etag)+`"`)
		}
		if doc.LastModified != nil {
			w.Header().Set("Last-Modified", doc.LastModified.String())
		}
		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
		w.WriteHeader(http.StatusOK)
		if doc.Content != nil {
			w.Write(doc.Content)
		}

	case proto.EngineGetSuccessFolder:
		if engineResponse.Folder.Etag != nil {
			w.Header().Set("ETag", `"`+string(*engineResponse.Folder.Etag)+`"`)
		}
		w.Header().Set("Content-Type", "application/ld+json")
		w.WriteHeader(http.StatusOK)
		writeFolderDescription(w, requestPath, engineResponse)

	case proto.EngineCreateSuccess:
		w.Header().Set("ETag", `"`+string(engineResponse.Etag)+`"`)
		w.Header().Set("Last-Modified", engineResponse.LastModified.String())
		w.WriteHeader(http.StatusCreated)

	case proto.EngineUpdateSuccess:
		w.Header().Set("ETag", `"`+string(engineResponse.Etag)+`"`)
		w.Header().Set("Last-Modified", engineResponse.LastModified.String())
		w.WriteHeader(http.StatusOK)

	case proto.EngineDeleteSuccess:
		w.WriteHeader(http.StatusOK)

	case proto.EngineNotFound:
		http.Error(w, "not found", http.StatusNotFound)

	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
