package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"remotestorage/internal/storage/database"
	"remotestorage/internal/storage/engine/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*StorageHandler, string) {
	t.Helper()
	db, err := database.New(memory.New(), database.Settings{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateUser("alice", "hunter2hunter2"); err != nil {
		t.Fatal(err)
	}
	token, err := db.GenerateToken("alice", "hunter2hunter2", "test", "*:rw")
	if err != nil {
		t.Fatal(err)
	}
	return NewStorageHandler(db, testLogger()), token
}

func doRequest(h *StorageHandler, method, path, token, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle("/storage/{path...}", h)
	req := httptest.NewRequest(method, "/storage/"+path, stringReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func stringReader(s string) io.Reader {
	if s == "" {
		return nil
	}
	return &stringReaderImpl{s: s}
}

type stringReaderImpl struct {
	s string
	i int
}

func (r *stringReaderImpl) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}

func TestPutThenGetDocument(t *testing.T) {
	h, token := newTestHandler(t)

	putRec := doRequest(h, http.MethodPut, "notes/a.txt", token, "hello")
	if putRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", putRec.Code, putRec.Body.String())
	}

	getRec := doRequest(h, http.MethodGet, "notes/a.txt", token, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if getRec.Body.String() != "hello" {
		t.Fatalf("unexpected body %q", getRec.Body.String())
	}
}

func TestMissingTokenRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "notes/a.txt", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDeleteMissingDocumentReturnsNotFound(t *testing.T) {
	h, token := newTestHandler(t)
	rec := doRequest(h, http.MethodDelete, "missing.txt", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
