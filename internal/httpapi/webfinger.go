package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WebfingerHandler serves GET /.well-known/webfinger?resource=acct:<user>@<domain>,
// advertising the storage root and OAuth endpoint per the remoteStorage
// discovery convention.
type WebfingerHandler struct {
	serverAddr string // e.g. "https://example.com/"
}

// NewWebfingerHandler builds a WebfingerHandler that advertises links
// rooted at serverAddr, which must end in "/".
func NewWebfingerHandler(serverAddr string) *WebfingerHandler {
	if !strings.HasSuffix(serverAddr, "/") {
		serverAddr += "/"
	}
	return &WebfingerHandler{serverAddr: serverAddr}
}

type webfingerLink struct {
	Href       string         `json:"href"`
	Rel        string         `json:"rel"`
	Properties map[string]any `json:"properties"`
}

type webfingerBody struct {
	Links []webfingerLink `json:"links"`
}

const remoteStorageRel = "http://tools.ietf.org/id/draft-dejong-remotestorage"

func (h *WebfingerHandler) defaultBody() webfingerBody {
	return webfingerBody{Links: []webfingerLink{{
		Href: h.serverAddr,
		Rel:  remoteStorageRel,
		Properties: map[string]any{
			"http://remotestorage.io/spec/version": "draft-dejong-remotestorage-21",
		},
	}}}
}

func (h *WebfingerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, r)
	w.Header().Set("Content-Type", "application/ld+json")

	resource := r.URL.Query().Get("resource")
	user, ok := parseAcctResource(resource)
	if !ok {
		json.NewEncoder(w).Encode(h.defaultBody())
		return
	}

	body := webfingerBody{Links: []webfingerLink{{
		Href: h.serverAddr + "storage",
		Rel:  remoteStorageRel,
		Properties: map[string]any{
			"http://remotestorage.io/spec/version":                      "draft-dejong-remotestorage-21",
			"http://tools.ietf.org/html/rfc6749#section-4.2":            h.serverAddr + "oauth/" + user,
			"http://tools.ietf.org/html/rfc6750#section-2.3":            nil,
			"http://tools.ietf.org/html/rfc7233":                        nil,
			"http://remotestorage.io/spec/web-authoring":                nil,
		},
	}}}
	json.NewEncoder(w).Encode(body)
}

func parseAcctResource(resource string) (user string, ok bool) {
	const prefix = "acct:"
	if !strings.HasPrefix(resource, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(resource, prefix)
	parts := strings.SplitN(rest, "@", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
