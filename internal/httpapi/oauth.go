package httpapi

import (
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"remotestorage/internal/storage/database"
)

// OauthHandler implements the implicit-grant consent flow: GET renders the
// form, POST authenticates the user and mints a token.
type OauthHandler struct {
	db         *database.Database
	tokens     *oauthFormTokenStore
	serverAddr string
	logger     *slog.Logger
}

// NewOauthHandler builds an OauthHandler. serverAddr is the scheme+host
// (and optional port) the server answers on, used to validate the Origin
// header on POST.
func NewOauthHandler(db *database.Database, serverAddr string, logger *slog.Logger) *OauthHandler {
	return &OauthHandler{db: db, tokens: newOauthFormTokenStore(), serverAddr: serverAddr, logger: logger}
}

var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Username}} : allow access?</title></head>
<body>
<h1>Allow access?</h1>
<p>The client: {{.ClientID}}</p>
<p>Requests the following scopes:</p>
<ul>{{range .Scopes}}<li>{{.}}</li>{{end}}</ul>
{{if .ErrorMessage}}<p class="error">{{.ErrorMessage}}</p>{{end}}
<form method="post" action="/oauth">
<input type="hidden" name="client_id" value="{{.ClientID}}">
<input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
<input type="hidden" name="response_type" value="{{.ResponseType}}">
<input type="hidden" name="scope" value="{{.Scope}}">
<input type="hidden" name="username" value="{{.Username}}">
<input type="hidden" name="allow" value="Allow">
<input type="hidden" name="form_token" value="{{.FormToken}}">
<p>Account: {{.Username}}<br>
Password: <input type="password" name="password" value=""></p>
<input type="submit" value="Allow">
</form>
</body>
</html>`))

type consentPage struct {
	Username     string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	Scopes       []string
	FormToken    string
	ErrorMessage string
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ServeGet renders the consent form at GET /oauth/{username}.
func (h *OauthHandler) ServeGet(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	query := r.URL.Query()
	scope := query.Get("scope")

	formToken, err := h.tokens.Issue(clientIP(r))
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := consentPage{
		Username:     username,
		ClientID:     query.Get("client_id"),
		RedirectURI:  query.Get("redirect_uri"),
		ResponseType: query.Get("response_type"),
		Scope:        scope,
		Scopes:       strings.Fields(scope),
		FormToken:    formToken,
	}

	switch query.Get("auth_result") {
	case "wrong_credentials":
		page.ErrorMessage = "Wrong credentials."
	case "security_issue":
		page.ErrorMessage = "There was a security issue, please try again."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := consentTemplate.Execute(w, page); err != nil {
		h.logger.Error("oauth consent render failed", "error", err)
	}
}

// ServePost handles the consent submission at POST /oauth/{username},
// validating the Origin header and form token before minting a token.
func (h *OauthHandler) ServePost(w http.ResponseWriter, r *http.Request) {
	if !h.originMatchesServer(r) {
		http.Error(w, "origin mismatch", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	scope := r.FormValue("scope")
	redirectURI := r.FormValue("redirect_uri")
	clientID := r.FormValue("client_id")
	responseType := r.FormValue("response_type")
	formToken := r.FormValue("form_token")

	consentURL := "/oauth/" + url.PathEscape(username) + "?" + url.Values{
		"redirect_uri":  {redirectURI},
		"scope":         {scope},
		"client_id":     {clientID},
		"response_type": {responseType},
	}.Encode()

	if !h.tokens.Consume(clientIP(r), formToken) {
		http.Redirect(w, r, consentURL+"&auth_result=security_issue", http.StatusFound)
		return
	}

	scopes := strings.Join(strings.Fields(scope), ",")
	token, err := h.db.GenerateToken(username, password, "oauth:"+clientID, scopes)
	if err != nil {
		http.Redirect(w, r, consentURL+"&auth_result=wrong_credentials", http.StatusFound)
		return
	}

	redirectTo := redirectURI + "#access_token=" + url.QueryEscape(token) + "&token_type=bearer"
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

func (h *OauthHandler) originMatchesServer(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.TrimSuffix(origin, "/") == strings.TrimSuffix(h.serverAddr, "/")
}
