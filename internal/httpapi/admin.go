package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"remotestorage/internal/auth"
	"remotestorage/internal/config"
	"remotestorage/internal/httputil"
	"remotestorage/internal/middleware"
	"remotestorage/internal/storage/database"
)

// AdminHandler implements the supplemented JSON admin API: login, and
// remoteStorage user/token management.
type AdminHandler struct {
	db       *database.Database
	settings config.Settings
	issuer   auth.SessionIssuer
	logger   *slog.Logger
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(db *database.Database, settings config.Settings, issuer auth.SessionIssuer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, settings: settings, issuer: issuer, logger: logger}
}

// Routes registers the admin API on mux, wrapping every route but login in
// AdminSession.
func (h *AdminHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/login", h.login)

	protected := middleware.AdminSession(h.issuer)
	mux.Handle("POST /admin/users", protected(http.HandlerFunc(h.createUser)))
	mux.Handle("DELETE /admin/users/{username}", protected(http.HandlerFunc(h.removeUser)))
	mux.Handle("POST /admin/users/{username}/tokens", protected(http.HandlerFunc(h.generateToken)))
	mux.Handle("GET /admin/users", protected(http.HandlerFunc(h.listUsers)))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.settings.CheckAdminPassword(req.Username, req.Password) {
		httputil.RespondProblem(w, http.StatusUnauthorized, httputil.ProblemInvalidCredentials, "invalid admin credentials")
		return
	}

	token, err := h.issuer.IssueToken(req.Username)
	if err != nil {
		h.logger.Error("admin session issue failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.CreateUser(req.Username, req.Password); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (h *AdminHandler) removeUser(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.RemoveUser(username, req.Password); err != nil {
		var authErr *database.AuthenticateError
		if errors.As(err, &authErr) && authErr.Kind == database.WrongPassword {
			httputil.RespondProblem(w, http.StatusUnauthorized, httputil.ProblemWrongPassword, "wrong password")
			return
		}
		httputil.RespondProblem(w, http.StatusNotFound, httputil.ProblemUserNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type generateTokenRequest struct {
	Password    string `json:"password"`
	Description string `json:"description"`
	Scope       string `json:"scope"`
}

func (h *AdminHandler) generateToken(w http.ResponseWriter, r *http.Request) {
	username, ok := pathParam(w, r, "username")
	if !ok {
		return
	}

	var req generateTokenRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.db.GenerateToken(username, req.Password, req.Description, req.Scope)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string][]string{"usernames": h.db.ListUsernames()})
}

// pathParam extracts a required path parameter, writing a 400 RFC7807
// problem response naming the missing field if absent.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, name+" is required", map[string]interface{}{"missing_field": name})
		return "", false
	}
	return value, true
}
