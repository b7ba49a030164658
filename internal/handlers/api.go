// Package handlers provides the REST API handlers for the scrapbook
// service. Handlers stay thin: every read path consults the visibility
// policy before rendering, and mutations delegate to the repository and
// services.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ferntrail/scrapbook/internal/auth"
	"github.com/ferntrail/scrapbook/internal/config"
	"github.com/ferntrail/scrapbook/internal/db"
	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/logging"
	"github.com/ferntrail/scrapbook/internal/media"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/policy"
	"github.com/ferntrail/scrapbook/internal/sharing"
)

// API bundles the collaborators the handlers orchestrate.
type API struct {
	cfg    config.Config
	repo   *db.Repository
	auth   *auth.Service
	share  *sharing.Service
	images *media.Validator
	files  *media.Store
}

// New creates the API with its collaborators.
func New(cfg config.Config, repo *db.Repository, authSvc *auth.Service,
	shareSvc *sharing.Service, images *media.Validator, files *media.Store) *API {
	return &API{
		cfg:    cfg,
		repo:   repo,
		auth:   authSvc,
		share:  shareSvc,
		images: images,
		files:  files,
	}
}

// Routes builds the route table.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /accounts/login/", a.Login)
	mux.HandleFunc("POST /accounts/logout/", a.Logout)

	mux.HandleFunc("GET /scrapbooks", a.ListScrapbooks)
	mux.HandleFunc("POST /scrapbooks", a.requireLogin(a.CreateScrapbook))
	mux.HandleFunc("GET /scrapbooks/mine", a.requireLogin(a.MyScrapbooks))
	mux.HandleFunc("GET /scrapbooks/shared", a.requireLogin(a.SharedScrapbooks))
	mux.HandleFunc("GET /scrapbooks/{slug}", a.ScrapbookDetail)
	mux.HandleFunc("PUT /scrapbooks/{slug}", a.requireLogin(a.UpdateScrapbook))
	mux.HandleFunc("DELETE /scrapbooks/{slug}", a.requireLogin(a.DeleteScrapbook))

	mux.HandleFunc("GET /scrapbooks/{slug}/share", a.requireLogin(a.ShareForm))
	mux.HandleFunc("POST /scrapbooks/{slug}/share", a.requireLogin(a.SharePost))

	mux.HandleFunc("POST /scrapbooks/{slug}/posts", a.requireLogin(a.CreatePost))
	mux.HandleFunc("GET /scrapbooks/{slug}/posts/{postSlug}", a.PostDetail)
	mux.HandleFunc("PUT /scrapbooks/{slug}/posts/{id}", a.requireLogin(a.UpdatePost))
	mux.HandleFunc("DELETE /scrapbooks/{slug}/posts/{id}", a.requireLogin(a.DeletePost))

	return mux
}

// authedHandler is a handler that runs with a resolved, non-nil user.
type authedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// requireLogin resolves the session and redirects anonymous requests to
// the login page.
func (a *API) requireLogin(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.auth.CurrentUser(r)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		if user == nil {
			http.Redirect(w, r, auth.LoginURL, http.StatusFound)
			return
		}
		next(w, r, user)
	}
}

// currentUser resolves the session for routes that also serve anonymous
// visitors.
func (a *API) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := a.auth.CurrentUser(r)
	if err != nil {
		a.serverError(w, r, err)
		return nil, false
	}
	return user, true
}

// gate enforces a policy decision: anonymous denials redirect to login,
// authenticated denials get a 403 with the denial message.
func (a *API) gate(w http.ResponseWriter, r *http.Request, d policy.Decision) bool {
	if d.Allowed {
		return true
	}
	if d.LoginRequired {
		http.Redirect(w, r, auth.LoginURL, http.StatusFound)
		return false
	}
	writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": d.Message})
	return false
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFieldErrors reports field-level validation failures.
func writeFieldErrors(w http.ResponseWriter, errs []models.FieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

// writeError maps an application error to its response.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg := appMessage(err)
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "not found"})
	case apperrors.Is(err, apperrors.ErrPermission):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": msg})
	case apperrors.Is(err, apperrors.ErrDuplicateGrant):
		// form-level, not tied to a single field
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": msg})
	case apperrors.Is(err, apperrors.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": msg})
	case apperrors.Is(err, apperrors.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": msg})
	default:
		a.serverError(w, r, err)
	}
}

func appMessage(err error) string {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "request failed"
}

// serverError logs unexpected failures and hides details from the client.
func (a *API) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error("request failed", err, map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal server error"})
}

// page extracts the 1-based page number from the query string.
func (a *API) page(r *http.Request) (limit, offset, pageNum int) {
	pageNum, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if pageNum < 1 {
		pageNum = 1
	}
	limit = a.cfg.PageSize
	offset = (pageNum - 1) * limit
	return limit, offset, pageNum
}

// paginated is the standard list response envelope.
func paginated(items interface{}, total, pageNum, perPage int) map[string]interface{} {
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	return map[string]interface{}{
		"items":       items,
		"total":       total,
		"page":        pageNum,
		"per_page":    perPage,
		"total_pages": totalPages,
	}
}
