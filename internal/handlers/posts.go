package handlers

import (
	"net/http"

	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/logging"
	"github.com/ferntrail/scrapbook/internal/markdown"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/policy"
)

// CreatePost creates a post inside a scrapbook. The author and anyone
// the scrapbook has been shared with may contribute; status defaults to
// draft.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request, user *models.User) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	allowed, err := policy.CanContribute(user, s, a.repo)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if !allowed {
		a.writeError(w, r, apperrors.New(apperrors.ErrPermission,
			"You do not have permission to add posts to this scrapbook."))
		return
	}
	if err := a.parseUpload(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed upload"})
		return
	}
	status, ferr := parseStatusField(r.FormValue("status"), models.StatusDraft)
	if ferr != nil {
		writeFieldErrors(w, []models.FieldError{*ferr})
		return
	}
	ref, ferr, err := a.saveImage(r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if ferr != nil {
		writeFieldErrors(w, []models.FieldError{*ferr})
		return
	}

	p := &models.Post{
		ScrapbookID: s.ID,
		AuthorID:    user.ID,
		Title:       r.FormValue("title"),
		Image:       ref,
		Content:     r.FormValue("content"),
		Status:      status,
	}
	p.Normalize()
	if errs := p.Validate(true); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if err := a.repo.CreatePost(p); err != nil {
		a.writeError(w, r, err)
		return
	}
	logging.Info("post created", map[string]interface{}{
		"post":      string(p.ID),
		"scrapbook": string(s.ID),
		"author":    string(user.ID),
	})
	writeJSON(w, http.StatusCreated, map[string]interface{}{"post": p})
}

// PostDetail serves a single post, addressed by scrapbook slug and post
// slug.
func (a *API) PostDetail(w http.ResponseWriter, r *http.Request) {
	p, err := a.repo.GetPostBySlugs(r.PathValue("slug"), r.PathValue("postSlug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	decision, err := policy.CanViewPost(user, p, a.repo)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if !a.gate(w, r, decision) {
		return
	}
	contentHTML, err := markdown.Render(p.Content)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"post":         p,
		"content_html": contentHTML,
	})
}

// UpdatePost edits a post. Only its author may edit it.
func (a *API) UpdatePost(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := a.repo.GetPostInScrapbook(models.UUID(r.PathValue("id")), r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if p.AuthorID != user.ID {
		a.writeError(w, r, apperrors.New(apperrors.ErrPermission,
			"only the author can edit this post"))
		return
	}
	if err := a.parseUpload(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed upload"})
		return
	}
	status, ferr := parseStatusField(r.FormValue("status"), p.Status)
	if ferr != nil {
		writeFieldErrors(w, []models.FieldError{*ferr})
		return
	}
	ref, ferr, err := a.saveImage(r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if ferr != nil {
		writeFieldErrors(w, []models.FieldError{*ferr})
		return
	}

	p.Title = r.FormValue("title")
	p.Content = r.FormValue("content")
	p.Status = status
	if ref != "" {
		p.Image = ref
	}
	p.Normalize()
	if errs := p.Validate(false); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if err := a.repo.UpdatePost(p); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"post": p})
}

// DeletePost removes a post and its per-post grants. Author only.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := a.repo.GetPostInScrapbook(models.UUID(r.PathValue("id")), r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if p.AuthorID != user.ID {
		a.writeError(w, r, apperrors.New(apperrors.ErrPermission,
			"only the author can delete this post"))
		return
	}
	if err := a.repo.DeletePost(p.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	logging.Info("post deleted", map[string]interface{}{
		"post":   string(p.ID),
		"author": string(user.ID),
	})
	w.WriteHeader(http.StatusNoContent)
}
