package handlers

import (
	"net/http"
	"strconv"

	"github.com/ferntrail/scrapbook/internal/db"
	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/logging"
	"github.com/ferntrail/scrapbook/internal/markdown"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/policy"
)

// scrapbookItem is a list entry with its visible post count.
type scrapbookItem struct {
	*models.Scrapbook
	PostCount int `json:"post_count"`
}

// parseStatusField reads an optional numeric status form field.
func parseStatusField(raw string, fallback models.Status) (models.Status, *models.FieldError) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.FieldError{Field: "status", Message: "status must be a number"}
	}
	status, err := models.ParseStatus(v)
	if err != nil {
		return 0, &models.FieldError{Field: "status", Message: err.Error()}
	}
	return status, nil
}

// saveImage validates and stores an uploaded image, returning its
// content-addressed reference. A missing file yields an empty reference
// and no error so callers decide whether the field is required.
func (a *API) saveImage(r *http.Request) (string, *models.FieldError, error) {
	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return "", nil, nil
	}
	if err != nil {
		return "", &models.FieldError{Field: "image", Message: "image upload is malformed"}, nil
	}
	defer file.Close()

	data, ext, err := a.images.Validate(file)
	if err != nil {
		return "", &models.FieldError{Field: "image", Message: err.Error()}, nil
	}
	ref, err := a.files.Save(data, ext)
	if err != nil {
		return "", nil, err
	}
	return ref, nil, nil
}

func (a *API) parseUpload(r *http.Request) error {
	// form file plus a little room for text fields
	return r.ParseMultipartForm(a.images.MaxBytes() + 1<<20)
}

// ListScrapbooks serves the public gallery: every public scrapbook,
// newest first, with its public post count.
func (a *API) ListScrapbooks(w http.ResponseWriter, r *http.Request) {
	limit, offset, pageNum := a.page(r)
	books, err := a.repo.ListPublicScrapbooks(limit, offset)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	total, err := a.repo.CountPublicScrapbooks()
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	items, err := a.withPostCounts(books, db.PostsPublicOnly)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(items, total, pageNum, limit))
}

// MyScrapbooks lists the requester's own scrapbooks, drafts included.
func (a *API) MyScrapbooks(w http.ResponseWriter, r *http.Request, user *models.User) {
	limit, offset, pageNum := a.page(r)
	books, err := a.repo.ListScrapbooksByAuthor(user.ID, limit, offset)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	total, err := a.repo.CountScrapbooksByAuthor(user.ID)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	items, err := a.withPostCounts(books, db.PostsAll)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(items, total, pageNum, limit))
}

// SharedScrapbooks lists scrapbooks other users have shared with the
// requester.
func (a *API) SharedScrapbooks(w http.ResponseWriter, r *http.Request, user *models.User) {
	limit, offset, pageNum := a.page(r)
	books, err := a.repo.ListSharedScrapbooks(user.ID, limit, offset)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	total, err := a.repo.CountSharedScrapbooks(user.ID)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	items, err := a.withPostCounts(books, db.PostsNonDraft)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(items, total, pageNum, limit))
}

func (a *API) withPostCounts(books []*models.Scrapbook, filter db.PostFilter) ([]scrapbookItem, error) {
	items := make([]scrapbookItem, 0, len(books))
	for _, b := range books {
		n, err := a.repo.CountPosts(b.ID, filter)
		if err != nil {
			return nil, err
		}
		items = append(items, scrapbookItem{Scrapbook: b, PostCount: n})
	}
	return items, nil
}

// CreateScrapbook creates a scrapbook owned by the requester. The cover
// image is required; status defaults to private.
func (a *API) CreateScrapbook(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.parseUpload(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed upload"})
		return
	}
	status, ferr := parseStatusField(r.FormValue("status"), models.StatusPrivate)
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

	s := &models.Scrapbook{
		Title:       r.FormValue("title"),
		Image:       ref,
		Content:     r.FormValue("content"),
		Description: r.FormValue("description"),
		Status:      status,
		AuthorID:    user.ID,
	}
	s.Normalize()
	if errs := s.Validate(true); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if err := a.repo.CreateScrapbook(s); err != nil {
		a.writeError(w, r, err)
		return
	}
	logging.Info("scrapbook created", map[string]interface{}{
		"scrapbook": string(s.ID),
		"slug":      s.Slug,
		"author":    string(user.ID),
	})
	writeJSON(w, http.StatusCreated, map[string]interface{}{"scrapbook": s})
}

// ScrapbookDetail serves one scrapbook with its posts. Which posts are
// listed depends on who is asking: the author sees everything, grant
// holders see everything but drafts, everyone else sees public posts.
func (a *API) ScrapbookDetail(w http.ResponseWriter, r *http.Request) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	decision, err := policy.CanViewScrapbook(user, s, a.repo)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	if !a.gate(w, r, decision) {
		return
	}

	filter := db.PostsPublicOnly
	shared := false
	if user != nil {
		if user.ID == s.AuthorID {
			filter = db.PostsAll
		} else {
			shared, err = a.repo.HasScrapbookGrant(user.ID, s.ID)
			if err != nil {
				a.serverError(w, r, err)
				return
			}
			if shared {
				filter = db.PostsNonDraft
			}
		}
	}

	limit, offset, pageNum := a.page(r)
	posts, err := a.repo.ListPosts(s.ID, filter, limit, offset)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	total, err := a.repo.CountPosts(s.ID, filter)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	contentHTML, err := markdown.Render(s.Content)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scrapbook":    s,
		"content_html": contentHTML,
		"shared":       shared,
		"posts":        paginated(posts, total, pageNum, limit),
	})
}

// UpdateScrapbook edits a scrapbook. Only the author may edit; the slug
// never changes after creation.
func (a *API) UpdateScrapbook(w http.ResponseWriter, r *http.Request, user *models.User) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if s.AuthorID != user.ID {
		a.writeError(w, r, apperrors.New(apperrors.ErrPermission,
			"only the author can edit this scrapbook"))
		return
	}
	if err := a.parseUpload(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed upload"})
		return
	}
	status, ferr := parseStatusField(r.FormValue("status"), s.Status)
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

	s.Title = r.FormValue("title")
	s.Content = r.FormValue("content")
	s.Description = r.FormValue("description")
	s.Status = status
	if ref != "" {
		s.Image = ref
	}
	s.Normalize()
	if errs := s.Validate(false); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if err := a.repo.UpdateScrapbook(s); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scrapbook": s})
}

// DeleteScrapbook removes a scrapbook with its posts and grants. Author
// only.
func (a *API) DeleteScrapbook(w http.ResponseWriter, r *http.Request, user *models.User) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if s.AuthorID != user.ID {
		a.writeError(w, r, apperrors.New(apperrors.ErrPermission,
			"only the author can delete this scrapbook"))
		return
	}
	if err := a.repo.DeleteScrapbook(s.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	logging.Info("scrapbook deleted", map[string]interface{}{
		"scrapbook": string(s.ID),
		"author":    string(user.ID),
	})
	w.WriteHeader(http.StatusNoContent)
}
