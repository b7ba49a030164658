package handlers

import (
	"net/http"

	"github.com/ferntrail/scrapbook/internal/db"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/policy"
)

// ShareForm serves the data the share form offers: candidate recipients
// and the scrapbook's shareable (non-draft) posts. Drafts stay out of
// the offering even though a scrapbook-level grant will cover them.
func (a *API) ShareForm(w http.ResponseWriter, r *http.Request, user *models.User) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
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
	recipients, err := a.share.Recipients(user.ID)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	posts, err := a.repo.ListPosts(s.ID, db.PostsNonDraft, -1, 0)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scrapbook":  s,
		"recipients": recipients,
		"posts":      posts,
	})
}

// SharePost grants a recipient access to the scrapbook and all of its
// current posts.
func (a *API) SharePost(w http.ResponseWriter, r *http.Request, user *models.User) {
	s, err := a.repo.GetScrapbookBySlug(r.PathValue("slug"))
	if err != nil {
		a.writeError(w, r, err)
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
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed form"})
		return
	}
	granteeID := models.UUID(r.PostFormValue("user_id"))
	if err := a.share.Share(s.ID, user.ID, granteeID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"shared_with": granteeID,
		"scrapbook":   s.Slug,
	})
}
