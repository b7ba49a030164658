package handlers

import (
	"net/http"
)

// Login authenticates a user from form credentials and opens a session.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed form"})
		return
	}
	user, err := a.auth.Login(w, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Logout closes the current session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(w, r); err != nil {
		a.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/scrapbooks", http.StatusFound)
}
