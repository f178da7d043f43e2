package httpapi

import (
	"net/http"

	"notevault.org/internal/auth"
	"notevault.org/internal/notes"
)

type noteRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type noteUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// requirePrincipal admits any authenticated, active principal.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if err := auth.Authorize(principal); err != nil {
		writeAuthError(w, r, err)
		return nil, false
	}
	return principal, true
}

func (a *API) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	note, err := a.notes.Create(r.Context(), principal.Identity.ID, req.Name, req.Description)
	if err != nil {
		writeNotesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"note": note})
}

func (a *API) handleListNotes(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	list, err := a.notes.List(r.Context(), principal.Identity.ID, r.URL.Query().Get("search"))
	if err != nil {
		writeNotesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

func (a *API) handleGetNote(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	note, err := a.notes.Get(r.Context(), principal.Identity.ID, r.PathValue("id"))
	if err != nil {
		writeNotesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

func (a *API) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req noteUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	note, err := a.notes.Update(r.Context(), principal.Identity.ID, r.PathValue("id"), notes.Update{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeNotesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

func (a *API) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.notes.Delete(r.Context(), principal.Identity.ID, r.PathValue("id")); err != nil {
		writeNotesError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin subtree handlers. Role enforcement happens at the mount point.

func (a *API) handleAdminListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.notes.ListAll(r.Context(), q.Get("owner_id"), q.Get("search"))
	if err != nil {
		writeNotesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

func (a *API) handlePurgeTokens(w http.ResponseWriter, r *http.Request) {
	n, err := a.auth.PurgeExpired(r.Context())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": n})
}
