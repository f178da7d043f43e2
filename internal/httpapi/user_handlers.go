package httpapi

import (
	"net/http"

	"notevault.org/internal/audit"
	"notevault.org/internal/auth"
)

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// requireSelfOrAdmin admits the account owner and admins. It returns the
// principal on success and writes the error response otherwise.
func (a *API) requireSelfOrAdmin(w http.ResponseWriter, r *http.Request, id string) (*auth.Principal, bool) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if principal != nil && principal.Identity.ID == id {
		if err := auth.Authorize(principal); err != nil {
			writeAuthError(w, r, err)
			return nil, false
		}
		return principal, true
	}
	if err := auth.Authorize(principal, auth.RoleAdmin); err != nil {
		writeAuthError(w, r, err)
		return nil, false
	}
	return principal, true
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identities, err := a.auth.ListIdentities(r.Context())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": identities})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := a.requireSelfOrAdmin(w, r, id); !ok {
		return
	}
	identity, err := a.auth.GetIdentity(r.Context(), id)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := a.requireSelfOrAdmin(w, r, id); !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	identity, err := a.auth.UpdateIdentity(r.Context(), id, auth.IdentityUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.user.updated", map[string]any{
		"target_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	principal, ok := a.requireSelfOrAdmin(w, r, id)
	if !ok {
		return
	}
	if err := a.auth.DeactivateIdentity(r.Context(), id); err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = a.events.Publish(r.Context(), "user.deactivated", id, map[string]any{
		"subject_id": id,
		"actor_id":   principal.Identity.ID,
	})
	_ = audit.LogEvent(r.Context(), "auth.user.deactivated", map[string]any{
		"target_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	identity, err := a.auth.SetRole(r.Context(), id, role)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.user.role_changed", map[string]any{
		"target_id": id,
		"role":      string(role),
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}
