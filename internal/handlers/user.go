package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"kanbanflow/internal/middleware"
	"kanbanflow/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// UserHandler owns profile, password and account operations for both
// scopes.
type UserHandler struct {
	store store.Store
}

func NewUserHandler(s store.Store) *UserHandler {
	return &UserHandler{store: s}
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// CurrentUser returns the acting user's profile.
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error fetching user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching user")
		return
	}

	SendSuccess(w, http.StatusOK, "Current user", user)
}

// UpdateUser patches the acting user's name and/or email.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" && req.Email == "" {
		SendError(w, http.StatusBadRequest, "At least one field (name or email) is required")
		return
	}

	current, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil {
		SendError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Name == "" {
		req.Name = current.Name
	}
	if req.Email == "" {
		req.Email = current.Email
	}

	user, err := h.store.UpdateUserProfile(r.Context(), p.ID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			SendError(w, http.StatusConflict, "Email already exists")
			return
		}
		log.Printf("Error updating user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error updating user")
		return
	}

	SendSuccess(w, http.StatusOK, "User updated successfully", user)
}

// UpdatePassword verifies the old password and stores a new hash.
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		SendError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil {
		SendError(w, http.StatusNotFound, "User not found")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
		SendError(w, http.StatusUnauthorized, "Old password is wrong")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), p.ID, string(hashed)); err != nil {
		log.Printf("Error updating password for user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error updating password")
		return
	}

	SendSuccessNoData(w, http.StatusOK, "Password updated successfully")
}

// DeleteAccount permanently deletes the acting user. Assigned tasks are
// detached (not deleted) and the user's join requests are removed, all in
// one unit.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	if err := h.store.DeleteUser(r.Context(), p.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Error deleting user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	clearAuthCookies(w)
	SendSuccessNoData(w, http.StatusOK, "User account permanently deleted")
}

// CurrentOrganization returns the acting organization's profile with its
// users and projects embedded.
func (h *UserHandler) CurrentOrganization(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	detail, err := h.store.GetOrganizationDetail(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Organization not found")
			return
		}
		log.Printf("Error fetching organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching organization")
		return
	}

	SendSuccess(w, http.StatusOK, "Current organization", detail)
}

// UpdateOrganization patches the acting organization's name and/or email.
func (h *UserHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" && req.Email == "" {
		SendError(w, http.StatusBadRequest, "At least one field (name or email) is required")
		return
	}

	current, err := h.store.GetOrganizationByID(r.Context(), p.ID)
	if err != nil {
		SendError(w, http.StatusNotFound, "Organization not found")
		return
	}
	if req.Name == "" {
		req.Name = current.Name
	}
	if req.Email == "" {
		req.Email = current.Email
	}

	org, err := h.store.UpdateOrganizationProfile(r.Context(), p.ID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			SendError(w, http.StatusConflict, "Email already exists")
			return
		}
		if errors.Is(err, store.ErrDuplicateName) {
			SendError(w, http.StatusConflict, "Name already exists")
			return
		}
		log.Printf("Error updating organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error updating organization")
		return
	}

	SendSuccess(w, http.StatusOK, "Organization updated successfully", org)
}

// UpdateOrganizationPassword verifies the old password and stores a new
// hash for the acting organization.
func (h *UserHandler) UpdateOrganizationPassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		SendError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}

	org, err := h.store.GetOrganizationByID(r.Context(), p.ID)
	if err != nil {
		SendError(w, http.StatusNotFound, "Organization not found")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(org.Password), []byte(req.OldPassword)) != nil {
		SendError(w, http.StatusUnauthorized, "Old password is wrong")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	if err := h.store.UpdateOrganizationPassword(r.Context(), p.ID, string(hashed)); err != nil {
		log.Printf("Error updating password for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error updating password")
		return
	}

	SendSuccessNoData(w, http.StatusOK, "Password updated successfully")
}
