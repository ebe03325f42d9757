package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"kanbanflow/internal/auth"
	"kanbanflow/internal/middleware"
	"kanbanflow/internal/models"
	"kanbanflow/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// AuthHandler owns registration, login, token refresh and logout for both
// principal scopes.
type AuthHandler struct {
	store  store.Store
	tokens *auth.Manager
}

func NewAuthHandler(s store.Store, tokens *auth.Manager) *AuthHandler {
	return &AuthHandler{store: s, tokens: tokens}
}

type RegisterOrgRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Description string `json:"description"`
}

type RegisterUserRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Scope       string `json:"scope"`
	AccessToken string `json:"access_token"`
}

func setAuthCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
			Path:     "/",
			MaxAge:   -1,
		})
	}
}

// RegisterOrganization creates a new tenant root.
func (h *AuthHandler) RegisterOrganization(w http.ResponseWriter, r *http.Request) {
	var req RegisterOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Description == "" {
		SendError(w, http.StatusBadRequest, "name, email, password and description are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	org := &models.Organization{
		Name:        req.Name,
		Email:       req.Email,
		Description: req.Description,
		Password:    string(hashed),
	}
	if err := h.store.CreateOrganization(r.Context(), org); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			SendError(w, http.StatusConflict, "Organization with this email already exists")
			return
		}
		if errors.Is(err, store.ErrDuplicateName) {
			SendError(w, http.StatusConflict, "Organization with this name already exists")
			return
		}
		log.Printf("Error creating organization: %v", err)
		SendError(w, http.StatusInternalServerError, "Error creating organization")
		return
	}

	SendSuccess(w, http.StatusCreated, "Organization registered successfully", org)
}

// RegisterUser creates a PENDING user together with its join request; the
// two rows commit as one unit.
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.OrganizationName == "" {
		SendError(w, http.StatusBadRequest, "name, email, password and organization_name are required")
		return
	}

	org, err := h.store.GetOrganizationByName(r.Context(), req.OrganizationName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Organization with this name does not exist")
			return
		}
		log.Printf("Error looking up organization %q: %v", req.OrganizationName, err)
		SendError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := &models.User{
		Name:           req.Name,
		Email:          req.Email,
		Password:       string(hashed),
		OrganizationID: org.ID,
	}
	if _, err := h.store.RegisterUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			SendError(w, http.StatusConflict, "User with this email already exists")
			return
		}
		log.Printf("Error registering user: %v", err)
		SendError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	SendSuccess(w, http.StatusCreated, "User registered successfully, pending organization approval", user)
}

// LoginOrganization authenticates an organization and issues a token pair.
func (h *AuthHandler) LoginOrganization(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		SendError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	org, err := h.store.GetOrganizationByEmail(r.Context(), req.Email)
	if err != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(org.Password), []byte(req.Password)) != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	pair, err := h.tokens.Issue(r.Context(), auth.Principal{ID: org.ID, Scope: auth.ScopeOrganization})
	if err != nil {
		log.Printf("Error generating tokens for organization %d: %v", org.ID, err)
		SendError(w, http.StatusInternalServerError, "Error generating tokens")
		return
	}
	setAuthCookies(w, pair)

	SendSuccess(w, http.StatusOK, "Organization logged in successfully", AuthResponse{
		ID:          org.ID,
		Name:        org.Name,
		Email:       org.Email,
		Scope:       auth.ScopeOrganization,
		AccessToken: pair.AccessToken,
	})
}

// LoginUser authenticates a user. PENDING users are rejected: membership
// rights start only after approval.
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		SendError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.Status != models.UserApproved {
		SendError(w, http.StatusForbidden, "Your account is not approved by the organization yet")
		return
	}

	pair, err := h.tokens.Issue(r.Context(), auth.Principal{ID: user.ID, Scope: auth.ScopeUser})
	if err != nil {
		log.Printf("Error generating tokens for user %d: %v", user.ID, err)
		SendError(w, http.StatusInternalServerError, "Error generating tokens")
		return
	}
	setAuthCookies(w, pair)

	SendSuccess(w, http.StatusOK, "User logged in successfully", AuthResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Scope:       auth.ScopeUser,
		AccessToken: pair.AccessToken,
	})
}

// Refresh rotates the refresh token from the refreshToken cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refreshToken")
	if err != nil {
		SendError(w, http.StatusUnauthorized, "No refresh token")
		return
	}

	pair, err := h.tokens.Refresh(r.Context(), cookie.Value)
	if err != nil {
		SendError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	setAuthCookies(w, pair)

	SendSuccess(w, http.StatusOK, "Token refreshed successfully", map[string]string{"access_token": pair.AccessToken})
}

// Logout revokes the presented tokens and clears the cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString := ""
	if cookie, err := r.Cookie("accessToken"); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString != "" {
		h.tokens.RevokeAccess(r.Context(), tokenString)
	}
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		h.tokens.RevokeRefresh(r.Context(), cookie.Value)
	}

	clearAuthCookies(w)

	if p, ok := middleware.GetPrincipal(r); ok {
		SendSuccess(w, http.StatusOK, "Logged out successfully", map[string]interface{}{"id": p.ID, "scope": p.Scope})
		return
	}
	SendSuccessNoData(w, http.StatusOK, "Logged out successfully")
}
