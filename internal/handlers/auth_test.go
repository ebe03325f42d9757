package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kanbanflow/internal/handlers"
)

func TestRegisterOrganization_Validation(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.doJSON(t, "POST", "/auth/register-organization", "", map[string]string{
		"name": "Acme", "email": "acme@co.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields: got status %d", rec.Code)
	}
	if env.Success {
		t.Error("missing fields: success should be false")
	}
}

func TestRegisterOrganization_Duplicates(t *testing.T) {
	e := newTestEnv(t)
	e.registerOrg(t, "Acme", "acme@co.com", "secret123")

	rec, _ := e.doJSON(t, "POST", "/auth/register-organization", "", map[string]string{
		"name": "Other", "email": "acme@co.com", "password": "pw", "description": "d",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email: got status %d", rec.Code)
	}

	rec, _ = e.doJSON(t, "POST", "/auth/register-organization", "", map[string]string{
		"name": "Acme", "email": "other@co.com", "password": "pw", "description": "d",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate name: got status %d", rec.Code)
	}
}

func TestRegisterUser_UnknownOrganization(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.doJSON(t, "POST", "/auth/register-user", "", map[string]string{
		"name": "Bo", "email": "bo@co.com", "password": "pw", "organization_name": "Nowhere",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown organization: got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUserJoinFlow(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")

	rec, _ := e.doJSON(t, "POST", "/auth/register-user", "", map[string]string{
		"name": "Bo", "email": "bo@co.com", "password": "hunter2", "organization_name": "Acme",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register user: got status %d, body %s", rec.Code, rec.Body.String())
	}

	// PENDING users cannot log in.
	rec, env := e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": "bo@co.com", "password": "hunter2",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending login: got status %d, want 403", rec.Code)
	}
	if !strings.Contains(env.Error, "not approved") {
		t.Errorf("pending login error: got %q", env.Error)
	}

	// Approval through the API unblocks login; helper asserts the full path.
	userID, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Cam", "cam@co.com", "hunter2")
	if userID == 0 || userToken == "" {
		t.Fatal("approved user login returned empty identity")
	}

	// The earlier user is still pending and still blocked.
	rec, _ = e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": "bo@co.com", "password": "hunter2",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("unapproved login after another approval: got status %d", rec.Code)
	}

	// Approved member appears in the member listing.
	rec, env = e.doJSON(t, "GET", "/api/organization/members/count", orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("count members: got status %d", rec.Code)
	}
	var count map[string]int
	decodeData(t, env, &count)
	if count["totalMembers"] != 1 {
		t.Errorf("totalMembers: got %d, want 1", count["totalMembers"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.registerOrg(t, "Acme", "acme@co.com", "secret123")

	rec, _ := e.doJSON(t, "POST", "/auth/login-organization", "", map[string]string{
		"email": "acme@co.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got status %d, want 401", rec.Code)
	}

	rec, _ = e.doJSON(t, "POST", "/auth/login-organization", "", map[string]string{
		"email": "nobody@co.com", "password": "secret123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: got status %d, want 401", rec.Code)
	}
}

func TestScopeEnforcement(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	_, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")

	// User tokens are rejected on organization routes.
	rec, _ := e.doJSON(t, "GET", "/api/organization/requests", userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user token on organization route: got status %d, want 403", rec.Code)
	}

	// Organization tokens are rejected on user routes.
	rec, _ = e.doJSON(t, "GET", "/api/user/tasks", orgToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("organization token on user route: got status %d, want 403", rec.Code)
	}

	// Missing token is rejected before scope is considered.
	rec, _ = e.doJSON(t, "GET", "/api/organization/requests", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got status %d, want 401", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	e := newTestEnv(t)
	e.registerOrg(t, "Acme", "acme@co.com", "secret123")

	// Log in directly to capture the cookies.
	rec, env := e.doJSON(t, "POST", "/auth/login-organization", "", map[string]string{
		"email": "acme@co.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d", rec.Code)
	}
	var login handlers.AuthResponse
	decodeData(t, env, &login)

	var refreshCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			refreshCookie = c
		}
	}
	if refreshCookie == nil {
		t.Fatal("login did not set refreshToken cookie")
	}

	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(refreshCookie)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: got status %d, body %s", rr.Code, rr.Body.String())
	}

	// Rotation blacklists the pre-rotation access token.
	rec, _ = e.doJSON(t, "GET", "/api/organization/members/count", login.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old access token after refresh: got status %d, want 401", rec.Code)
	}

	// Replaying the old refresh cookie fails.
	req = httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(refreshCookie)
	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh: got status %d, want 401", rr.Code)
	}
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")

	rec, _ := e.doJSON(t, "POST", "/api/logout", orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: got status %d", rec.Code)
	}

	rec, _ = e.doJSON(t, "GET", "/api/organization/members/count", orgToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("access token after logout: got status %d, want 401", rec.Code)
	}
}
