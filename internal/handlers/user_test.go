package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"kanbanflow/internal/models"
)

func TestUserProfile(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	userID, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")

	rec, env := e.doJSON(t, "GET", "/api/user/profile", userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile: got status %d", rec.Code)
	}
	var user models.User
	decodeData(t, env, &user)
	if user.ID != userID || user.Email != "bo@co.com" {
		t.Errorf("profile: got %+v", user)
	}

	// Partial update keeps the untouched field.
	rec, env = e.doJSON(t, "PATCH", "/api/user/profile", userToken, map[string]string{"name": "Bobby"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: got status %d, body %s", rec.Code, rec.Body.String())
	}
	decodeData(t, env, &user)
	if user.Name != "Bobby" || user.Email != "bo@co.com" {
		t.Errorf("profile after partial update: got %+v", user)
	}

	rec, _ = e.doJSON(t, "PATCH", "/api/user/profile", userToken, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch: got status %d, want 400", rec.Code)
	}
}

func TestUpdateUserProfile_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")
	_, camToken := e.registerApprovedUser(t, orgToken, "Acme", "Cam", "cam@co.com", "hunter2")

	rec, _ := e.doJSON(t, "PATCH", "/api/user/profile", camToken, map[string]string{"email": "bo@co.com"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email: got status %d, want 409", rec.Code)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	_, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")

	rec, _ := e.doJSON(t, "PATCH", "/api/user/password", userToken, map[string]string{
		"old_password": "wrong", "new_password": "newpass1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong old password: got status %d, want 401", rec.Code)
	}

	rec, _ = e.doJSON(t, "PATCH", "/api/user/password", userToken, map[string]string{
		"old_password": "hunter2", "new_password": "newpass1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update password: got status %d, body %s", rec.Code, rec.Body.String())
	}

	// Only the new password logs in.
	rec, _ = e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": "bo@co.com", "password": "hunter2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password login: got status %d, want 401", rec.Code)
	}
	rec, _ = e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": "bo@co.com", "password": "newpass1",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("new password login: got status %d, want 200", rec.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	userID, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")
	projectID := e.createProject(t, orgToken, "Launch")

	rec, _ := e.doJSON(t, "POST", fmt.Sprintf("/api/organization/projects/%d/tasks", projectID), orgToken, map[string]string{
		"title": "t", "assigned_to": fmt.Sprintf("%d", userID),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: got status %d", rec.Code)
	}

	rec, _ = e.doJSON(t, "DELETE", "/api/user/account", userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": "bo@co.com", "password": "hunter2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login after deletion: got status %d, want 401", rec.Code)
	}

	// The task survives, detached from the deleted user.
	rec, env := e.doJSON(t, "GET", fmt.Sprintf("/api/projects/%d/tasks", projectID), orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list project tasks: got status %d", rec.Code)
	}
	var board []models.ProjectTask
	decodeData(t, env, &board)
	if len(board) != 1 {
		t.Fatalf("tasks after deletion: got %d, want 1", len(board))
	}
	if board[0].AssignedTo != nil || board[0].Assignee != nil {
		t.Errorf("task still assigned after account deletion: %+v", board[0])
	}
}

func TestOrganizationProfile(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")
	e.createProject(t, orgToken, "Launch")

	rec, env := e.doJSON(t, "GET", "/api/organization/profile", orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get organization profile: got status %d", rec.Code)
	}
	var detail models.OrganizationDetail
	decodeData(t, env, &detail)
	if detail.Name != "Acme" {
		t.Errorf("organization name: got %q", detail.Name)
	}
	if len(detail.Users) != 1 || len(detail.Projects) != 1 {
		t.Errorf("embedded collections: %d users, %d projects", len(detail.Users), len(detail.Projects))
	}

	rec, env = e.doJSON(t, "PATCH", "/api/organization/profile", orgToken, map[string]string{"name": "Acme Corp"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update organization: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var org models.Organization
	decodeData(t, env, &org)
	if org.Name != "Acme Corp" || org.Email != "acme@co.com" {
		t.Errorf("organization after partial update: got %+v", org)
	}
}
