package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"kanbanflow/internal/models"
	"kanbanflow/internal/realtime"
)

func TestProjectChat(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	_, userToken := e.registerApprovedUser(t, orgToken, "Acme", "Bo", "bo@co.com", "hunter2")
	projectID := e.createProject(t, orgToken, "Launch")
	messagesPath := fmt.Sprintf("/api/projects/%d/messages", projectID)

	rec, _ := e.doJSON(t, "POST", messagesPath, userToken, map[string]string{"body": "standup at ten"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: got status %d, body %s", rec.Code, rec.Body.String())
	}
	rec, _ = e.doJSON(t, "POST", messagesPath, orgToken, map[string]string{"body": "noted"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post second message: got status %d", rec.Code)
	}

	rec, env := e.doJSON(t, "GET", messagesPath, userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list messages: got status %d", rec.Code)
	}
	var messages []models.ProjectMessage
	decodeData(t, env, &messages)
	if len(messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(messages))
	}
	// Oldest first.
	if messages[0].Body != "standup at ten" || messages[1].Body != "noted" {
		t.Errorf("message order: got %q then %q", messages[0].Body, messages[1].Body)
	}
	if messages[0].Sender.Name != "Bo" {
		t.Errorf("sender projection: got %+v", messages[0].Sender)
	}

	types := e.bus.types()
	if len(types) != 2 || types[0] != realtime.EventChatMessage {
		t.Errorf("broadcast events: got %v", types)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	e := newTestEnv(t)
	orgToken := e.registerOrg(t, "Acme", "acme@co.com", "secret123")
	projectID := e.createProject(t, orgToken, "Launch")

	rec, _ := e.doJSON(t, "POST", fmt.Sprintf("/api/projects/%d/messages", projectID), orgToken, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: got status %d, want 400", rec.Code)
	}

	rec, _ = e.doJSON(t, "POST", "/api/projects/999/messages", orgToken, map[string]string{"body": "hello"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown project: got status %d, want 404", rec.Code)
	}
}
