package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"kanbanflow/internal/auth"
	"kanbanflow/internal/handlers"
	"kanbanflow/internal/realtime"
	"kanbanflow/internal/routes"
	"kanbanflow/internal/store"
)

// fakeBlobStore records saved attachments and hands back a stable URL.
type fakeBlobStore struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakeBlobStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, filename)
	return "http://files.test/uploads/" + filename, nil
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBroadcaster) Publish(ctx context.Context, projectID int, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	router http.Handler
	store  *store.Memory
	tokens *auth.Manager
	blobs  *fakeBlobStore
	bus    *recordingBroadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemory()
	tokens, err := auth.NewManager(auth.NewMemoryTokenStore())
	if err != nil {
		t.Fatalf("token manager init failed: %v", err)
	}
	blobs := &fakeBlobStore{}
	bus := &recordingBroadcaster{}

	router := routes.SetupRoutes(routes.Deps{
		Auth:       handlers.NewAuthHandler(st, tokens),
		Membership: handlers.NewMembershipHandler(st),
		Project:    handlers.NewProjectHandler(st),
		Task:       handlers.NewTaskHandler(st, blobs, bus),
		User:       handlers.NewUserHandler(st),
		Chat:       handlers.NewChatHandler(st, bus),
		Tokens:     tokens,
		UploadDir:  t.TempDir(),
	})

	return &testEnv{router: router, store: st, tokens: tokens, blobs: blobs, bus: bus}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// doJSON issues a request with an optional JSON body and bearer token and
// decodes the response envelope.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %s %s: %v (body %q)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}

// registerOrg registers and logs in an organization, returning its access
// token.
func (e *testEnv) registerOrg(t *testing.T, name, email, password string) string {
	t.Helper()

	rec, _ := e.doJSON(t, "POST", "/auth/register-organization", "", map[string]string{
		"name": name, "email": email, "password": password, "description": "test org",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register organization: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env := e.doJSON(t, "POST", "/auth/login-organization", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login organization: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp handlers.AuthResponse
	decodeData(t, env, &resp)
	return resp.AccessToken
}

// registerApprovedUser registers a user under the organization, approves the
// join request via the API and logs the user in, returning the user's id and
// access token.
func (e *testEnv) registerApprovedUser(t *testing.T, orgToken, orgName, name, email, password string) (int, string) {
	t.Helper()

	rec, _ := e.doJSON(t, "POST", "/auth/register-user", "", map[string]string{
		"name": name, "email": email, "password": password, "organization_name": orgName,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register user: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env := e.doJSON(t, "GET", "/api/organization/requests", orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list requests: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var pending []struct {
		ID   int `json:"id"`
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeData(t, env, &pending)

	requestID := 0
	for _, p := range pending {
		if p.User.Email == email {
			requestID = p.ID
		}
	}
	if requestID == 0 {
		t.Fatalf("no pending request found for %s", email)
	}

	rec, _ = e.doJSON(t, "PUT", fmt.Sprintf("/api/organization/requests/%d/approve", requestID), orgToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve request: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, env = e.doJSON(t, "POST", "/auth/login-user", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login user: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp handlers.AuthResponse
	decodeData(t, env, &resp)
	return resp.ID, resp.AccessToken
}

// createProject creates a project as the organization and returns its id.
func (e *testEnv) createProject(t *testing.T, orgToken, title string) int {
	t.Helper()

	rec, env := e.doJSON(t, "POST", "/api/organization/projects", orgToken, map[string]string{
		"title": title, "description": "test project",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var project struct {
		ID int `json:"id"`
	}
	decodeData(t, env, &project)
	return project.ID
}
