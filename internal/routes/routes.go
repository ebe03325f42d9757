package routes

import (
	"net/http"

	"kanbanflow/internal/auth"
	"kanbanflow/internal/handlers"
	"kanbanflow/internal/middleware"

	"github.com/gorilla/mux"
)

// Deps are the constructed handlers and the token manager the router wires
// together.
type Deps struct {
	Auth       *handlers.AuthHandler
	Membership *handlers.MembershipHandler
	Project    *handlers.ProjectHandler
	Task       *handlers.TaskHandler
	User       *handlers.UserHandler
	Chat       *handlers.ChatHandler
	Tokens     *auth.Manager
	UploadDir  string
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.Health).Methods("GET")

	// Auth routes (public)
	r.HandleFunc("/auth/register-organization", d.Auth.RegisterOrganization).Methods("POST")
	r.HandleFunc("/auth/login-organization", d.Auth.LoginOrganization).Methods("POST")
	r.HandleFunc("/auth/register-user", d.Auth.RegisterUser).Methods("POST")
	r.HandleFunc("/auth/login-user", d.Auth.LoginUser).Methods("POST")
	r.HandleFunc("/auth/refresh", d.Auth.Refresh).Methods("POST")

	// Uploaded task attachments
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))

	// Protected routes (access token via cookie or Authorization header)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate(d.Tokens))

	api.HandleFunc("/logout", d.Auth.Logout).Methods("POST")

	// Any authenticated principal
	api.HandleFunc("/projects/{projectId}/tasks", d.Project.ListProjectTasks).Methods("GET")
	api.HandleFunc("/projects/{projectId}/status-count", d.Task.ProjectStatusCount).Methods("GET")
	api.HandleFunc("/projects/{projectId}/messages", d.Chat.PostMessage).Methods("POST")
	api.HandleFunc("/projects/{projectId}/messages", d.Chat.ListMessages).Methods("GET")
	api.HandleFunc("/tasks/{taskId}/status", d.Task.UpdateTaskStatus).Methods("PATCH")

	// Organization scope
	org := api.PathPrefix("/organization").Subrouter()
	org.Use(middleware.RequireScope(auth.ScopeOrganization))
	org.HandleFunc("/requests", d.Membership.GetPendingRequests).Methods("GET")
	org.HandleFunc("/requests/{requestId}/approve", d.Membership.ApproveJoinRequest).Methods("PUT")
	org.HandleFunc("/members", d.Membership.ListMembers).Methods("GET")
	org.HandleFunc("/members/count", d.Membership.CountMembers).Methods("GET")
	org.HandleFunc("/projects", d.Project.CreateProject).Methods("POST")
	org.HandleFunc("/projects", d.Project.ListProjects).Methods("GET")
	org.HandleFunc("/projects/{projectId}/tasks", d.Task.CreateTask).Methods("POST")
	org.HandleFunc("/tasks/status-count", d.Task.OrganizationStatusCount).Methods("GET")
	org.HandleFunc("/profile", d.User.CurrentOrganization).Methods("GET")
	org.HandleFunc("/profile", d.User.UpdateOrganization).Methods("PATCH")
	org.HandleFunc("/password", d.User.UpdateOrganizationPassword).Methods("PATCH")

	// User scope
	user := api.PathPrefix("/user").Subrouter()
	user.Use(middleware.RequireScope(auth.ScopeUser))
	user.HandleFunc("/tasks", d.Task.ListMyTasks).Methods("GET")
	user.HandleFunc("/tasks/status-count", d.Task.MyStatusCount).Methods("GET")
	user.HandleFunc("/profile", d.User.CurrentUser).Methods("GET")
	user.HandleFunc("/profile", d.User.UpdateUser).Methods("PATCH")
	user.HandleFunc("/password", d.User.UpdatePassword).Methods("PATCH")
	user.HandleFunc("/account", d.User.DeleteAccount).Methods("DELETE")

	return r
}
