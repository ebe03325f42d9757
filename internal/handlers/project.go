package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"kanbanflow/internal/middleware"
	"kanbanflow/internal/models"
	"kanbanflow/internal/store"

	"github.com/gorilla/mux"
)

// ProjectHandler owns project creation and listings.
type ProjectHandler struct {
	store store.Store
}

func NewProjectHandler(s store.Store) *ProjectHandler {
	return &ProjectHandler{store: s}
}

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateProject creates a project owned by the acting organization.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		SendError(w, http.StatusBadRequest, "title is required")
		return
	}

	project := &models.Project{
		Title:          req.Title,
		Description:    req.Description,
		OrganizationID: p.ID,
	}
	if err := h.store.CreateProject(r.Context(), project); err != nil {
		log.Printf("Error creating project: %v", err)
		SendError(w, http.StatusInternalServerError, "Error creating project")
		return
	}

	SendSuccess(w, http.StatusCreated, "Project created successfully", project)
}

// ListProjects returns the organization's projects, newest first, with the
// total count.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	projects, err := h.store.ListProjects(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error fetching projects for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching projects")
		return
	}

	SendSuccess(w, http.StatusOK, "Projects retrieved successfully", map[string]interface{}{
		"count":    len(projects),
		"projects": projects,
	})
}

// ListProjectTasks returns the project's tasks, newest first, each with the
// assignee's id and name projected.
func (h *ProjectHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	tasks, err := h.store.ListProjectTasks(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Project not found")
			return
		}
		log.Printf("Error fetching tasks for project %d: %v", projectID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching project tasks")
		return
	}

	SendSuccess(w, http.StatusOK, "Tasks retrieved successfully for project", tasks)
}
