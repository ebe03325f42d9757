package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kanbanflow/internal/blob"
	"kanbanflow/internal/middleware"
	"kanbanflow/internal/models"
	"kanbanflow/internal/realtime"
	"kanbanflow/internal/store"

	"github.com/gorilla/mux"
)

// TaskHandler owns the task lifecycle, the status state machine and the
// per-scope status aggregates.
type TaskHandler struct {
	store       store.Store
	blobs       blob.Store
	broadcaster realtime.Broadcaster
}

func NewTaskHandler(s store.Store, blobs blob.Store, b realtime.Broadcaster) *TaskHandler {
	return &TaskHandler{store: s, blobs: blobs, broadcaster: b}
}

type createTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
	AssignedTo  string `json:"assigned_to"`
}

// CreateTask creates a task in the project. Accepts multipart/form-data
// (with an optional "file" attachment resolved through the blob store
// before the insert) or a plain JSON body.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var input createTaskInput
	var fileURL *string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			SendError(w, http.StatusBadRequest, "Invalid multipart body")
			return
		}
		input.Title = r.FormValue("title")
		input.Description = r.FormValue("description")
		input.Priority = r.FormValue("priority")
		input.Deadline = r.FormValue("deadline")
		input.AssignedTo = r.FormValue("assigned_to")

		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()
			url, err := h.blobs.Save(r.Context(), header.Filename, file)
			if err != nil {
				log.Printf("Error uploading attachment for project %d: %v", projectID, err)
				SendError(w, http.StatusInternalServerError, "Error uploading attachment")
				return
			}
			fileURL = &url
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			SendError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if input.Title == "" {
		SendError(w, http.StatusBadRequest, "title is required")
		return
	}
	if input.Priority != "" && !models.IsValidPriority(input.Priority) {
		SendError(w, http.StatusBadRequest, "Invalid priority value")
		return
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		ProjectID:   projectID,
		File:        fileURL,
	}
	if input.Deadline != "" {
		deadline, err := parseDeadline(input.Deadline)
		if err != nil {
			SendError(w, http.StatusBadRequest, "Invalid deadline, expected YYYY-MM-DD")
			return
		}
		task.Deadline = &deadline
	}
	if input.AssignedTo != "" {
		assignee, err := strconv.Atoi(input.AssignedTo)
		if err != nil {
			SendError(w, http.StatusBadRequest, "Invalid assigned_to value")
			return
		}
		task.AssignedTo = &assignee
	}

	if err := h.store.CreateTask(r.Context(), task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Project not found")
			return
		}
		log.Printf("Error creating task in project %d: %v", projectID, err)
		SendError(w, http.StatusInternalServerError, "Error creating task")
		return
	}

	h.broadcaster.Publish(r.Context(), task.ProjectID, realtime.Event{
		Type:    realtime.EventTaskCreated,
		Payload: task,
	})

	SendSuccess(w, http.StatusCreated, "Task created successfully", task)
}

func parseDeadline(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTaskStatus overwrites the task's status. All transitions between
// TODO, IN_PROGRESS and DONE are allowed; anything else is rejected before
// the task is touched.
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID, err := strconv.Atoi(vars["taskId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.IsValidTaskStatus(req.Status) {
		SendError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	task, err := h.store.UpdateTaskStatus(r.Context(), taskID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Task not found")
			return
		}
		log.Printf("Error updating status of task %d: %v", taskID, err)
		SendError(w, http.StatusInternalServerError, "Error updating task status")
		return
	}

	h.broadcaster.Publish(r.Context(), task.ProjectID, realtime.Event{
		Type:    realtime.EventTaskStatus,
		Payload: task,
	})

	SendSuccess(w, http.StatusOK, "Task status updated successfully", task)
}

// ListMyTasks returns the tasks assigned to the acting user, each joined
// with its owning project.
func (h *TaskHandler) ListMyTasks(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	tasks, err := h.store.ListUserTasks(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error fetching tasks for user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching tasks")
		return
	}
	if len(tasks) == 0 {
		SendSuccess(w, http.StatusOK, "Currently no task assigned to you", []models.UserTask{})
		return
	}

	SendSuccess(w, http.StatusOK, "Tasks fetched successfully", tasks)
}

// ProjectStatusCount returns {todo, inProgress, done} for one project.
func (h *TaskHandler) ProjectStatusCount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	counts, err := h.store.ProjectStatusCount(r.Context(), projectID)
	if err != nil {
		log.Printf("Error counting task statuses for project %d: %v", projectID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching task status counts")
		return
	}

	SendSuccess(w, http.StatusOK, "Task status counts fetched successfully", counts)
}

// OrganizationStatusCount returns {todo, inProgress, done} across all of
// the acting organization's projects.
func (h *TaskHandler) OrganizationStatusCount(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	counts, err := h.store.OrganizationStatusCount(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error counting task statuses for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching task status counts")
		return
	}

	SendSuccess(w, http.StatusOK, "Task status counts fetched successfully", counts)
}

// MyStatusCount returns {todo, inProgress, done} for the acting user's
// assigned tasks.
func (h *TaskHandler) MyStatusCount(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	counts, err := h.store.UserStatusCount(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error counting task statuses for user %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching task status counts")
		return
	}

	SendSuccess(w, http.StatusOK, "Task status counts fetched successfully", counts)
}
