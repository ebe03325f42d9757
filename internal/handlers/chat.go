package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"kanbanflow/internal/middleware"
	"kanbanflow/internal/models"
	"kanbanflow/internal/realtime"
	"kanbanflow/internal/store"

	"github.com/gorilla/mux"
)

// ChatHandler owns project-scoped chat messages.
type ChatHandler struct {
	store       store.Store
	broadcaster realtime.Broadcaster
}

func NewChatHandler(s store.Store, b realtime.Broadcaster) *ChatHandler {
	return &ChatHandler{store: s, broadcaster: b}
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

// PostMessage persists a chat message in the project and publishes it to
// the project's channel.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Body == "" {
		SendError(w, http.StatusBadRequest, "body is required")
		return
	}

	msg := &models.Message{
		ProjectID: projectID,
		SenderID:  p.ID,
		Body:      req.Body,
	}
	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Project not found")
			return
		}
		log.Printf("Error saving message in project %d: %v", projectID, err)
		SendError(w, http.StatusInternalServerError, "Error sending message")
		return
	}

	h.broadcaster.Publish(r.Context(), projectID, realtime.Event{
		Type:    realtime.EventChatMessage,
		Payload: msg,
	})

	SendSuccess(w, http.StatusCreated, "Message sent successfully", msg)
}

// ListMessages returns the project's messages, oldest first, with each
// sender's id and name projected.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	messages, err := h.store.ListProjectMessages(r.Context(), projectID)
	if err != nil {
		log.Printf("Error fetching messages for project %d: %v", projectID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching messages")
		return
	}

	SendSuccess(w, http.StatusOK, "Messages retrieved successfully", messages)
}
