package handlers

import (
	"net/http"

	"kanbanflow/internal/response"
)

// Health returns API health status for FE/load balancer checks.
func Health(w http.ResponseWriter, r *http.Request) {
	response.SendSuccess(w, http.StatusOK, "ok", map[string]string{"status": "up"})
}
