package handlers

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"kanbanflow/internal/middleware"
	"kanbanflow/internal/response"
	"kanbanflow/internal/store"

	"github.com/gorilla/mux"
)

// MembershipHandler owns the join-request workflow and member listings,
// all organization-scoped.
type MembershipHandler struct {
	store store.Store
}

func NewMembershipHandler(s store.Store) *MembershipHandler {
	return &MembershipHandler{store: s}
}

// GetPendingRequests lists the organization's pending join requests with
// each requester's public profile.
func (h *MembershipHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	requests, err := h.store.ListPendingRequests(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error fetching pending requests for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching pending join requests")
		return
	}

	SendSuccess(w, http.StatusOK, "Pending join requests retrieved successfully", requests)
}

// ApproveJoinRequest transitions the request and its user to APPROVED as
// one unit. Approving an already-approved request is a no-op.
func (h *MembershipHandler) ApproveJoinRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID, err := strconv.Atoi(vars["requestId"])
	if err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	jr, err := h.store.ApproveJoinRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendError(w, http.StatusNotFound, "Join request not found")
			return
		}
		log.Printf("Error approving join request %d: %v", requestID, err)
		SendError(w, http.StatusInternalServerError, "Error approving join request")
		return
	}

	SendSuccess(w, http.StatusOK, fmt.Sprintf("Join request %d approved successfully", jr.ID), jr)
}

// ListMembers lists the organization's approved members with pagination.
func (h *MembershipHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	page := 1
	limit := 10
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			if parsed > 100 {
				limit = 100
			} else {
				limit = parsed
			}
		}
	}
	offset := (page - 1) * limit

	members, total, err := h.store.ListApprovedMembers(r.Context(), p.ID, limit, offset)
	if err != nil {
		log.Printf("Error fetching members for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error fetching organization members")
		return
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	meta := response.PaginationMeta{
		Page: page, PerPage: limit, Total: total, TotalPages: totalPages,
	}
	response.SendPaginatedSuccess(w, http.StatusOK, "Members retrieved successfully", members, meta)
}

// CountMembers returns the number of approved members in the organization.
func (h *MembershipHandler) CountMembers(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r)

	count, err := h.store.CountApprovedMembers(r.Context(), p.ID)
	if err != nil {
		log.Printf("Error counting members for organization %d: %v", p.ID, err)
		SendError(w, http.StatusInternalServerError, "Error counting organization members")
		return
	}

	SendSuccess(w, http.StatusOK, "Total approved members in organization", map[string]int{"totalMembers": count})
}
