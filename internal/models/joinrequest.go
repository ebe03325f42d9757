package models

import "time"

// Join request statuses. REJECTED is part of the vocabulary but no
// endpoint currently performs that transition; PENDING -> APPROVED is the
// only reachable edge.
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

type JoinRequest struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"user_id" db:"user_id"`
	OrganizationID int       `json:"organization_id" db:"organization_id"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// PendingRequest is a join request joined with the requesting user's
// public profile, as listed for organization admins.
type PendingRequest struct {
	ID             int       `json:"id"`
	OrganizationID int       `json:"organization_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	User           struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Status string `json:"status"`
	} `json:"user"`
}
