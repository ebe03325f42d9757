package models

import "time"

// User membership statuses. A user starts PENDING and gains operational
// rights only once an organization admin approves the join request.
const (
	UserPending  = "PENDING"
	UserApproved = "APPROVED"
)

type User struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Password       string    `json:"-" db:"password"`
	Status         string    `json:"status" db:"status"`
	OrganizationID int       `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UserRef is the public projection of a user embedded in other payloads
// (task assignee, message sender).
type UserRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
