package models

import "time"

type Organization struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Description string    `json:"description" db:"description"`
	Password    string    `json:"-" db:"password"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OrganizationDetail is the organization profile with its owned entities,
// returned by the current-organization endpoint.
type OrganizationDetail struct {
	Organization
	Users    []User    `json:"users"`
	Projects []Project `json:"projects"`
}
