package models

import "time"

// Task statuses. Every status is reachable from every other; updates are
// unconditional overwrites with no guarded edges.
const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskDone       = "DONE"
)

// Task priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// IsValidTaskStatus reports whether s is part of the status vocabulary.
func IsValidTaskStatus(s string) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// IsValidPriority reports whether p is part of the priority vocabulary.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          int        `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Priority    string     `json:"priority" db:"priority"`
	Status      string     `json:"status" db:"status"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	AssignedTo  *int       `json:"assigned_to,omitempty" db:"assigned_to"`
	File        *string    `json:"file,omitempty" db:"file"`
	ProjectID   int        `json:"project_id" db:"project_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ProjectTask is a task with its assignee projected, as listed on a
// project board.
type ProjectTask struct {
	Task
	Assignee *UserRef `json:"assignee,omitempty"`
}

// UserTask is a task joined with its owning project, as listed on a
// user's dashboard.
type UserTask struct {
	Task
	Project Project `json:"project"`
}

// StatusCount is the per-status task tally for a scope (project,
// organization or assignee).
type StatusCount struct {
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
}
