package store

import (
	"context"
	"errors"

	"kanbanflow/internal/models"
)

var (
	// ErrNotFound is returned when a referenced entity id does not resolve.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an email uniqueness constraint is violated.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateName is returned when an organization name is already taken.
	ErrDuplicateName = errors.New("name already exists")
)

// Store is the persistence boundary for all entities. Postgres implements
// it for production; Memory implements it for tests and local development.
//
// Operations that couple two entities (user registration, join-request
// approval, account deletion) are all-or-nothing: implementations must not
// leave one write applied without the other.
type Store interface {
	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id int) (*models.Organization, error)
	GetOrganizationByEmail(ctx context.Context, email string) (*models.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	GetOrganizationDetail(ctx context.Context, id int) (*models.OrganizationDetail, error)
	UpdateOrganizationProfile(ctx context.Context, id int, name, email string) (*models.Organization, error)
	UpdateOrganizationPassword(ctx context.Context, id int, hash string) error
	CountApprovedMembers(ctx context.Context, orgID int) (int, error)
	ListApprovedMembers(ctx context.Context, orgID, limit, offset int) ([]models.User, int, error)

	// Users & membership workflow
	RegisterUser(ctx context.Context, user *models.User) (*models.JoinRequest, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id int, name, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id int, hash string) error
	DeleteUser(ctx context.Context, id int) error
	ListPendingRequests(ctx context.Context, orgID int) ([]models.PendingRequest, error)
	ApproveJoinRequest(ctx context.Context, requestID int) (*models.JoinRequest, error)

	// Projects & tasks
	CreateProject(ctx context.Context, p *models.Project) error
	GetProjectByID(ctx context.Context, id int) (*models.Project, error)
	ListProjects(ctx context.Context, orgID int) ([]models.Project, error)
	CreateTask(ctx context.Context, t *models.Task) error
	GetTaskByID(ctx context.Context, id int) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id int, status string) (*models.Task, error)
	ListProjectTasks(ctx context.Context, projectID int) ([]models.ProjectTask, error)
	ListUserTasks(ctx context.Context, userID int) ([]models.UserTask, error)

	// Aggregation
	ProjectStatusCount(ctx context.Context, projectID int) (models.StatusCount, error)
	OrganizationStatusCount(ctx context.Context, orgID int) (models.StatusCount, error)
	UserStatusCount(ctx context.Context, userID int) (models.StatusCount, error)

	// Project chat
	CreateMessage(ctx context.Context, m *models.Message) error
	ListProjectMessages(ctx context.Context, projectID int) ([]models.ProjectMessage, error)
}
