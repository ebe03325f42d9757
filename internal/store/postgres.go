package store

import (
	"context"
	"database/sql"
	"errors"

	"kanbanflow/internal/models"

	"github.com/lib/pq"
)

// Postgres implements Store over a lib/pq connection pool.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}

// ---- Organizations ----

func (s *Postgres) CreateOrganization(ctx context.Context, org *models.Organization) error {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO organizations (name, email, description, password) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		org.Name, org.Email, org.Description, org.Password,
	).Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "organizations_email_key") {
			return ErrDuplicateEmail
		}
		if isUniqueViolation(err, "organizations_name_key") {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

func (s *Postgres) getOrganization(ctx context.Context, where string, arg interface{}) (*models.Organization, error) {
	var o models.Organization
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, description, password, created_at FROM organizations WHERE "+where, arg,
	).Scan(&o.ID, &o.Name, &o.Email, &o.Description, &o.Password, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Postgres) GetOrganizationByID(ctx context.Context, id int) (*models.Organization, error) {
	return s.getOrganization(ctx, "id=$1", id)
}

func (s *Postgres) GetOrganizationByEmail(ctx context.Context, email string) (*models.Organization, error) {
	return s.getOrganization(ctx, "email=$1", email)
}

func (s *Postgres) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	return s.getOrganization(ctx, "name=$1", name)
}

func (s *Postgres) GetOrganizationDetail(ctx context.Context, id int) (*models.OrganizationDetail, error) {
	org, err := s.GetOrganizationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.OrganizationDetail{Organization: *org, Users: []models.User{}, Projects: []models.Project{}}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, status, organization_id, created_at FROM users WHERE organization_id=$1 ORDER BY created_at DESC", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Status, &u.OrganizationID, &u.CreatedAt); err != nil {
			return nil, err
		}
		detail.Users = append(detail.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	projects, err := s.ListProjects(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Projects = projects
	return detail, nil
}

func (s *Postgres) UpdateOrganizationProfile(ctx context.Context, id int, name, email string) (*models.Organization, error) {
	var o models.Organization
	err := s.db.QueryRowContext(ctx,
		"UPDATE organizations SET name=$1, email=$2 WHERE id=$3 RETURNING id, name, email, description, password, created_at",
		name, email, id,
	).Scan(&o.ID, &o.Name, &o.Email, &o.Description, &o.Password, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err, "organizations_email_key") {
			return nil, ErrDuplicateEmail
		}
		if isUniqueViolation(err, "organizations_name_key") {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &o, nil
}

func (s *Postgres) UpdateOrganizationPassword(ctx context.Context, id int, hash string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE organizations SET password=$1 WHERE id=$2", hash, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountApprovedMembers(ctx context.Context, orgID int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE organization_id=$1 AND status=$2", orgID, models.UserApproved,
	).Scan(&count)
	return count, err
}

func (s *Postgres) ListApprovedMembers(ctx context.Context, orgID, limit, offset int) ([]models.User, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE organization_id=$1 AND status=$2", orgID, models.UserApproved,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, status, organization_id, created_at FROM users
		 WHERE organization_id=$1 AND status=$2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, models.UserApproved, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Status, &u.OrganizationID, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ---- Users & membership workflow ----

// RegisterUser inserts the user and its join request in one transaction so
// a failed request insert never leaves an orphaned user row.
func (s *Postgres) RegisterUser(ctx context.Context, user *models.User) (*models.JoinRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user.Status = models.UserPending
	err = tx.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password, status, organization_id) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		user.Name, user.Email, user.Password, user.Status, user.OrganizationID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	jr := &models.JoinRequest{UserID: user.ID, OrganizationID: user.OrganizationID, Status: models.RequestPending}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO join_requests (user_id, organization_id, status) VALUES ($1, $2, $3) RETURNING id, created_at",
		jr.UserID, jr.OrganizationID, jr.Status,
	).Scan(&jr.ID, &jr.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return jr, nil
}

func (s *Postgres) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password, status, organization_id, created_at FROM users WHERE "+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Status, &u.OrganizationID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, "id=$1", id)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email=$1", email)
}

func (s *Postgres) UpdateUserProfile(ctx context.Context, id int, name, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"UPDATE users SET name=$1, email=$2 WHERE id=$3 RETURNING id, name, email, password, status, organization_id, created_at",
		name, email, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Status, &u.OrganizationID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) UpdateUserPassword(ctx context.Context, id int, hash string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE users SET password=$1 WHERE id=$2", hash, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser detaches the user's assigned tasks, removes the user's join
// requests and deletes the user, all in one transaction.
func (s *Postgres) DeleteUser(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET assigned_to=NULL WHERE assigned_to=$1", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM join_requests WHERE user_id=$1", id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=$1", id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *Postgres) ListPendingRequests(ctx context.Context, orgID int) ([]models.PendingRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT jr.id, jr.organization_id, jr.status, jr.created_at,
		        u.id, u.name, u.email, u.status
		 FROM join_requests jr
		 INNER JOIN users u ON u.id = jr.user_id
		 WHERE jr.organization_id = $1 AND jr.status = $2
		 ORDER BY jr.created_at DESC`,
		orgID, models.RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.PendingRequest
	for rows.Next() {
		var pr models.PendingRequest
		err := rows.Scan(&pr.ID, &pr.OrganizationID, &pr.Status, &pr.CreatedAt,
			&pr.User.ID, &pr.User.Name, &pr.User.Email, &pr.User.Status)
		if err != nil {
			return nil, err
		}
		requests = append(requests, pr)
	}
	return requests, rows.Err()
}

// ApproveJoinRequest flips the join request and its user to APPROVED in one
// transaction. The request row is locked first, so a concurrent approval of
// the same request observes the already-approved state instead of racing.
func (s *Postgres) ApproveJoinRequest(ctx context.Context, requestID int) (*models.JoinRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var jr models.JoinRequest
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, organization_id, status, created_at FROM join_requests WHERE id=$1 FOR UPDATE",
		requestID,
	).Scan(&jr.ID, &jr.UserID, &jr.OrganizationID, &jr.Status, &jr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if jr.Status != models.RequestApproved {
		if _, err := tx.ExecContext(ctx,
			"UPDATE join_requests SET status=$1 WHERE id=$2", models.RequestApproved, jr.ID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET status=$1 WHERE id=$2", models.UserApproved, jr.UserID); err != nil {
			return nil, err
		}
		jr.Status = models.RequestApproved
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &jr, nil
}

// ---- Projects & tasks ----

func (s *Postgres) CreateProject(ctx context.Context, p *models.Project) error {
	return s.db.QueryRowContext(ctx,
		"INSERT INTO projects (title, description, organization_id) VALUES ($1, $2, $3) RETURNING id, created_at",
		p.Title, p.Description, p.OrganizationID,
	).Scan(&p.ID, &p.CreatedAt)
}

func (s *Postgres) GetProjectByID(ctx context.Context, id int) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, organization_id, created_at FROM projects WHERE id=$1", id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.OrganizationID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) ListProjects(ctx context.Context, orgID int) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, description, organization_id, created_at FROM projects WHERE organization_id=$1 ORDER BY created_at DESC",
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.OrganizationID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateTask verifies the target project inside the same transaction as the
// insert, so a task can never reference a project that was concurrently
// removed.
func (s *Postgres) CreateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var projectID int
	err = tx.QueryRowContext(ctx, "SELECT id FROM projects WHERE id=$1", t.ProjectID).Scan(&projectID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, priority, status, deadline, assigned_to, file, project_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		t.Title, t.Description, t.Priority, t.Status, t.Deadline, t.AssignedTo, t.File, t.ProjectID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Postgres) GetTaskByID(ctx context.Context, id int) (*models.Task, error) {
	var t models.Task
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, priority, status, deadline, assigned_to, file, project_id, created_at FROM tasks WHERE id=$1",
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Deadline, &t.AssignedTo, &t.File, &t.ProjectID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTaskStatus overwrites the status unconditionally; every status is
// reachable from every other, last writer wins.
func (s *Postgres) UpdateTaskStatus(ctx context.Context, id int, status string) (*models.Task, error) {
	var t models.Task
	err := s.db.QueryRowContext(ctx,
		`UPDATE tasks SET status=$1 WHERE id=$2
		 RETURNING id, title, description, priority, status, deadline, assigned_to, file, project_id, created_at`,
		status, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Deadline, &t.AssignedTo, &t.File, &t.ProjectID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) ListProjectTasks(ctx context.Context, projectID int) ([]models.ProjectTask, error) {
	if _, err := s.GetProjectByID(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.description, t.priority, t.status, t.deadline, t.assigned_to, t.file, t.project_id, t.created_at,
		        u.id, u.name
		 FROM tasks t
		 LEFT JOIN users u ON u.id = t.assigned_to
		 WHERE t.project_id = $1
		 ORDER BY t.created_at DESC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.ProjectTask
	for rows.Next() {
		var pt models.ProjectTask
		var assigneeID sql.NullInt32
		var assigneeName sql.NullString
		err := rows.Scan(&pt.ID, &pt.Title, &pt.Description, &pt.Priority, &pt.Status,
			&pt.Deadline, &pt.AssignedTo, &pt.File, &pt.ProjectID, &pt.CreatedAt,
			&assigneeID, &assigneeName)
		if err != nil {
			return nil, err
		}
		if assigneeID.Valid {
			pt.Assignee = &models.UserRef{ID: int(assigneeID.Int32), Name: assigneeName.String}
		}
		tasks = append(tasks, pt)
	}
	return tasks, rows.Err()
}

func (s *Postgres) ListUserTasks(ctx context.Context, userID int) ([]models.UserTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.description, t.priority, t.status, t.deadline, t.assigned_to, t.file, t.project_id, t.created_at,
		        p.id, p.title, p.description, p.organization_id, p.created_at
		 FROM tasks t
		 INNER JOIN projects p ON p.id = t.project_id
		 WHERE t.assigned_to = $1
		 ORDER BY t.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.UserTask
	for rows.Next() {
		var ut models.UserTask
		err := rows.Scan(&ut.ID, &ut.Title, &ut.Description, &ut.Priority, &ut.Status,
			&ut.Deadline, &ut.AssignedTo, &ut.File, &ut.ProjectID, &ut.CreatedAt,
			&ut.Project.ID, &ut.Project.Title, &ut.Project.Description, &ut.Project.OrganizationID, &ut.Project.CreatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, ut)
	}
	return tasks, rows.Err()
}

// ---- Aggregation ----
//
// Each scope's three counters come from a single statement, so they are a
// consistent snapshot: todo + inProgress + done equals the scope's task
// count at the moment of the read.

func (s *Postgres) scanStatusCount(row *sql.Row) (models.StatusCount, error) {
	var c models.StatusCount
	err := row.Scan(&c.Todo, &c.InProgress, &c.Done)
	return c, err
}

func (s *Postgres) ProjectStatusCount(ctx context.Context, projectID int) (models.StatusCount, error) {
	return s.scanStatusCount(s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status='TODO'),
		        COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
		        COUNT(*) FILTER (WHERE status='DONE')
		 FROM tasks WHERE project_id=$1`,
		projectID))
}

func (s *Postgres) OrganizationStatusCount(ctx context.Context, orgID int) (models.StatusCount, error) {
	return s.scanStatusCount(s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE t.status='TODO'),
		        COUNT(*) FILTER (WHERE t.status='IN_PROGRESS'),
		        COUNT(*) FILTER (WHERE t.status='DONE')
		 FROM tasks t
		 INNER JOIN projects p ON p.id = t.project_id
		 WHERE p.organization_id=$1`,
		orgID))
}

func (s *Postgres) UserStatusCount(ctx context.Context, userID int) (models.StatusCount, error) {
	return s.scanStatusCount(s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status='TODO'),
		        COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
		        COUNT(*) FILTER (WHERE status='DONE')
		 FROM tasks WHERE assigned_to=$1`,
		userID))
}

// ---- Project chat ----

func (s *Postgres) CreateMessage(ctx context.Context, m *models.Message) error {
	if _, err := s.GetProjectByID(ctx, m.ProjectID); err != nil {
		return err
	}
	if m.Type == "" {
		m.Type = models.MessageChat
	}
	return s.db.QueryRowContext(ctx,
		"INSERT INTO messages (project_id, sender_id, body, type) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		m.ProjectID, m.SenderID, m.Body, m.Type,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *Postgres) ListProjectMessages(ctx context.Context, projectID int) ([]models.ProjectMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.project_id, m.sender_id, m.body, m.type, m.created_at,
		        u.id, u.name
		 FROM messages m
		 LEFT JOIN users u ON u.id = m.sender_id
		 WHERE m.project_id = $1
		 ORDER BY m.created_at ASC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ProjectMessage
	for rows.Next() {
		var pm models.ProjectMessage
		var senderID sql.NullInt32
		var senderName sql.NullString
		err := rows.Scan(&pm.ID, &pm.ProjectID, &pm.SenderID, &pm.Body, &pm.Type, &pm.CreatedAt,
			&senderID, &senderName)
		if err != nil {
			return nil, err
		}
		if senderID.Valid {
			pm.Sender = models.UserRef{ID: int(senderID.Int32), Name: senderName.String}
		}
		messages = append(messages, pm)
	}
	return messages, rows.Err()
}
