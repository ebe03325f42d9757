package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"kanbanflow/internal/models"
)

// Memory is an in-process Store used by tests and local development. A
// single mutex stands in for the database's transaction boundary, so the
// coupled writes keep the same all-or-nothing behavior as Postgres.
type Memory struct {
	mu sync.Mutex

	nextID        int
	organizations map[int]*models.Organization
	users         map[int]*models.User
	requests      map[int]*models.JoinRequest
	projects      map[int]*models.Project
	tasks         map[int]*models.Task
	messages      map[int]*models.Message
}

func NewMemory() *Memory {
	return &Memory{
		nextID:        1,
		organizations: make(map[int]*models.Organization),
		users:         make(map[int]*models.User),
		requests:      make(map[int]*models.JoinRequest),
		projects:      make(map[int]*models.Project),
		tasks:         make(map[int]*models.Task),
		messages:      make(map[int]*models.Message),
	}
}

func (s *Memory) id() int {
	id := s.nextID
	s.nextID++
	return id
}

// ---- Organizations ----

func (s *Memory) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.organizations {
		if o.Email == org.Email {
			return ErrDuplicateEmail
		}
		if o.Name == org.Name {
			return ErrDuplicateName
		}
	}
	org.ID = s.id()
	org.CreatedAt = time.Now()
	cp := *org
	s.organizations[org.ID] = &cp
	return nil
}

func (s *Memory) GetOrganizationByID(ctx context.Context, id int) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Memory) GetOrganizationByEmail(ctx context.Context, email string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.organizations {
		if o.Email == email {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.organizations {
		if o.Name == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) GetOrganizationDetail(ctx context.Context, id int) (*models.OrganizationDetail, error) {
	org, err := s.GetOrganizationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	detail := &models.OrganizationDetail{Organization: *org, Users: []models.User{}, Projects: []models.Project{}}
	for _, u := range s.users {
		if u.OrganizationID == id {
			cp := *u
			detail.Users = append(detail.Users, cp)
		}
	}
	for _, p := range s.projects {
		if p.OrganizationID == id {
			cp := *p
			detail.Projects = append(detail.Projects, cp)
		}
	}
	sortUsersNewestFirst(detail.Users)
	sortProjectsNewestFirst(detail.Projects)
	return detail, nil
}

func (s *Memory) UpdateOrganizationProfile(ctx context.Context, id int, name, email string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	for oid, other := range s.organizations {
		if oid == id {
			continue
		}
		if other.Email == email {
			return nil, ErrDuplicateEmail
		}
		if other.Name == name {
			return nil, ErrDuplicateName
		}
	}
	o.Name = name
	o.Email = email
	cp := *o
	return &cp, nil
}

func (s *Memory) UpdateOrganizationPassword(ctx context.Context, id int, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return ErrNotFound
	}
	o.Password = hash
	return nil
}

func (s *Memory) CountApprovedMembers(ctx context.Context, orgID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, u := range s.users {
		if u.OrganizationID == orgID && u.Status == models.UserApproved {
			count++
		}
	}
	return count, nil
}

func (s *Memory) ListApprovedMembers(ctx context.Context, orgID, limit, offset int) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.User
	for _, u := range s.users {
		if u.OrganizationID == orgID && u.Status == models.UserApproved {
			cp := *u
			all = append(all, cp)
		}
	}
	sortUsersNewestFirst(all)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// ---- Users & membership workflow ----

func (s *Memory) RegisterUser(ctx context.Context, user *models.User) (*models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}
	if _, ok := s.organizations[user.OrganizationID]; !ok {
		return nil, ErrNotFound
	}

	user.ID = s.id()
	user.Status = models.UserPending
	user.CreatedAt = time.Now()
	ucp := *user
	s.users[user.ID] = &ucp

	jr := &models.JoinRequest{
		ID:             s.id(),
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Status:         models.RequestPending,
		CreatedAt:      time.Now(),
	}
	jcp := *jr
	s.requests[jr.ID] = &jcp
	return jr, nil
}

func (s *Memory) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) UpdateUserProfile(ctx context.Context, id int, name, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	for uid, other := range s.users {
		if uid != id && other.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	u.Name = name
	u.Email = email
	cp := *u
	return &cp, nil
}

func (s *Memory) UpdateUserPassword(ctx context.Context, id int, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	return nil
}

func (s *Memory) DeleteUser(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	for _, t := range s.tasks {
		if t.AssignedTo != nil && *t.AssignedTo == id {
			t.AssignedTo = nil
		}
	}
	for rid, jr := range s.requests {
		if jr.UserID == id {
			delete(s.requests, rid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Memory) ListPendingRequests(ctx context.Context, orgID int) ([]models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []models.PendingRequest
	for _, jr := range s.requests {
		if jr.OrganizationID != orgID || jr.Status != models.RequestPending {
			continue
		}
		u, ok := s.users[jr.UserID]
		if !ok {
			continue
		}
		var pr models.PendingRequest
		pr.ID = jr.ID
		pr.OrganizationID = jr.OrganizationID
		pr.Status = jr.Status
		pr.CreatedAt = jr.CreatedAt
		pr.User.ID = u.ID
		pr.User.Name = u.Name
		pr.User.Email = u.Email
		pr.User.Status = u.Status
		requests = append(requests, pr)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *Memory) ApproveJoinRequest(ctx context.Context, requestID int) (*models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jr, ok := s.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	if jr.Status != models.RequestApproved {
		jr.Status = models.RequestApproved
		if u, ok := s.users[jr.UserID]; ok {
			u.Status = models.UserApproved
		}
	}
	cp := *jr
	return &cp, nil
}

// ---- Projects & tasks ----

func (s *Memory) CreateProject(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	p.CreatedAt = time.Now()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Memory) GetProjectByID(ctx context.Context, id int) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) ListProjects(ctx context.Context, orgID int) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var projects []models.Project
	for _, p := range s.projects {
		if p.OrganizationID == orgID {
			cp := *p
			projects = append(projects, cp)
		}
	}
	sortProjectsNewestFirst(projects)
	return projects, nil
}

func (s *Memory) CreateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[t.ProjectID]; !ok {
		return ErrNotFound
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.ID = s.id()
	t.CreatedAt = time.Now()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *Memory) GetTaskByID(ctx context.Context, id int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Memory) UpdateTaskStatus(ctx context.Context, id int, status string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (s *Memory) ListProjectTasks(ctx context.Context, projectID int) ([]models.ProjectTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return nil, ErrNotFound
	}
	var tasks []models.ProjectTask
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		pt := models.ProjectTask{Task: *t}
		if t.AssignedTo != nil {
			if u, ok := s.users[*t.AssignedTo]; ok {
				pt.Assignee = &models.UserRef{ID: u.ID, Name: u.Name}
			}
		}
		tasks = append(tasks, pt)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Memory) ListUserTasks(ctx context.Context, userID int) ([]models.UserTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []models.UserTask
	for _, t := range s.tasks {
		if t.AssignedTo == nil || *t.AssignedTo != userID {
			continue
		}
		ut := models.UserTask{Task: *t}
		if p, ok := s.projects[t.ProjectID]; ok {
			ut.Project = *p
		}
		tasks = append(tasks, ut)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ---- Aggregation ----

func (s *Memory) countWhere(match func(*models.Task) bool) models.StatusCount {
	var c models.StatusCount
	for _, t := range s.tasks {
		if !match(t) {
			continue
		}
		switch t.Status {
		case models.TaskTodo:
			c.Todo++
		case models.TaskInProgress:
			c.InProgress++
		case models.TaskDone:
			c.Done++
		}
	}
	return c
}

func (s *Memory) ProjectStatusCount(ctx context.Context, projectID int) (models.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countWhere(func(t *models.Task) bool { return t.ProjectID == projectID }), nil
}

func (s *Memory) OrganizationStatusCount(ctx context.Context, orgID int) (models.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countWhere(func(t *models.Task) bool {
		p, ok := s.projects[t.ProjectID]
		return ok && p.OrganizationID == orgID
	}), nil
}

func (s *Memory) UserStatusCount(ctx context.Context, userID int) (models.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countWhere(func(t *models.Task) bool {
		return t.AssignedTo != nil && *t.AssignedTo == userID
	}), nil
}

// ---- Project chat ----

func (s *Memory) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[m.ProjectID]; !ok {
		return ErrNotFound
	}
	if m.Type == "" {
		m.Type = models.MessageChat
	}
	m.ID = s.id()
	m.CreatedAt = time.Now()
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *Memory) ListProjectMessages(ctx context.Context, projectID int) ([]models.ProjectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []models.ProjectMessage
	for _, m := range s.messages {
		if m.ProjectID != projectID {
			continue
		}
		pm := models.ProjectMessage{Message: *m}
		if u, ok := s.users[m.SenderID]; ok {
			pm.Sender = models.UserRef{ID: u.ID, Name: u.Name}
		}
		messages = append(messages, pm)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func sortUsersNewestFirst(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
}

func sortProjectsNewestFirst(projects []models.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID > projects[j].ID
		}
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}
