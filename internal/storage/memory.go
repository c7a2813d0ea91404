package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskshare/taskshare/internal/models"
)

// memoryStore is a mutex-guarded in-memory Store used by tests and the
// local environment. It enforces the same constraints as the postgres
// store: unique emails, unique (task, user) grants, cascading task
// deletion and strictly increasing updated_at per task row.
type memoryStore struct {
	mu            sync.Mutex
	principals    map[string]*models.Principal
	tasks         map[string]*models.Task
	collaborators map[string][]*models.Collaborator
}

func NewMemory() Store {
	return &memoryStore{
		principals:    make(map[string]*models.Principal),
		tasks:         make(map[string]*models.Task),
		collaborators: make(map[string][]*models.Collaborator),
	}
}

func clonePrincipal(principal *models.Principal) *models.Principal {
	clone := *principal
	return &clone
}

func cloneTask(task *models.Task) *models.Task {
	clone := *task
	if task.DueDate != nil {
		dueDate := *task.DueDate
		clone.DueDate = &dueDate
	}
	return &clone
}

func cloneCollaborator(collaborator *models.Collaborator) *models.Collaborator {
	clone := *collaborator
	return &clone
}

func (s *memoryStore) CreatePrincipal(_ context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.principals {
		if strings.EqualFold(existing.Email, principal.Email) {
			return ErrDuplicate
		}
	}
	s.principals[principal.ID] = clonePrincipal(principal)
	return nil
}

func (s *memoryStore) GetPrincipalByID(_ context.Context, id string) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, ok := s.principals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePrincipal(principal), nil
}

func (s *memoryStore) GetPrincipalByEmail(_ context.Context, email string) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, principal := range s.principals {
		if strings.EqualFold(principal.Email, email) {
			return clonePrincipal(principal), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) UpdatePrincipalProfile(_ context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.principals[principal.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = principal.Name
	existing.AvatarURL = principal.AvatarURL
	existing.UpdatedAt = principal.UpdatedAt
	return nil
}

func (s *memoryStore) SearchPrincipals(_ context.Context, excludeID, query string, limit int) ([]*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(query)
	matches := make([]*models.Principal, 0, limit)
	for _, principal := range s.principals {
		if principal.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(principal.Email), needle) ||
			strings.Contains(strings.ToLower(principal.Name), needle) {
			matches = append(matches, clonePrincipal(principal))
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *memoryStore) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return ErrDuplicate
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *memoryStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *memoryStore) ListTasksForPrincipal(_ context.Context, principalID string) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.Task
	for _, task := range s.tasks {
		if task.CreatedBy == principalID || s.hasGrantLocked(task.ID, principalID) {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *memoryStore) hasGrantLocked(taskID, principalID string) bool {
	for _, collaborator := range s.collaborators[taskID] {
		if collaborator.UserID == principalID {
			return true
		}
	}
	return false
}

func (s *memoryStore) UpdateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}

	// Same guarantee as the postgres GREATEST clause: updated_at moves
	// strictly forward even when two commits share a clock tick.
	if !task.UpdatedAt.After(existing.UpdatedAt) {
		task.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}

	updated := cloneTask(task)
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	s.tasks[task.ID] = updated
	task.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *memoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.collaborators, id)
	return nil
}

func (s *memoryStore) ListCollaborators(_ context.Context, taskID string) ([]*models.Collaborator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grants := s.collaborators[taskID]
	collaborators := make([]*models.Collaborator, 0, len(grants))
	for _, collaborator := range grants {
		collaborators = append(collaborators, cloneCollaborator(collaborator))
	}
	return collaborators, nil
}

func (s *memoryStore) AddCollaborator(_ context.Context, collaborator *models.Collaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasGrantLocked(collaborator.TaskID, collaborator.UserID) {
		return ErrDuplicate
	}
	s.collaborators[collaborator.TaskID] = append(
		s.collaborators[collaborator.TaskID],
		cloneCollaborator(collaborator),
	)
	return nil
}

func (s *memoryStore) RemoveCollaborator(_ context.Context, taskID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grants := s.collaborators[taskID]
	for i, collaborator := range grants {
		if collaborator.UserID == userID {
			s.collaborators[taskID] = append(grants[:i], grants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
