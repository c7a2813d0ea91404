package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/perms"
	"github.com/taskshare/taskshare/internal/storage"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 1000
)

type taskServiceImpl struct {
	logger    zerolog.Logger
	store     storage.Store
	publisher ChangePublisher

	// commitLocks serializes the window between a task's store commit
	// and its Publish call, per task (striped by task id hash), so the
	// broadcaster receives records for one task in commit order.
	commitLocks [64]sync.Mutex
}

func (s *taskServiceImpl) commitLock(taskID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(taskID))
	return &s.commitLocks[h.Sum32()%uint32(len(s.commitLocks))]
}

func NewTaskService(
	logger zerolog.Logger,
	store storage.Store,
	publisher ChangePublisher,
) TaskService {
	return &taskServiceImpl{
		logger:    logger,
		store:     store,
		publisher: publisher,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.TaskView, error) {
	var violations []string
	if params.Title == "" {
		violations = append(violations, "title is required")
	} else if utf8.RuneCountInString(params.Title) > maxTitleLength {
		violations = append(violations, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if params.Description != nil && utf8.RuneCountInString(*params.Description) > maxDescriptionLength {
		violations = append(violations, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	status := models.StatusPending
	if params.Status != nil {
		if !models.IsValidStatus(*params.Status) {
			violations = append(violations, fmt.Sprintf("invalid status %q", *params.Status))
		} else {
			status = *params.Status
		}
	}

	priority := models.PriorityMedium
	if params.Priority != nil {
		if !models.IsValidPriority(*params.Priority) {
			violations = append(violations, fmt.Sprintf("invalid priority %q", *params.Priority))
		} else {
			priority = *params.Priority
		}
	}

	var dueDate *time.Time
	if params.DueDate != nil && *params.DueDate != "" {
		parsed, err := parseDueDate(*params.DueDate)
		if err != nil {
			violations = append(violations, "invalid due date")
		} else {
			dueDate = parsed
		}
	}

	if len(violations) > 0 {
		s.logger.Warn().
			Strs("violations", violations).
			Msg("rejected task creation")
		return nil, newValidationError(violations...)
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:        taskUUID.String(),
		CreatedBy: params.Actor.ID,
		Title:     params.Title,
		Status:    status,
		Priority:  priority,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.Description != nil {
		task.Description = *params.Description
	}

	lock := s.commitLock(task.ID)
	lock.Lock()
	defer lock.Unlock()

	err = s.store.CreateTask(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to create task")
		return nil, mapStorageError(err, ErrTaskNotFound)
	}

	view, err := s.taskView(ctx, task, nil, nil)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(models.Change{
		Kind:            models.ChangeTaskCreated,
		Task:            view,
		ActingPrincipal: params.Actor.Summary(),
	})

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", params.Actor.ID).
		Msg("created task")
	return view, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, actorID string) ([]models.TaskView, error) {
	tasks, err := s.store.ListTasksForPrincipal(ctx, actorID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actorID).
			Msg("failed to list tasks")
		return nil, mapStorageError(err, ErrTaskNotFound)
	}

	principals := make(map[string]*models.Principal)
	views := make([]models.TaskView, 0, len(tasks))
	for _, task := range tasks {
		collaborators, err := s.store.ListCollaborators(ctx, task.ID)
		if err != nil {
			return nil, mapStorageError(err, ErrTaskNotFound)
		}
		view, err := s.taskView(ctx, task, collaborators, principals)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	s.logger.Debug().
		Int("count", len(views)).
		Str("user_id", actorID).
		Msg("listed tasks")
	return views, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.TaskView, error) {
	task, collaborators, err := s.loadTask(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}

	if !perms.Can(params.Actor.ID, task, collaborators, perms.ActionWrite) {
		s.logger.Warn().
			Str("task_id", task.ID).
			Str("user_id", params.Actor.ID).
			Msg("update denied")
		return nil, ErrPermissionDenied
	}

	if params.Title == nil && params.Description == nil &&
		params.Status == nil && params.Priority == nil && params.DueDate == nil {
		return nil, newValidationError("no valid fields to update")
	}

	var violations []string
	if params.Title != nil {
		if *params.Title == "" {
			violations = append(violations, "title is required")
		} else if utf8.RuneCountInString(*params.Title) > maxTitleLength {
			violations = append(violations, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
		} else {
			task.Title = *params.Title
		}
	}
	if params.Description != nil {
		if utf8.RuneCountInString(*params.Description) > maxDescriptionLength {
			violations = append(violations, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
		} else {
			task.Description = *params.Description
		}
	}
	if params.Status != nil {
		if !models.IsValidStatus(*params.Status) {
			violations = append(violations, fmt.Sprintf("invalid status %q", *params.Status))
		} else {
			task.Status = *params.Status
		}
	}
	if params.Priority != nil {
		if !models.IsValidPriority(*params.Priority) {
			violations = append(violations, fmt.Sprintf("invalid priority %q", *params.Priority))
		} else {
			task.Priority = *params.Priority
		}
	}
	if params.DueDate != nil {
		if *params.DueDate == "" {
			task.DueDate = nil
		} else if parsed, err := parseDueDate(*params.DueDate); err != nil {
			violations = append(violations, "invalid due date")
		} else {
			task.DueDate = parsed
		}
	}

	if len(violations) > 0 {
		s.logger.Warn().
			Str("task_id", task.ID).
			Strs("violations", violations).
			Msg("rejected task update")
		return nil, newValidationError(violations...)
	}

	lock := s.commitLock(task.ID)
	lock.Lock()
	defer lock.Unlock()

	task.UpdatedAt = time.Now()
	err = s.store.UpdateTask(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return nil, mapStorageError(err, ErrTaskNotFound)
	}

	view, err := s.taskView(ctx, task, collaborators, nil)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(models.Change{
		Kind:            models.ChangeTaskUpdated,
		Task:            view,
		ActingPrincipal: params.Actor.Summary(),
	})

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", params.Actor.ID).
		Msg("updated task")
	return view, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor *models.Principal, taskID string) error {
	task, collaborators, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	if !perms.Can(actor.ID, task, collaborators, perms.ActionDelete) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", actor.ID).
			Msg("delete denied")
		return ErrPermissionDenied
	}

	lock := s.commitLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	err = s.store.DeleteTask(ctx, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return mapStorageError(err, ErrTaskNotFound)
	}

	s.publisher.Publish(models.Change{
		Kind:            models.ChangeTaskDeleted,
		TaskID:          taskID,
		ActingPrincipal: actor.Summary(),
	})

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", actor.ID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) AddCollaborator(ctx context.Context, params AddCollaboratorParams) (*models.CollaboratorView, error) {
	task, collaborators, err := s.loadTask(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}

	if !perms.Can(params.Actor.ID, task, collaborators, perms.ActionShare) {
		s.logger.Warn().
			Str("task_id", task.ID).
			Str("user_id", params.Actor.ID).
			Msg("share denied")
		return nil, ErrPermissionDenied
	}

	if !models.IsValidPermission(params.Permission) {
		return nil, newValidationError(fmt.Sprintf("invalid permission %q", params.Permission))
	}

	principal, err := s.store.GetPrincipalByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().
				Str("email", params.Email).
				Msg("collaborator email not registered")
			return nil, ErrPrincipalNotFound
		}
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}

	// The owner holds full rights already and must never appear in the
	// collaborator set.
	if principal.ID == task.CreatedBy {
		return nil, newValidationError("task owner cannot be added as a collaborator")
	}

	grantUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate collaborator uuid")
		return nil, err
	}

	collaborator := &models.Collaborator{
		ID:         grantUUID.String(),
		TaskID:     task.ID,
		UserID:     principal.ID,
		Permission: params.Permission,
		CreatedAt:  time.Now(),
	}
	lock := s.commitLock(task.ID)
	lock.Lock()
	defer lock.Unlock()

	err = s.store.AddCollaborator(ctx, collaborator)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrCollaboratorExists
		}
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to add collaborator")
		return nil, mapStorageError(err, ErrTaskNotFound)
	}

	view := &models.CollaboratorView{
		ID:         collaborator.ID,
		UserID:     principal.ID,
		Permission: collaborator.Permission,
		UserName:   principal.Name,
		UserEmail:  principal.Email,
		UserAvatar: principal.AvatarURL,
	}

	s.publisher.Publish(models.Change{
		Kind:            models.ChangeCollaboratorAdded,
		TaskID:          task.ID,
		Collaborator:    view,
		ActingPrincipal: params.Actor.Summary(),
	})

	s.logger.Info().
		Str("task_id", task.ID).
		Str("collaborator_id", principal.ID).
		Str("permission", collaborator.Permission).
		Msg("added collaborator")
	return view, nil
}

func (s *taskServiceImpl) RemoveCollaborator(ctx context.Context, actor *models.Principal, taskID, userID string) error {
	task, collaborators, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	if !perms.Can(actor.ID, task, collaborators, perms.ActionShare) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", actor.ID).
			Msg("unshare denied")
		return ErrPermissionDenied
	}

	lock := s.commitLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	removed, err := s.store.RemoveCollaborator(ctx, taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to remove collaborator")
		return mapStorageError(err, ErrTaskNotFound)
	}
	if !removed {
		// Idempotent: revoking an absent grant is a silent no-op and
		// publishes nothing, since no state changed.
		s.logger.Debug().
			Str("task_id", taskID).
			Str("collaborator_id", userID).
			Msg("collaborator already absent")
		return nil
	}

	s.publisher.Publish(models.Change{
		Kind:            models.ChangeCollaboratorRemoved,
		TaskID:          taskID,
		Collaborator:    &models.CollaboratorView{UserID: userID},
		ActingPrincipal: actor.Summary(),
	})

	s.logger.Info().
		Str("task_id", taskID).
		Str("collaborator_id", userID).
		Msg("removed collaborator")
	return nil
}

// loadTask fetches the task and its grants for a fresh permission
// evaluation. Decisions are never cached across calls because grants
// mutate independently of tasks.
func (s *taskServiceImpl) loadTask(ctx context.Context, taskID string) (*models.Task, []*models.Collaborator, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to load task")
		return nil, nil, mapStorageError(err, ErrTaskNotFound)
	}

	collaborators, err := s.store.ListCollaborators(ctx, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to load collaborators")
		return nil, nil, mapStorageError(err, ErrTaskNotFound)
	}
	return task, collaborators, nil
}

// taskView assembles the read projection: task fields,
// creator profile and a never-nil collaborator array. The principals
// cache is shared across one List call to avoid refetching creators.
func (s *taskServiceImpl) taskView(
	ctx context.Context,
	task *models.Task,
	collaborators []*models.Collaborator,
	principals map[string]*models.Principal,
) (*models.TaskView, error) {
	if principals == nil {
		principals = make(map[string]*models.Principal)
	}

	creator, err := s.principal(ctx, task.CreatedBy, principals)
	if err != nil {
		return nil, err
	}

	view := &models.TaskView{
		ID:            task.ID,
		Title:         task.Title,
		Description:   task.Description,
		Status:        task.Status,
		Priority:      task.Priority,
		DueDate:       task.DueDate,
		CreatedBy:     task.CreatedBy,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
		CreatorName:   creator.Name,
		CreatorEmail:  creator.Email,
		CreatorAvatar: creator.AvatarURL,
		Collaborators: make([]models.CollaboratorView, 0, len(collaborators)),
	}

	for _, collaborator := range collaborators {
		principal, err := s.principal(ctx, collaborator.UserID, principals)
		if err != nil {
			return nil, err
		}
		view.Collaborators = append(view.Collaborators, models.CollaboratorView{
			ID:         collaborator.ID,
			UserID:     principal.ID,
			Permission: collaborator.Permission,
			UserName:   principal.Name,
			UserEmail:  principal.Email,
			UserAvatar: principal.AvatarURL,
		})
	}
	return view, nil
}

func (s *taskServiceImpl) principal(
	ctx context.Context,
	id string,
	cache map[string]*models.Principal,
) (*models.Principal, error) {
	if principal, ok := cache[id]; ok {
		return principal, nil
	}
	principal, err := s.store.GetPrincipalByID(ctx, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", id).
			Msg("failed to load principal")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}
	cache[id] = principal
	return principal, nil
}

func parseDueDate(value string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("unparseable due date: %s", value)
}

func mapStorageError(err error, notFound error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFound
	case errors.Is(err, storage.ErrDuplicate):
		return ErrCollaboratorExists
	case errors.Is(err, storage.ErrUnavailable):
		return ErrStorageUnavailable
	}
	return err
}
