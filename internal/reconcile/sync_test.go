package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskshare/taskshare/internal/broadcast"
	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/services"
	"github.com/taskshare/taskshare/internal/storage"
)

// serviceFetcher adapts the task repository as a session's read path.
type serviceFetcher struct {
	tasks   services.TaskService
	actorID string
}

func (f *serviceFetcher) ListTasks(ctx context.Context) ([]models.TaskView, error) {
	return f.tasks.ListTasks(ctx, f.actorID)
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// TestLiveSync drives the full pipeline: a mutation through the
// repository fans out over the broadcaster and lands in another
// session's reconciled task set.
func TestLiveSync(t *testing.T) {
	store := storage.NewMemory()
	broadcaster := broadcast.New(zerolog.Nop(), 16)
	taskService := services.NewTaskService(zerolog.Nop(), store, broadcaster)

	ctx := context.Background()
	now := time.Now()
	owner := &models.Principal{ID: "u1", Email: "u1@example.com", Name: "Owner", CreatedAt: now, UpdatedAt: now}
	collaborator := &models.Principal{ID: "u2", Email: "u2@example.com", Name: "Collaborator", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreatePrincipal(ctx, owner))
	require.NoError(t, store.CreatePrincipal(ctx, collaborator))

	view, err := taskService.CreateTask(ctx, services.CreateTaskParams{Actor: owner, Title: "Draft report"})
	require.NoError(t, err)
	_, err = taskService.AddCollaborator(ctx, services.AddCollaboratorParams{
		Actor:      owner,
		TaskID:     view.ID,
		Email:      collaborator.Email,
		Permission: models.PermissionWrite,
	})
	require.NoError(t, err)

	// The collaborator's session connects and starts consuming changes.
	session := New(zerolog.Nop(), &serviceFetcher{tasks: taskService, actorID: "u2"})
	require.NoError(t, session.Connect(ctx))
	require.Len(t, session.Tasks(), 1)

	changes := broadcaster.Subscribe("session-u2")
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go session.Run(runCtx, changes)

	// Owner completes the task; the collaborator's session converges.
	_, err = taskService.UpdateTask(ctx, services.UpdateTaskParams{
		Actor:  owner,
		TaskID: view.ID,
		Status: func() *string { s := models.StatusCompleted; return &s }(),
	})
	require.NoError(t, err)

	waitFor(t, func() bool {
		tasks := session.Tasks()
		return len(tasks) == 1 && tasks[0].Status == models.StatusCompleted
	})

	// Owner deletes the task; it disappears from the session.
	require.NoError(t, taskService.DeleteTask(ctx, owner, view.ID))
	waitFor(t, func() bool { return len(session.Tasks()) == 0 })

	assert.Equal(t, StateSynced, session.State())
}
