// Package reconcile merges inbound change records into a client
// session's locally held task set. The local copy is derived state and
// never authoritative: collisions resolve last-writer-wins in favor of
// the incoming record, and failed optimistic mutations roll back to the
// pre-mutation snapshot.
package reconcile

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
)

const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateSynced       = "synced"
	StateReconciling  = "reconciling"
)

// Fetcher is the session's read path back to the repository, used for
// the baseline fetch and for changes that cannot be patched in place.
type Fetcher interface {
	ListTasks(ctx context.Context) ([]models.TaskView, error)
}

type Reconciler struct {
	logger  zerolog.Logger
	fetcher Fetcher

	mu    sync.Mutex
	state string
	tasks []models.TaskView
}

func New(logger zerolog.Logger, fetcher Fetcher) *Reconciler {
	return &Reconciler{
		logger:  logger,
		fetcher: fetcher,
		state:   StateDisconnected,
	}
}

func (r *Reconciler) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tasks returns a copy of the locally observed task set, newest first.
func (r *Reconciler) Tasks() []models.TaskView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneViews(r.tasks)
}

// Connect establishes the session baseline: a full fetch of the task
// set. Used both for the initial connection and after a reconnect,
// where the fresh baseline replaces whatever stale state was held.
func (r *Reconciler) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.state = StateConnecting
	r.mu.Unlock()

	tasks, err := r.fetcher.ListTasks(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = StateDisconnected
		r.mu.Unlock()
		r.logger.Error().
			Err(err).
			Msg("baseline fetch failed")
		return err
	}

	r.mu.Lock()
	r.tasks = tasks
	r.state = StateSynced
	r.mu.Unlock()

	r.logger.Debug().
		Int("count", len(tasks)).
		Msg("session synced")
	return nil
}

func (r *Reconciler) Disconnect() {
	r.mu.Lock()
	r.state = StateDisconnected
	r.mu.Unlock()
}

// Apply merges one inbound change record. Re-applying the session's own
// echoed record is harmless: creation de-duplicates by id, updates are
// idempotent overwrites and deletion of an absent task is a no-op.
func (r *Reconciler) Apply(ctx context.Context, change models.Change) error {
	r.mu.Lock()
	if r.state != StateSynced {
		r.mu.Unlock()
		r.logger.Debug().
			Str("kind", change.Kind).
			Str("state", r.state).
			Msg("dropping change outside synced state")
		return nil
	}
	r.state = StateReconciling

	switch change.Kind {
	case models.ChangeTaskCreated:
		if change.Task != nil && r.indexOfLocked(change.Task.ID) < 0 {
			r.tasks = append([]models.TaskView{*change.Task}, r.tasks...)
		}
	case models.ChangeTaskUpdated:
		// Last writer wins: the incoming record overwrites local state
		// even when this session has an unacknowledged edit in flight.
		if change.Task != nil {
			if i := r.indexOfLocked(change.Task.ID); i >= 0 {
				r.tasks[i] = *change.Task
			}
		}
	case models.ChangeTaskDeleted:
		if i := r.indexOfLocked(change.TaskID); i >= 0 {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
		}
	case models.ChangeCollaboratorAdded, models.ChangeCollaboratorRemoved:
		// Grant records carry too little to patch the local list safely
		// (the session may have gained or lost visibility of the task),
		// so refetch the whole baseline instead.
		r.state = StateSynced
		r.mu.Unlock()
		return r.refetch(ctx)
	default:
		r.logger.Warn().
			Str("kind", change.Kind).
			Msg("unknown change kind")
	}

	r.state = StateSynced
	r.mu.Unlock()
	return nil
}

// Run consumes changes until the channel closes or the context is
// canceled. A closed channel means the transport dropped the session.
func (r *Reconciler) Run(ctx context.Context, changes <-chan models.Change) {
	for {
		select {
		case <-ctx.Done():
			r.Disconnect()
			return
		case change, ok := <-changes:
			if !ok {
				r.Disconnect()
				return
			}
			if err := r.Apply(ctx, change); err != nil {
				r.logger.Error().
					Err(err).
					Str("kind", change.Kind).
					Msg("failed to apply change")
			}
		}
	}
}

// Mutate runs an optimistic local mutation backed by a server call as
// an explicit local transaction: snapshot, apply locally, commit on
// server success, restore the snapshot on failure. The returned error
// is the server's, surfaced untouched so the caller can present it.
func (r *Reconciler) Mutate(
	ctx context.Context,
	apply func(tasks []models.TaskView) []models.TaskView,
	send func(ctx context.Context) error,
) error {
	r.mu.Lock()
	snapshot := cloneViews(r.tasks)
	r.tasks = apply(r.tasks)
	r.mu.Unlock()

	err := send(ctx)
	if err != nil {
		r.mu.Lock()
		r.tasks = snapshot
		r.mu.Unlock()
		r.logger.Warn().
			Err(err).
			Msg("optimistic mutation rolled back")
		return err
	}
	return nil
}

func (r *Reconciler) refetch(ctx context.Context) error {
	tasks, err := r.fetcher.ListTasks(ctx)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("refetch failed")
		return err
	}

	r.mu.Lock()
	r.tasks = tasks
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) indexOfLocked(taskID string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func cloneViews(tasks []models.TaskView) []models.TaskView {
	clone := make([]models.TaskView, len(tasks))
	copy(clone, tasks)
	return clone
}
