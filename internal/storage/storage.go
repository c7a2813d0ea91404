// Package storage is the CRUD backend behind the task repository. The
// services layer owns all permission and validation logic; a Store only
// persists and loads records, and guarantees that updates to a single
// task row are serialized and keep updated_at strictly increasing.
package storage

import (
	"context"
	"errors"

	"github.com/taskshare/taskshare/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("record already exists")
	ErrUnavailable = errors.New("storage unavailable")
)

type Store interface {
	CreatePrincipal(ctx context.Context, principal *models.Principal) error
	GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
	// UpdatePrincipalProfile persists the profile fields (name, avatar)
	// of an existing principal and refreshes its updated_at.
	UpdatePrincipalProfile(ctx context.Context, principal *models.Principal) error
	// SearchPrincipals returns up to limit principals whose email or
	// display name contains query case-insensitively, excluding the
	// principal with excludeID.
	SearchPrincipals(ctx context.Context, excludeID, query string, limit int) ([]*models.Principal, error)

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// ListTasksForPrincipal returns every task the principal owns or
	// collaborates on, ordered by created_at descending.
	ListTasksForPrincipal(ctx context.Context, principalID string) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	// DeleteTask removes the task and cascades its collaborator grants.
	DeleteTask(ctx context.Context, id string) error

	ListCollaborators(ctx context.Context, taskID string) ([]*models.Collaborator, error)
	AddCollaborator(ctx context.Context, collaborator *models.Collaborator) error
	// RemoveCollaborator deletes the grant for (taskID, userID) and
	// reports whether a grant existed. Absence is not an error.
	RemoveCollaborator(ctx context.Context, taskID, userID string) (bool, error)
}
