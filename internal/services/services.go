package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskshare/taskshare/internal/models"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrPrincipalNotFound  = errors.New("user not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCollaboratorExists = errors.New("collaborator already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("password mismatch")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries one message per violated field constraint.
// It is terminal: the caller must correct the input and resubmit.
type ValidationError struct {
	Messages []string
}

func newValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// ChangePublisher receives the change record a successful mutation
// produces. Publish must not block the mutating call.
type ChangePublisher interface {
	Publish(change models.Change)
}

type TaskService interface {
	// CreateTask validates the supplied fields and stores a new task
	// owned by the actor. Status defaults to pending and priority to
	// medium when omitted.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.TaskView, error)

	// ListTasks returns every task the actor owns or collaborates on,
	// newest first, with creator and collaborator projections embedded.
	ListTasks(ctx context.Context, actorID string) ([]models.TaskView, error)

	// UpdateTask applies the fields present in params to the task. It
	// returns ErrPermissionDenied unless the actor owns the task or
	// holds a write grant, and a ValidationError when no field is
	// present or a present field violates its constraint.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.TaskView, error)

	// DeleteTask removes the task and all its grants. Owner only.
	// Deleting an already-deleted task returns ErrTaskNotFound.
	DeleteTask(ctx context.Context, actor *models.Principal, taskID string) error

	// AddCollaborator grants the principal registered under the given
	// email access to the task. Owner only; a duplicate grant returns
	// ErrCollaboratorExists rather than upgrading silently.
	AddCollaborator(ctx context.Context, params AddCollaboratorParams) (*models.CollaboratorView, error)

	// RemoveCollaborator revokes a grant. Owner only and idempotent:
	// removing an absent grant succeeds without effect.
	RemoveCollaborator(ctx context.Context, actor *models.Principal, taskID, userID string) error
}

type PrincipalService interface {
	GetByID(ctx context.Context, id string) (*models.Principal, error)

	// Search returns up to 10 principals whose email or display name
	// contains query case-insensitively, excluding the requester.
	// Queries shorter than 2 characters yield an empty result.
	Search(ctx context.Context, requesterID, query string) ([]models.PrincipalSummary, error)

	// UpdateProfile edits the actor's own profile fields.
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.Principal, error)
}

type AuthService interface {
	// Register creates a principal with an argon2id password hash and
	// returns a signed access token. It returns ErrEmailTaken if the
	// email is already registered.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// Login authenticates by email and password. It returns
	// ErrPrincipalNotFound or ErrPasswordMismatch on bad credentials.
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// ParseAccessToken verifies the token signature and expiry and
	// returns its claims; the subject is the principal id.
	ParseAccessToken(token string) (*jwt.RegisteredClaims, error)
}

type CreateTaskParams struct {
	Actor       *models.Principal
	Title       string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
}

type UpdateTaskParams struct {
	Actor       *models.Principal
	TaskID      string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
}

type AddCollaboratorParams struct {
	Actor      *models.Principal
	TaskID     string
	Email      string
	Permission string
}

type UpdateProfileParams struct {
	ActorID   string
	Name      *string
	AvatarURL *string
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	Principal            *models.Principal
	AccessToken          string
	AccessTokenExpiresAt time.Time
}
