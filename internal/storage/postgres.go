package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
)

type postgresStore struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgres(logger zerolog.Logger, pgPool *pgxpool.Pool) Store {
	return &postgresStore{
		logger: logger,
		pgPool: pgPool,
	}
}

// mapError translates driver failures into the storage error taxonomy.
// Unique violations become ErrDuplicate; connection-level failures
// become ErrUnavailable so callers can retry with backoff.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		if pgerrcode.IsConnectionException(pgErr.Code) {
			return ErrUnavailable
		}
		return err
	}
	if pgconn.Timeout(err) {
		return ErrUnavailable
	}
	return err
}

func (s *postgresStore) CreatePrincipal(ctx context.Context, principal *models.Principal) error {
	const insertPrincipalQuery = `
INSERT INTO users (id,
                   email,
                   name,
                   avatar_url,
                   password,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertPrincipalQuery,
		principal.ID,
		principal.Email,
		principal.Name,
		principal.AvatarURL,
		principal.Password,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("email", principal.Email).
			Msg("failed to insert user")
		return mapError(err)
	}
	s.logger.Debug().
		Str("user_id", principal.ID).
		Msg("inserted user")
	return nil
}

const selectPrincipalColumns = `
SELECT id,
       email,
       name,
       avatar_url,
       password,
       created_at,
       updated_at
FROM users
`

func (s *postgresStore) scanPrincipal(row pgx.Row) (*models.Principal, error) {
	principal := new(models.Principal)
	err := row.Scan(
		&principal.ID,
		&principal.Email,
		&principal.Name,
		&principal.AvatarURL,
		&principal.Password,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error().
			Err(err).
			Msg("failed to scan user")
		return nil, mapError(err)
	}
	return principal, nil
}

func (s *postgresStore) GetPrincipalByID(ctx context.Context, id string) (*models.Principal, error) {
	const getPrincipalByIDQuery = selectPrincipalColumns + `WHERE id = $1`
	return s.scanPrincipal(s.pgPool.QueryRow(ctx, getPrincipalByIDQuery, id))
}

func (s *postgresStore) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	const getPrincipalByEmailQuery = selectPrincipalColumns + `WHERE email = $1`
	return s.scanPrincipal(s.pgPool.QueryRow(ctx, getPrincipalByEmailQuery, email))
}

func (s *postgresStore) UpdatePrincipalProfile(ctx context.Context, principal *models.Principal) error {
	const updateProfileQuery = `
UPDATE users
SET name = $1,
    avatar_url = $2,
    updated_at = $3
WHERE id = $4
`
	tag, err := s.pgPool.Exec(
		ctx,
		updateProfileQuery,
		principal.Name,
		principal.AvatarURL,
		principal.UpdatedAt,
		principal.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", principal.ID).
			Msg("failed to update profile")
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Debug().
		Str("user_id", principal.ID).
		Msg("updated profile")
	return nil
}

func (s *postgresStore) SearchPrincipals(ctx context.Context, excludeID, query string, limit int) ([]*models.Principal, error) {
	const searchPrincipalsQuery = selectPrincipalColumns + `
WHERE id <> $1
  AND (email ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3
`
	rows, err := s.pgPool.Query(ctx, searchPrincipalsQuery, excludeID, query, limit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to search users")
		return nil, mapError(err)
	}
	defer rows.Close()

	principals := make([]*models.Principal, 0, limit)
	for rows.Next() {
		principal, err := s.scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, principal)
	}
	if err = rows.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, mapError(err)
	}
	return principals, nil
}

func (s *postgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   created_by,
                   title,
                   description,
                   status,
                   priority,
                   due_date,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.CreatedBy,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return mapError(err)
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")
	return nil
}

const selectTaskColumns = `
SELECT id,
       created_by,
       title,
       description,
       status,
       priority,
       due_date,
       created_at,
       updated_at
FROM tasks
`

func (s *postgresStore) scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.CreatedBy,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error().
			Err(err).
			Msg("failed to scan task")
		return nil, mapError(err)
	}
	return task, nil
}

func (s *postgresStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	const getTaskQuery = selectTaskColumns + `WHERE id = $1`
	return s.scanTask(s.pgPool.QueryRow(ctx, getTaskQuery, id))
}

func (s *postgresStore) ListTasksForPrincipal(ctx context.Context, principalID string) ([]*models.Task, error) {
	const listTasksQuery = selectTaskColumns + `
WHERE created_by = $1
   OR id IN (SELECT task_id FROM collaborators WHERE user_id = $1)
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, listTasksQuery, principalID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", principalID).
			Msg("failed to select tasks")
		return nil, mapError(err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, mapError(err)
	}
	return tasks, nil
}

func (s *postgresStore) UpdateTask(ctx context.Context, task *models.Task) error {
	// The single-statement update is the per-row serialization point:
	// concurrent writers to the same task queue on the row lock, and the
	// GREATEST clause keeps updated_at strictly increasing even when two
	// commits land within one clock tick.
	const updateTaskQuery = `
UPDATE tasks
SET title       = $1,
    description = $2,
    status      = $3,
    priority    = $4,
    due_date    = $5,
    updated_at  = GREATEST($6, updated_at + interval '1 microsecond')
WHERE id = $7
RETURNING updated_at
`
	err := s.pgPool.QueryRow(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.UpdatedAt,
		task.ID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return mapError(err)
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("updated task")
	return nil
}

func (s *postgresStore) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return mapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const deleteCollaboratorsQuery = `
DELETE FROM collaborators
WHERE task_id = $1
`
	_, err = tx.Exec(ctx, deleteCollaboratorsQuery, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete collaborators")
		return mapError(err)
	}

	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := tx.Exec(ctx, deleteTaskQuery, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return mapError(err)
	}
	s.logger.Debug().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *postgresStore) ListCollaborators(ctx context.Context, taskID string) ([]*models.Collaborator, error) {
	const listCollaboratorsQuery = `
SELECT id,
       task_id,
       user_id,
       permission,
       created_at
FROM collaborators
WHERE task_id = $1
ORDER BY created_at
`
	rows, err := s.pgPool.Query(ctx, listCollaboratorsQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select collaborators")
		return nil, mapError(err)
	}
	defer rows.Close()

	var collaborators []*models.Collaborator
	for rows.Next() {
		collaborator := new(models.Collaborator)
		err = rows.Scan(
			&collaborator.ID,
			&collaborator.TaskID,
			&collaborator.UserID,
			&collaborator.Permission,
			&collaborator.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan collaborator")
			return nil, mapError(err)
		}
		collaborators = append(collaborators, collaborator)
	}
	if err = rows.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, mapError(err)
	}
	return collaborators, nil
}

func (s *postgresStore) AddCollaborator(ctx context.Context, collaborator *models.Collaborator) error {
	const insertCollaboratorQuery = `
INSERT INTO collaborators (id,
                           task_id,
                           user_id,
                           permission,
                           created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertCollaboratorQuery,
		collaborator.ID,
		collaborator.TaskID,
		collaborator.UserID,
		collaborator.Permission,
		collaborator.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", collaborator.TaskID).
			Str("user_id", collaborator.UserID).
			Msg("failed to insert collaborator")
		return mapError(err)
	}
	s.logger.Debug().
		Str("task_id", collaborator.TaskID).
		Str("user_id", collaborator.UserID).
		Msg("inserted collaborator")
	return nil
}

func (s *postgresStore) RemoveCollaborator(ctx context.Context, taskID, userID string) (bool, error) {
	const deleteCollaboratorQuery = `
DELETE FROM collaborators
WHERE task_id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteCollaboratorQuery, taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Str("user_id", userID).
			Msg("failed to delete collaborator")
		return false, mapError(err)
	}
	s.logger.Debug().
		Str("task_id", taskID).
		Str("user_id", userID).
		Int64("affected", tag.RowsAffected()).
		Msg("deleted collaborator")
	return tag.RowsAffected() > 0, nil
}
