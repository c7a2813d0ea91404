package models

import "time"

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

func IsValidPermission(permission string) bool {
	return permission == PermissionRead || permission == PermissionWrite
}

// Collaborator grants a non-owner read or write access to a task.
// Unique per (TaskID, UserID) pair; the task owner never appears here.
type Collaborator struct {
	ID         string
	TaskID     string
	UserID     string
	Permission string
	CreatedAt  time.Time
}

type CollaboratorView struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	UserAvatar string `json:"user_avatar"`
}
