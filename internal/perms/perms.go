// Package perms decides whether a principal may act on a task. The
// decision is a pure function over the snapshot the caller supplies;
// nothing is cached, so callers must load fresh task and grant state
// before every mutating call.
package perms

import "github.com/taskshare/taskshare/internal/models"

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionShare  Action = "share"
	ActionDelete Action = "delete"
)

// Can reports whether the principal may perform action on the task,
// given the task's current collaborator grants.
//
// The owner may do everything. Share and delete are owner-only:
// ownership is neither transferable nor delegable, so a write
// collaborator can never manage grants or delete the task.
func Can(principalID string, task *models.Task, grants []*models.Collaborator, action Action) bool {
	if task == nil || principalID == "" {
		return false
	}
	if principalID == task.CreatedBy {
		return true
	}

	switch action {
	case ActionRead:
		return hasGrant(principalID, task.ID, grants, "")
	case ActionWrite:
		return hasGrant(principalID, task.ID, grants, models.PermissionWrite)
	case ActionShare, ActionDelete:
		return false
	default:
		return false
	}
}

// hasGrant reports whether principalID holds a grant on taskID. An empty
// permission matches any grant level.
func hasGrant(principalID, taskID string, grants []*models.Collaborator, permission string) bool {
	for _, grant := range grants {
		if grant == nil || grant.TaskID != taskID || grant.UserID != principalID {
			continue
		}
		if permission == "" || grant.Permission == permission {
			return true
		}
	}
	return false
}
