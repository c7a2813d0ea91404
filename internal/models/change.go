package models

const (
	ChangeTaskCreated         = "task_created"
	ChangeTaskUpdated         = "task_updated"
	ChangeTaskDeleted         = "task_deleted"
	ChangeCollaboratorAdded   = "collaborator_added"
	ChangeCollaboratorRemoved = "collaborator_removed"
)

// Change describes one successful mutation. It is produced exactly once
// per mutating call, handed to the broadcaster and then discarded; it is
// never persisted. Which optional fields are set depends on Kind:
//
//	task_created, task_updated  -> Task
//	task_deleted                -> TaskID
//	collaborator_added          -> TaskID, Collaborator
//	collaborator_removed        -> TaskID, Collaborator (user id only)
type Change struct {
	Kind            string            `json:"kind"`
	Task            *TaskView         `json:"task,omitempty"`
	TaskID          string            `json:"task_id,omitempty"`
	Collaborator    *CollaboratorView `json:"collaborator,omitempty"`
	ActingPrincipal PrincipalSummary  `json:"acting_principal"`
}
