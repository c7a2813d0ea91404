package models

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func IsValidStatus(status string) bool {
	return status == StatusPending ||
		status == StatusInProgress ||
		status == StatusCompleted
}

func IsValidPriority(priority string) bool {
	return priority == PriorityLow ||
		priority == PriorityMedium ||
		priority == PriorityHigh
}

type Task struct {
	ID          string
	CreatedBy   string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskView is the read projection returned to clients: the task itself
// plus the creator's profile fields and the full collaborator list.
// Collaborators is always non-nil, an empty slice when nobody is granted.
type TaskView struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Status        string             `json:"status"`
	Priority      string             `json:"priority"`
	DueDate       *time.Time         `json:"due_date,omitempty"`
	CreatedBy     string             `json:"created_by"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	CreatorName   string             `json:"creator_name"`
	CreatorEmail  string             `json:"creator_email"`
	CreatorAvatar string             `json:"creator_avatar"`
	Collaborators []CollaboratorView `json:"collaborators"`
}
