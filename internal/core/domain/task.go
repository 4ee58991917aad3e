package domain

import "time"

// UnassignedName is the display value stored in AssignedUserName while a
// task has no owner.
const UnassignedName = "unassigned"

// Task is a unit of work that may be assigned to at most one user.
type Task struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Deadline         time.Time `json:"deadline"`
	Completed        bool      `json:"completed"`
	AssignedUser     string    `json:"assignedUser"`
	AssignedUserName string    `json:"assignedUserName"`
	DateCreated      time.Time `json:"dateCreated"`
}

// IsAssigned reports whether the task currently points at a user.
func (t *Task) IsAssigned() bool {
	return t.AssignedUser != ""
}

// AssignTo points the task at u and snapshots the user's current name.
func (t *Task) AssignTo(u *User) {
	t.AssignedUser = u.ID
	t.AssignedUserName = u.Name
}

// Unassign clears the owner and resets the name cache to UnassignedName.
func (t *Task) Unassign() {
	t.AssignedUser = ""
	t.AssignedUserName = UnassignedName
}
