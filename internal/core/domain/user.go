package domain

import "time"

// User owns a list of pending task ids. The list holds weak references: a
// user never owns the tasks it lists, tasks point back through AssignedUser.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PendingTasks []string  `json:"pendingTasks"`
	DateCreated  time.Time `json:"dateCreated"`
}

// HasPendingTask reports whether taskID is in the user's pending list.
func (u *User) HasPendingTask(taskID string) bool {
	for _, id := range u.PendingTasks {
		if id == taskID {
			return true
		}
	}
	return false
}
