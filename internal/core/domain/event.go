package domain

import "time"

// AssignmentEventType names a transition in a task's assignment lifecycle.
type AssignmentEventType string

const (
	EventAssigned     AssignmentEventType = "assigned"
	EventTransferred  AssignmentEventType = "transferred"
	EventUnassigned   AssignmentEventType = "unassigned"
	EventTaskDeleted  AssignmentEventType = "task_deleted"
	EventOwnerDeleted AssignmentEventType = "owner_deleted"
)

// AssignmentEvent is one audited transition of a task between owners.
// FromUser and ToUser are empty when the task was or becomes unassigned.
type AssignmentEvent struct {
	TaskID    string              `json:"taskId"`
	Type      AssignmentEventType `json:"type"`
	FromUser  string              `json:"fromUser,omitempty"`
	ToUser    string              `json:"toUser,omitempty"`
	Operation string              `json:"operation"`
	At        time.Time           `json:"at"`
}

// Transition classifies a move from one owner to another. It returns false
// when the owner did not change.
func Transition(from, to string) (AssignmentEventType, bool) {
	switch {
	case from == to:
		return "", false
	case from == "":
		return EventAssigned, true
	case to == "":
		return EventUnassigned, true
	default:
		return EventTransferred, true
	}
}
