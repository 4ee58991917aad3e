package ports

import (
	"context"

	"github.com/taskboard/taskboard-api/internal/core/domain"
)

// EventRepository persists the assignment audit trail.
type EventRepository interface {
	InsertAssignmentEvent(ctx context.Context, event *domain.AssignmentEvent) error
	// ListByTask returns a task's events oldest first.
	ListByTask(ctx context.Context, taskID string) ([]domain.AssignmentEvent, error)
}

// EventPublisher hands completed transitions to the audit pipeline. Publish
// must not block the caller on persistence.
type EventPublisher interface {
	Publish(event domain.AssignmentEvent)
}
