package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskboard/taskboard-api/internal/core/domain"
)

const (
	collectionUsers            = "users"
	collectionTasks            = "tasks"
	collectionAssignmentEvents = "assignment_events"
)

// Stored field names match the JSON names so list queries can address them
// directly.
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PendingTasks []string           `bson:"pendingTasks"`
	DateCreated  time.Time          `bson:"dateCreated"`
}

func newUserDocument(u *domain.User) (userDocument, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return userDocument{}, err
	}
	pending := u.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return userDocument{
		ID:           oid,
		Name:         u.Name,
		Email:        u.Email,
		PendingTasks: pending,
		DateCreated:  u.DateCreated.UTC(),
	}, nil
}

func (d userDocument) toDomain() *domain.User {
	pending := d.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PendingTasks: pending,
		DateCreated:  d.DateCreated,
	}
}

type taskDocument struct {
	ID               primitive.ObjectID `bson:"_id"`
	Name             string             `bson:"name"`
	Description      string             `bson:"description"`
	Deadline         time.Time          `bson:"deadline"`
	Completed        bool               `bson:"completed"`
	AssignedUser     string             `bson:"assignedUser"`
	AssignedUserName string             `bson:"assignedUserName"`
	DateCreated      time.Time          `bson:"dateCreated"`
}

func newTaskDocument(t *domain.Task) (taskDocument, error) {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return taskDocument{}, err
	}
	return taskDocument{
		ID:               oid,
		Name:             t.Name,
		Description:      t.Description,
		Deadline:         t.Deadline.UTC(),
		Completed:        t.Completed,
		AssignedUser:     t.AssignedUser,
		AssignedUserName: t.AssignedUserName,
		DateCreated:      t.DateCreated.UTC(),
	}, nil
}

func (d taskDocument) toDomain() *domain.Task {
	return &domain.Task{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Description:      d.Description,
		Deadline:         d.Deadline,
		Completed:        d.Completed,
		AssignedUser:     d.AssignedUser,
		AssignedUserName: d.AssignedUserName,
		DateCreated:      d.DateCreated,
	}
}

type assignmentEventDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TaskID    string             `bson:"taskId"`
	Type      string             `bson:"type"`
	FromUser  string             `bson:"fromUser,omitempty"`
	ToUser    string             `bson:"toUser,omitempty"`
	Operation string             `bson:"operation"`
	At        time.Time          `bson:"at"`
}

func (d assignmentEventDocument) toDomain() domain.AssignmentEvent {
	return domain.AssignmentEvent{
		TaskID:    d.TaskID,
		Type:      domain.AssignmentEventType(d.Type),
		FromUser:  d.FromUser,
		ToUser:    d.ToUser,
		Operation: d.Operation,
		At:        d.At,
	}
}
