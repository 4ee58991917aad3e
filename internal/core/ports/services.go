package ports

import (
	"context"
	"time"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// UserInput is the full document accepted by create and replace. A nil
// PendingTasks leaves the current list unchanged on replace.
type UserInput struct {
	Name         string
	Email        string
	PendingTasks []string
}

// TaskInput is the full document accepted by create and replace. An empty
// AssignedUser means unassigned.
type TaskInput struct {
	Name         string
	Description  string
	Deadline     time.Time
	Completed    bool
	AssignedUser string
}

// ListResult carries either the matching documents or, for count requests,
// only Count.
type ListResult struct {
	Items     []query.Document
	Count     int64
	CountOnly bool
}

// UserService is the user side of the relationship engine.
type UserService interface {
	ListUsers(ctx context.Context, params query.Params) (*ListResult, error)
	GetUser(ctx context.Context, id string, params query.Params) (query.Document, error)
	CreateUser(ctx context.Context, in UserInput, idempotencyKey string) (*domain.User, error)
	ReplaceUser(ctx context.Context, id string, in UserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TaskService is the task side of the relationship engine.
type TaskService interface {
	ListTasks(ctx context.Context, params query.Params) (*ListResult, error)
	GetTask(ctx context.Context, id string, params query.Params) (query.Document, error)
	CreateTask(ctx context.Context, in TaskInput, idempotencyKey string) (*domain.Task, error)
	ReplaceTask(ctx context.Context, id string, in TaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	TaskHistory(ctx context.Context, id string) ([]domain.AssignmentEvent, error)
}
