package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
	"github.com/taskboard/taskboard-api/internal/pkg/metrics"
)

type taskService struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	events ports.EventRepository
	opts   Options
	schema query.Schema
	runner runner
	log    zerolog.Logger
}

// NewTaskService returns a TaskService implementation.
func NewTaskService(
	users ports.UserRepository,
	tasks ports.TaskRepository,
	events ports.EventRepository,
	opts Options,
	log zerolog.Logger,
) ports.TaskService {
	return &taskService{
		users:  users,
		tasks:  tasks,
		events: events,
		opts:   opts,
		schema: opts.taskSchema(),
		runner: runner{tx: opts.Tx, log: log},
		log:    log,
	}
}

func (s *taskService) ListTasks(ctx context.Context, params query.Params) (*ports.ListResult, error) {
	plan, err := query.Parse(params, s.schema)
	if err != nil {
		rejectQuery(s.schema.Collection)
		return nil, err
	}
	countQuery(s.schema.Collection, plan)
	return list(ctx, s.tasks, plan)
}

func (s *taskService) GetTask(ctx context.Context, id string, params query.Params) (query.Document, error) {
	projection, err := query.ProjectionOnly(params, s.schema)
	if err != nil {
		return nil, err
	}
	return s.tasks.Get(ctx, id, projection)
}

// CreateTask stores a new task. When it is assigned, the owner's pending
// list gains the new id before the task itself is written.
func (s *taskService) CreateTask(ctx context.Context, in ports.TaskInput, idempotencyKey string) (*domain.Task, error) {
	in = normalizeTask(in)
	if err := validateTask(in); err != nil {
		return nil, err
	}
	if existing := s.replay(ctx, idempotencyKey); existing != nil {
		return existing, nil
	}

	var (
		created *domain.Task
		ev      *eventLog
	)
	err := s.runner.run(ctx, opTaskCreate, func(ctx context.Context) error {
		ev = &eventLog{op: opTaskCreate}
		task := &domain.Task{
			ID:          domain.NewID(),
			Name:        in.Name,
			Description: in.Description,
			Deadline:    in.Deadline,
			Completed:   in.Completed,
			DateCreated: time.Now().UTC(),
		}
		task.Unassign()

		sg := newSaga(opTaskCreate)
		if in.AssignedUser != "" {
			owner, err := findAssignee(ctx, s.users, in.AssignedUser)
			if err != nil {
				return err
			}
			task.AssignTo(owner)
			ev.transition(task.ID, "", owner.ID)
			sg.then("push-pending-task", func(ctx context.Context) error {
				return s.users.PushPendingTask(ctx, owner.ID, task.ID)
			})
		}
		sg.then("insert-task", func(ctx context.Context) error {
			var err error
			created, err = s.tasks.Create(ctx, task)
			return err
		})
		return sg.execute(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.opts.remember(ctx, s.log, scopeTasks, idempotencyKey, created.ID)
	ev.flush(s.opts.Publisher)

	s.log.Info().
		Str("task_id", created.ID).
		Str("assigned_user", created.AssignedUser).
		Msg("task created")
	return created, nil
}

// ReplaceTask overwrites a task. A change of owner moves the id between the
// two users' pending lists; the task write is applied last.
func (s *taskService) ReplaceTask(ctx context.Context, id string, in ports.TaskInput) (*domain.Task, error) {
	in = normalizeTask(in)
	if err := validateTask(in); err != nil {
		return nil, err
	}

	var (
		updated *domain.Task
		ev      *eventLog
	)
	err := s.runner.run(ctx, opTaskReplace, func(ctx context.Context) error {
		ev = &eventLog{op: opTaskReplace}
		current, err := s.tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}

		next := *current
		next.Name = in.Name
		next.Description = in.Description
		next.Deadline = in.Deadline
		next.Completed = in.Completed

		sg := newSaga(opTaskReplace)
		from, to := current.AssignedUser, in.AssignedUser
		if from != to {
			if to == "" {
				next.Unassign()
			} else {
				owner, err := findAssignee(ctx, s.users, to)
				if err != nil {
					return err
				}
				next.AssignTo(owner)
			}
			if from != "" {
				sg.then("pull-from-previous-owner", func(ctx context.Context) error {
					return s.users.PullPendingTask(ctx, from, current.ID)
				})
			}
			if to != "" {
				sg.then("push-to-new-owner", func(ctx context.Context) error {
					return s.users.PushPendingTask(ctx, to, current.ID)
				})
			}
			ev.transition(current.ID, from, to)
		}
		sg.then("replace-task", func(ctx context.Context) error {
			var err error
			updated, err = s.tasks.Replace(ctx, &next)
			return err
		})
		return sg.execute(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("replace task: %w", err)
	}

	ev.flush(s.opts.Publisher)
	s.log.Info().
		Str("task_id", updated.ID).
		Str("assigned_user", updated.AssignedUser).
		Msg("task updated")
	return updated, nil
}

func (s *taskService) DeleteTask(ctx context.Context, id string) error {
	var ev *eventLog
	err := s.runner.run(ctx, opTaskDelete, func(ctx context.Context) error {
		ev = &eventLog{op: opTaskDelete}
		current, err := s.tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}

		sg := newSaga(opTaskDelete)
		if owner := current.AssignedUser; owner != "" {
			sg.then("pull-from-owner", func(ctx context.Context) error {
				return s.users.PullPendingTask(ctx, owner, current.ID)
			})
		}
		sg.then("delete-task", func(ctx context.Context) error {
			return s.tasks.Delete(ctx, current.ID)
		})
		ev.add(current.ID, domain.EventTaskDeleted, current.AssignedUser, "")
		return sg.execute(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	ev.flush(s.opts.Publisher)
	s.log.Info().Str("task_id", id).Msg("task deleted")
	return nil
}

// TaskHistory returns the audit trail of a task. Deleted tasks keep their
// history; an id with neither history nor a stored task is not found.
func (s *taskService) TaskHistory(ctx context.Context, id string) ([]domain.AssignmentEvent, error) {
	if !domain.IsValidID(id) {
		return nil, domain.ErrTaskNotFound
	}
	if s.events == nil {
		return nil, fmt.Errorf("task history: %w: audit trail disabled", domain.ErrStoreUnavailable)
	}
	events, err := s.events.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	if len(events) == 0 {
		if _, err := s.tasks.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	if events == nil {
		events = []domain.AssignmentEvent{}
	}
	return events, nil
}

func (s *taskService) replay(ctx context.Context, key string) *domain.Task {
	id := s.opts.replayID(ctx, s.log, scopeTasks, key)
	if id == "" {
		return nil
	}
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("task_id", id).Msg("idempotency key points at a missing task")
		return nil
	}
	metrics.IdempotentReplaysTotal.WithLabelValues(scopeTasks).Inc()
	return task
}

func normalizeTask(in ports.TaskInput) ports.TaskInput {
	in.Name = strings.TrimSpace(in.Name)
	in.AssignedUser = strings.TrimSpace(in.AssignedUser)
	return in
}

func validateTask(in ports.TaskInput) error {
	if in.Name == "" || in.Deadline.IsZero() {
		return domain.Validationf("name and deadline are required")
	}
	return nil
}

// findAssignee resolves a user referenced by a payload. A missing user is a
// reference error rather than a not-found.
func findAssignee(ctx context.Context, users ports.UserRepository, id string) (*domain.User, error) {
	if !domain.IsValidID(id) {
		return nil, &domain.ReferenceError{Kind: domain.RefUser, ID: id}
	}
	u, err := users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, &domain.ReferenceError{Kind: domain.RefUser, ID: id}
	}
	return u, err
}
