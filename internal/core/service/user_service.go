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

type userService struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	opts   Options
	runner runner
	log    zerolog.Logger
}

// NewUserService returns a UserService implementation.
func NewUserService(
	users ports.UserRepository,
	tasks ports.TaskRepository,
	opts Options,
	log zerolog.Logger,
) ports.UserService {
	return &userService{
		users:  users,
		tasks:  tasks,
		opts:   opts,
		runner: runner{tx: opts.Tx, log: log},
		log:    log,
	}
}

func (s *userService) ListUsers(ctx context.Context, params query.Params) (*ports.ListResult, error) {
	plan, err := query.Parse(params, query.UserSchema)
	if err != nil {
		rejectQuery(query.UserSchema.Collection)
		return nil, err
	}
	countQuery(query.UserSchema.Collection, plan)
	return list(ctx, s.users, plan)
}

func (s *userService) GetUser(ctx context.Context, id string, params query.Params) (query.Document, error) {
	projection, err := query.ProjectionOnly(params, query.UserSchema)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, id, projection)
}

// CreateUser stores a new user. Listed pending tasks are taken over from
// whoever owned them.
func (s *userService) CreateUser(ctx context.Context, in ports.UserInput, idempotencyKey string) (*domain.User, error) {
	in = normalizeUser(in)
	if err := validateUser(in); err != nil {
		return nil, err
	}
	if existing := s.replay(ctx, idempotencyKey); existing != nil {
		return existing, nil
	}

	var (
		created *domain.User
		ev      *eventLog
	)
	err := s.runner.run(ctx, opUserCreate, func(ctx context.Context) error {
		ev = &eventLog{op: opUserCreate}
		if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
			return err
		}
		pending := dedupe(in.PendingTasks)
		if pending == nil {
			pending = []string{}
		}
		listed, err := s.resolveTasks(ctx, pending)
		if err != nil {
			return err
		}

		user := &domain.User{
			ID:           domain.NewID(),
			Name:         in.Name,
			Email:        in.Email,
			PendingTasks: pending,
			DateCreated:  time.Now().UTC(),
		}

		sg := newSaga(opUserCreate)
		s.takeOver(sg, ev, user.ID, listed)
		sg.then("insert-user", func(ctx context.Context) error {
			var err error
			created, err = s.users.Create(ctx, user)
			return err
		})
		if len(pending) > 0 {
			sg.then("assign-listed-tasks", func(ctx context.Context) error {
				_, err := s.tasks.SetAssignment(ctx, pending, user.ID, user.Name)
				return err
			})
		}
		return sg.execute(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.opts.remember(ctx, s.log, scopeUsers, idempotencyKey, created.ID)
	ev.flush(s.opts.Publisher)

	s.log.Info().
		Str("user_id", created.ID).
		Int("pending_tasks", len(created.PendingTasks)).
		Msg("user created")
	return created, nil
}

// ReplaceUser overwrites a user. A non-nil PendingTasks is the complete new
// membership: tasks dropped from it are unassigned, listed tasks are taken
// from their previous owner, and the user document is written last.
func (s *userService) ReplaceUser(ctx context.Context, id string, in ports.UserInput) (*domain.User, error) {
	in = normalizeUser(in)
	if err := validateUser(in); err != nil {
		return nil, err
	}

	var (
		updated *domain.User
		ev      *eventLog
	)
	err := s.runner.run(ctx, opUserReplace, func(ctx context.Context) error {
		ev = &eventLog{op: opUserReplace}
		current, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Email != current.Email {
			if err := s.ensureEmailFree(ctx, in.Email, current.ID); err != nil {
				return err
			}
		}

		next := *current
		next.Name = in.Name
		next.Email = in.Email

		sg := newSaga(opUserReplace)
		if in.PendingTasks == nil {
			if next.Name != current.Name && len(current.PendingTasks) > 0 {
				sg.then("refresh-assigned-name", func(ctx context.Context) error {
					_, err := s.tasks.RenameAssignee(ctx, current.ID, next.Name)
					return err
				})
			}
		} else {
			pending := dedupe(in.PendingTasks)
			listed, err := s.resolveTasks(ctx, pending)
			if err != nil {
				return err
			}

			if removed := without(current.PendingTasks, pending); len(removed) > 0 {
				dropped, err := s.tasks.FindByIDs(ctx, removed)
				if err != nil {
					return err
				}
				for _, t := range dropped {
					if t.AssignedUser == current.ID {
						ev.transition(t.ID, current.ID, "")
					}
				}
				sg.then("unassign-removed-tasks", func(ctx context.Context) error {
					_, err := s.tasks.UnassignOwnedBy(ctx, current.ID, removed)
					return err
				})
			}
			s.takeOver(sg, ev, current.ID, listed)
			if len(pending) > 0 {
				sg.then("assign-listed-tasks", func(ctx context.Context) error {
					_, err := s.tasks.SetAssignment(ctx, pending, current.ID, next.Name)
					return err
				})
			}
			next.PendingTasks = pending
		}

		sg.then("replace-user", func(ctx context.Context) error {
			var err error
			updated, err = s.users.Replace(ctx, &next)
			return err
		})
		return sg.execute(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("replace user: %w", err)
	}

	ev.flush(s.opts.Publisher)
	s.log.Info().
		Str("user_id", updated.ID).
		Int("pending_tasks", len(updated.PendingTasks)).
		Msg("user updated")
	return updated, nil
}

// DeleteUser unassigns every task the user owns, then removes the user.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	var ev *eventLog
	err := s.runner.run(ctx, opUserDelete, func(ctx context.Context) error {
		ev = &eventLog{op: opUserDelete}
		current, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if len(current.PendingTasks) > 0 {
			owned, err := s.tasks.FindByIDs(ctx, current.PendingTasks)
			if err != nil {
				return err
			}
			for _, t := range owned {
				if t.AssignedUser == current.ID {
					ev.add(t.ID, domain.EventOwnerDeleted, current.ID, "")
				}
			}
		}

		return newSaga(opUserDelete).
			then("unassign-owned-tasks", func(ctx context.Context) error {
				_, err := s.tasks.UnassignOwnedBy(ctx, current.ID, nil)
				return err
			}).
			then("delete-user", func(ctx context.Context) error {
				return s.users.Delete(ctx, current.ID)
			}).
			execute(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	ev.flush(s.opts.Publisher)
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// takeOver adds one step per listed task currently owned by another user,
// pulling it from that user's pending list.
func (s *userService) takeOver(sg *saga, ev *eventLog, userID string, listed []*domain.Task) {
	for _, t := range listed {
		taskID, prev := t.ID, t.AssignedUser
		if prev == userID {
			continue
		}
		ev.transition(taskID, prev, userID)
		if prev == "" {
			continue
		}
		sg.then("pull-from-previous-owner", func(ctx context.Context) error {
			return s.users.PullPendingTask(ctx, prev, taskID)
		})
	}
}

// resolveTasks loads every listed task, in list order. Any id that does not
// resolve is a reference error.
func (s *userService) resolveTasks(ctx context.Context, ids []string) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	for _, id := range ids {
		if !domain.IsValidID(id) {
			return nil, &domain.ReferenceError{Kind: domain.RefTask, ID: id}
		}
	}
	found, err := s.tasks.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, &domain.ReferenceError{Kind: domain.RefTask, ID: id}
		}
		out = append(out, t)
	}
	return out, nil
}

// ensureEmailFree fails with ErrDuplicateEmail when a user other than self
// already owns email.
func (s *userService) ensureEmailFree(ctx context.Context, email, self string) error {
	other, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return domain.ErrDuplicateEmail
	}
	return nil
}

func (s *userService) replay(ctx context.Context, key string) *domain.User {
	id := s.opts.replayID(ctx, s.log, scopeUsers, key)
	if id == "" {
		return nil
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("idempotency key points at a missing user")
		return nil
	}
	metrics.IdempotentReplaysTotal.WithLabelValues(scopeUsers).Inc()
	return user
}

func normalizeUser(in ports.UserInput) ports.UserInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func validateUser(in ports.UserInput) error {
	if in.Name == "" || in.Email == "" {
		return domain.Validationf("name and email are required")
	}
	return nil
}
