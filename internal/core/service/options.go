package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
	"github.com/taskboard/taskboard-api/internal/pkg/metrics"
)

// Operation names used for logs, metrics and StepError.Op.
const (
	opTaskCreate  = "task.create"
	opTaskReplace = "task.replace"
	opTaskDelete  = "task.delete"
	opUserCreate  = "user.create"
	opUserReplace = "user.replace"
	opUserDelete  = "user.delete"
)

// Idempotency scopes.
const (
	scopeUsers = "users"
	scopeTasks = "tasks"
)

// Options carries the optional collaborators shared by both services. Any
// nil field disables the corresponding feature.
type Options struct {
	Tx          ports.TxRunner
	Idempotency ports.IdempotencyStore
	Publisher   ports.EventPublisher
	// TaskDefaultLimit overrides query.DefaultTaskLimit when positive.
	TaskDefaultLimit int64
}

func (o Options) taskSchema() query.Schema {
	if o.TaskDefaultLimit > 0 {
		return query.TaskSchema.WithDefaultLimit(o.TaskDefaultLimit)
	}
	return query.TaskSchema
}

// replayID returns the id stored for key, or "" when there is none. Store
// failures are logged and treated as a miss.
func (o Options) replayID(ctx context.Context, log zerolog.Logger, scope, key string) string {
	if o.Idempotency == nil || key == "" {
		return ""
	}
	id, err := o.Idempotency.Lookup(ctx, scope, key)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed, creating anyway")
		return ""
	}
	return id
}

func (o Options) remember(ctx context.Context, log zerolog.Logger, scope, key, id string) {
	if o.Idempotency == nil || key == "" {
		return
	}
	if err := o.Idempotency.Remember(ctx, scope, key, id); err != nil {
		log.Warn().Err(err).Str("scope", scope).Str("id", id).Msg("failed to store idempotency key")
	}
}

func countQuery(collection string, plan query.Plan) {
	kind := "list"
	if plan.CountOnly {
		kind = "count"
	}
	metrics.QueriesTotal.WithLabelValues(collection, kind).Inc()
}

func rejectQuery(collection string) {
	metrics.QueriesTotal.WithLabelValues(collection, "rejected").Inc()
}

// dedupe drops repeated ids keeping first occurrences. A nil input stays nil.
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	var out []string
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}
