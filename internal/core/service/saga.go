package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/pkg/metrics"
)

// StepError reports a multi-step mutation that stopped part way. Steps listed
// in Completed were applied and are not rolled back unless the operation ran
// inside a transaction.
type StepError struct {
	Op        string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s (after %s): %v", e.Op, e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Partial reports whether side effects were left behind.
func (e *StepError) Partial() bool { return len(e.Completed) > 0 }

type step struct {
	name string
	run  func(ctx context.Context) error
}

// saga is an ordered list of forward steps executed strictly in sequence.
type saga struct {
	op    string
	steps []step
}

func newSaga(op string) *saga {
	return &saga{op: op}
}

func (s *saga) then(name string, fn func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, step{name: name, run: fn})
	return s
}

func (s *saga) execute(ctx context.Context) error {
	completed := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		if err := st.run(ctx); err != nil {
			return &StepError{Op: s.op, Step: st.name, Completed: completed, Err: err}
		}
		completed = append(completed, st.name)
		metrics.StepsTotal.WithLabelValues(s.op, st.name).Inc()
	}
	return nil
}

// runner executes operations either directly or inside the store's
// transaction primitive when one is configured.
type runner struct {
	tx  ports.TxRunner
	log zerolog.Logger
}

// run executes fn, the read-validate-saga body of operation op, and records
// its duration. fn may be retried as a whole by the transaction runner.
func (r runner) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	var err error
	if r.tx != nil {
		err = r.tx.WithinTransaction(ctx, fn)
	} else {
		err = fn(ctx)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.OperationDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())

	var se *StepError
	if errors.As(err, &se) && se.Partial() && r.tx == nil {
		metrics.PartialFailuresTotal.WithLabelValues(op, se.Step).Inc()
		r.log.Error().Err(se.Err).
			Str("operation", op).
			Str("step", se.Step).
			Strs("completed", se.Completed).
			Msg("operation failed with partial side effects")
	}
	return err
}
