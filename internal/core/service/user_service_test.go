package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// ---------------------------------------------------------------------------
// Ownership lifecycle, run as one story against the same store
// ---------------------------------------------------------------------------

func TestOwnershipLifecycle(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	// A: Ann gets T1 on creation.
	ann, err := f.users.CreateUser(ctx, ports.UserInput{Name: "Ann", Email: "a@x.com"}, "")
	if err != nil {
		t.Fatalf("create Ann: %v", err)
	}
	t1, err := f.tasks.CreateTask(ctx, taskInput("T1", ann.ID), "")
	if err != nil {
		t.Fatalf("create T1: %v", err)
	}
	if t1.AssignedUserName != "Ann" || !slices.Equal(f.store.users[ann.ID].PendingTasks, []string{t1.ID}) {
		t.Fatalf("A: task %+v, Ann %+v", t1, f.store.users[ann.ID])
	}
	assertConsistent(t, f.store)

	// B: T1 moves to Bob.
	bob, err := f.users.CreateUser(ctx, ports.UserInput{Name: "Bob", Email: "b@x.com"}, "")
	if err != nil {
		t.Fatalf("create Bob: %v", err)
	}
	t1, err = f.tasks.ReplaceTask(ctx, t1.ID, taskInput("T1", bob.ID))
	if err != nil {
		t.Fatalf("B: %v", err)
	}
	if len(f.store.users[ann.ID].PendingTasks) != 0 ||
		!slices.Equal(f.store.users[bob.ID].PendingTasks, []string{t1.ID}) ||
		t1.AssignedUserName != "Bob" {
		t.Fatalf("B: Ann %v, Bob %v, task %+v", f.store.users[ann.ID].PendingTasks, f.store.users[bob.ID].PendingTasks, t1)
	}
	assertConsistent(t, f.store)

	// C: clear the assignment.
	t1, err = f.tasks.ReplaceTask(ctx, t1.ID, taskInput("T1", ""))
	if err != nil {
		t.Fatalf("C: %v", err)
	}
	if t1.AssignedUser != "" || t1.AssignedUserName != domain.UnassignedName {
		t.Fatalf("C: task %+v", t1)
	}
	assertConsistent(t, f.store)

	// D: Bob takes T1 back, then is deleted.
	if _, err := f.tasks.ReplaceTask(ctx, t1.ID, taskInput("T1", bob.ID)); err != nil {
		t.Fatalf("D reassign: %v", err)
	}
	if err := f.users.DeleteUser(ctx, bob.ID); err != nil {
		t.Fatalf("D delete: %v", err)
	}
	if got := f.store.tasks[t1.ID]; got.AssignedUser != "" || got.AssignedUserName != domain.UnassignedName {
		t.Fatalf("D: task %+v", got)
	}
	assertConsistent(t, f.store)

	// E: a task for a missing user is rejected with nothing written.
	before := len(f.store.tasks)
	if _, err := f.tasks.CreateTask(ctx, taskInput("T2", domain.NewID()), ""); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("E: want ErrInvalidReference, got %v", err)
	}
	if len(f.store.tasks) != before {
		t.Fatal("E: task created")
	}
	assertConsistent(t, f.store)

	var types []domain.AssignmentEventType
	for _, ev := range f.events.published {
		types = append(types, ev.Type)
	}
	want := []domain.AssignmentEventType{
		domain.EventAssigned, domain.EventTransferred, domain.EventUnassigned,
		domain.EventAssigned, domain.EventOwnerDeleted,
	}
	if !slices.Equal(types, want) {
		t.Errorf("event types = %v, want %v", types, want)
	}
}

// ---------------------------------------------------------------------------
// CreateUser
// ---------------------------------------------------------------------------

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(Options{})
	f.store.seedUser("Ann", "a@x.com")

	_, err := f.users.CreateUser(context.Background(), ports.UserInput{Name: "Other", Email: "a@x.com"}, "")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
	if len(f.store.users) != 1 {
		t.Errorf("users = %d, want 1", len(f.store.users))
	}
}

func TestCreateUser_Validation(t *testing.T) {
	f := newFixture(Options{})
	cases := map[string]ports.UserInput{
		"no name":  {Email: "a@x.com"},
		"no email": {Name: "Ann"},
		"blank":    {Name: " ", Email: " "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.users.CreateUser(context.Background(), in, ""); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateUser_TakesOverPendingTasks(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	t1 := f.store.seedTask("T1", ann)
	t2 := f.store.seedTask("T2", nil)

	bob, err := f.users.CreateUser(context.Background(),
		ports.UserInput{Name: "Bob", Email: "b@x.com", PendingTasks: []string{t1.ID, t2.ID, t1.ID}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(bob.PendingTasks, []string{t1.ID, t2.ID}) {
		t.Errorf("Bob.pendingTasks = %v", bob.PendingTasks)
	}
	if len(f.store.users[ann.ID].PendingTasks) != 0 {
		t.Errorf("Ann still lists %v", f.store.users[ann.ID].PendingTasks)
	}
	assertConsistent(t, f.store)
}

func TestCreateUser_UnknownPendingTask(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.users.CreateUser(context.Background(),
		ports.UserInput{Name: "Ann", Email: "a@x.com", PendingTasks: []string{domain.NewID()}}, "")

	var ref *domain.ReferenceError
	if !errors.As(err, &ref) || ref.Kind != domain.RefTask {
		t.Fatalf("want task ReferenceError, got %v", err)
	}
	if len(f.store.users) != 0 {
		t.Error("user created")
	}
}

func TestCreateUser_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(Options{Idempotency: &stubIdempotency{}})
	in := ports.UserInput{Name: "Ann", Email: "a@x.com"}

	first, err := f.users.CreateUser(context.Background(), in, "k")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.users.CreateUser(context.Background(), in, "k")
	if err != nil {
		t.Fatalf("replay should not hit the duplicate email check: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay returned %s, want %s", second.ID, first.ID)
	}
}

// ---------------------------------------------------------------------------
// ReplaceUser
// ---------------------------------------------------------------------------

func TestReplaceUser_PendingTasksReconciliation(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	bob := f.store.seedUser("Bob", "b@x.com")
	kept := f.store.seedTask("kept", ann)
	dropped := f.store.seedTask("dropped", ann)
	stolen := f.store.seedTask("stolen", bob)
	free := f.store.seedTask("free", nil)

	updated, err := f.users.ReplaceUser(context.Background(), ann.ID, ports.UserInput{
		Name:         "Ann",
		Email:        "a@x.com",
		PendingTasks: []string{kept.ID, stolen.ID, free.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(updated.PendingTasks, []string{kept.ID, stolen.ID, free.ID}) {
		t.Errorf("pendingTasks = %v", updated.PendingTasks)
	}
	if got := f.store.tasks[dropped.ID]; got.IsAssigned() {
		t.Errorf("dropped task still assigned: %+v", got)
	}
	if len(f.store.users[bob.ID].PendingTasks) != 0 {
		t.Errorf("Bob still lists %v", f.store.users[bob.ID].PendingTasks)
	}
	assertConsistent(t, f.store)

	if last := f.store.mutations(); last[len(last)-1] != "users.Replace" {
		t.Errorf("user document should be written last, got %v", last)
	}
}

func TestReplaceUser_EmptyListUnassignsEverything(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	f.store.seedTask("T1", ann)
	f.store.seedTask("T2", ann)

	updated, err := f.users.ReplaceUser(context.Background(), ann.ID,
		ports.UserInput{Name: "Ann", Email: "a@x.com", PendingTasks: []string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.PendingTasks) != 0 {
		t.Errorf("pendingTasks = %v", updated.PendingTasks)
	}
	assertConsistent(t, f.store)
	if len(f.events.published) != 2 {
		t.Errorf("published %d events, want 2", len(f.events.published))
	}
}

func TestReplaceUser_AbsentListKeepsTasksAndRefreshesName(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	t1 := f.store.seedTask("T1", ann)

	updated, err := f.users.ReplaceUser(context.Background(), ann.ID, ports.UserInput{Name: "Annie", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(updated.PendingTasks, []string{t1.ID}) {
		t.Errorf("pendingTasks = %v", updated.PendingTasks)
	}
	if got := f.store.tasks[t1.ID].AssignedUserName; got != "Annie" {
		t.Errorf("AssignedUserName = %q, want Annie", got)
	}
	assertConsistent(t, f.store)
}

func TestReplaceUser_EmailConflictHasNoSideEffects(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	f.store.seedUser("Bob", "b@x.com")
	f.store.seedTask("T1", ann)

	_, err := f.users.ReplaceUser(context.Background(), ann.ID,
		ports.UserInput{Name: "Ann", Email: "b@x.com", PendingTasks: []string{}})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
	if len(f.store.mutations()) != 0 {
		t.Errorf("mutations = %v", f.store.mutations())
	}
}

func TestReplaceUser_SameEmailIsNotAConflict(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")

	if _, err := f.users.ReplaceUser(context.Background(), ann.ID, ports.UserInput{Name: "Ann B", Email: "a@x.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(f.store.calls, "users.FindByEmail") {
		t.Error("unchanged email should not be re-checked")
	}
}

func TestReplaceUser_UnknownTaskRejected(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	f.store.seedTask("T1", ann)

	_, err := f.users.ReplaceUser(context.Background(), ann.ID,
		ports.UserInput{Name: "Ann", Email: "a@x.com", PendingTasks: []string{"bogus"}})
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("want ErrInvalidReference, got %v", err)
	}
	if len(f.store.mutations()) != 0 {
		t.Errorf("mutations = %v", f.store.mutations())
	}
}

func TestReplaceUser_NotFound(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.users.ReplaceUser(context.Background(), domain.NewID(), ports.UserInput{Name: "A", Email: "a@x.com"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestReplaceUser_MidSequenceFailureKeepsAppliedSteps(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	t1 := f.store.seedTask("T1", nil)
	f.store.failOn = "users.Replace"

	_, err := f.users.ReplaceUser(context.Background(), ann.ID,
		ports.UserInput{Name: "Ann", Email: "a@x.com", PendingTasks: []string{t1.ID}})

	var se *StepError
	if !errors.As(err, &se) || se.Step != "replace-user" || !se.Partial() {
		t.Fatalf("want partial StepError at replace-user, got %v", err)
	}
	if f.store.tasks[t1.ID].AssignedUser != ann.ID {
		t.Error("applied steps should not be rolled back")
	}
	if len(f.events.published) != 0 {
		t.Error("events published for a failed operation")
	}
}

// ---------------------------------------------------------------------------
// DeleteUser
// ---------------------------------------------------------------------------

func TestDeleteUser_UnassignsOwnedTasks(t *testing.T) {
	f := newFixture(Options{})
	ann := f.store.seedUser("Ann", "a@x.com")
	bob := f.store.seedUser("Bob", "b@x.com")
	t1 := f.store.seedTask("T1", ann)
	t2 := f.store.seedTask("T2", bob)

	if err := f.users.DeleteUser(context.Background(), ann.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.tasks[t1.ID].IsAssigned() {
		t.Error("T1 still assigned")
	}
	if f.store.tasks[t2.ID].AssignedUser != bob.ID {
		t.Error("T2 should stay with Bob")
	}
	if _, ok := f.store.users[ann.ID]; ok {
		t.Error("user not deleted")
	}
	assertConsistent(t, f.store)
}

func TestDeleteUser_NotFound(t *testing.T) {
	f := newFixture(Options{})

	if err := f.users.DeleteUser(context.Background(), domain.NewID()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
	if len(f.store.mutations()) != 0 {
		t.Errorf("mutations = %v", f.store.mutations())
	}
}

// ---------------------------------------------------------------------------
// Reads and helpers
// ---------------------------------------------------------------------------

func TestListUsers_Unbounded(t *testing.T) {
	f := newFixture(Options{})

	if _, err := f.users.ListUsers(context.Background(), query.Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.lastPlan.Limit != 0 {
		t.Errorf("users listing limit = %d, want unbounded", f.store.lastPlan.Limit)
	}
}

func TestListUsers_Count(t *testing.T) {
	f := newFixture(Options{})
	f.store.seedUser("Ann", "a@x.com")
	f.store.seedUser("Bob", "b@x.com")

	res, err := f.users.ListUsers(context.Background(), query.Params{"count": "true", "where": `{"name": "Ann"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.CountOnly || res.Count != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(f.store.lastPlan.Filter) != 1 {
		t.Errorf("count filter = %v", f.store.lastPlan.Filter)
	}
}

func TestDedupeAndWithout(t *testing.T) {
	if got := dedupe([]string{"a", "b", "a", "c", "b"}); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("dedupe = %v", got)
	}
	if dedupe(nil) != nil {
		t.Error("dedupe(nil) should stay nil")
	}
	if got := without([]string{"a", "b", "c"}, []string{"b"}); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("without = %v", got)
	}
}
