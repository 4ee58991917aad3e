package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// ---------------------------------------------------------------------------
// In-memory entity store shared by the user and task stubs
// ---------------------------------------------------------------------------

var errStoreDown = fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)

type memStore struct {
	users map[string]*domain.User
	tasks map[string]*domain.Task

	failOn   string // "users.Create", "tasks.Replace", ...; empty = never fail
	calls    []string
	lastPlan query.Plan
	lastProj bson.D
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*domain.User),
		tasks: make(map[string]*domain.Task),
	}
}

func (m *memStore) call(op string) error {
	m.calls = append(m.calls, op)
	if m.failOn == op {
		return errStoreDown
	}
	return nil
}

// mutations returns the recorded calls that change state.
func (m *memStore) mutations() []string {
	var out []string
	for _, c := range m.calls {
		switch c {
		case "users.FindByID", "users.FindByEmail", "users.Get", "users.List", "users.Count",
			"tasks.FindByID", "tasks.FindByIDs", "tasks.Get", "tasks.List", "tasks.Count":
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *memStore) seedUser(name, email string) *domain.User {
	u := &domain.User{ID: domain.NewID(), Name: name, Email: email, PendingTasks: []string{}}
	m.users[u.ID] = u
	return u
}

func (m *memStore) seedTask(name string, owner *domain.User) *domain.Task {
	t := &domain.Task{ID: domain.NewID(), Name: name, Deadline: time.Now()}
	t.Unassign()
	if owner != nil {
		t.AssignTo(owner)
		owner.PendingTasks = append(owner.PendingTasks, t.ID)
	}
	m.tasks[t.ID] = t
	return t
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.PendingTasks = slices.Clone(u.PendingTasks)
	return &c
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

// ---------------------------------------------------------------------------
// ports.UserRepository
// ---------------------------------------------------------------------------

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if err := r.call("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if err := r.call("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := r.call("users.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) Replace(_ context.Context, u *domain.User) (*domain.User, error) {
	if err := r.call("users.Replace"); err != nil {
		return nil, err
	}
	if _, ok := r.users[u.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	r.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (r memUsers) PushPendingTask(_ context.Context, userID, taskID string) error {
	if err := r.call("users.PushPendingTask"); err != nil {
		return err
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !slices.Contains(u.PendingTasks, taskID) {
		u.PendingTasks = append(u.PendingTasks, taskID)
	}
	return nil
}

func (r memUsers) PullPendingTask(_ context.Context, userID, taskID string) error {
	if err := r.call("users.PullPendingTask"); err != nil {
		return err
	}
	if u, ok := r.users[userID]; ok {
		u.PendingTasks = slices.DeleteFunc(u.PendingTasks, func(id string) bool { return id == taskID })
	}
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	if err := r.call("users.Delete"); err != nil {
		return err
	}
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r memUsers) Get(_ context.Context, id string, projection bson.D) (query.Document, error) {
	if err := r.call("users.Get"); err != nil {
		return nil, err
	}
	r.lastProj = projection
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return query.Document{"_id": u.ID, "name": u.Name, "email": u.Email}, nil
}

func (r memUsers) List(_ context.Context, plan query.Plan) ([]query.Document, error) {
	if err := r.call("users.List"); err != nil {
		return nil, err
	}
	r.lastPlan = plan
	var out []query.Document
	for _, u := range r.users {
		out = append(out, query.Document{"_id": u.ID, "name": u.Name})
	}
	return out, nil
}

func (r memUsers) Count(_ context.Context, filter bson.D) (int64, error) {
	if err := r.call("users.Count"); err != nil {
		return 0, err
	}
	r.lastPlan = query.Plan{Filter: filter, CountOnly: true}
	return int64(len(r.users)), nil
}

// ---------------------------------------------------------------------------
// ports.TaskRepository
// ---------------------------------------------------------------------------

type memTasks struct{ *memStore }

func (r memTasks) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	if err := r.call("tasks.Create"); err != nil {
		return nil, err
	}
	r.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (r memTasks) FindByID(_ context.Context, id string) (*domain.Task, error) {
	if err := r.call("tasks.FindByID"); err != nil {
		return nil, err
	}
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r memTasks) FindByIDs(_ context.Context, ids []string) ([]*domain.Task, error) {
	if err := r.call("tasks.FindByIDs"); err != nil {
		return nil, err
	}
	var out []*domain.Task
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (r memTasks) Replace(_ context.Context, t *domain.Task) (*domain.Task, error) {
	if err := r.call("tasks.Replace"); err != nil {
		return nil, err
	}
	if _, ok := r.tasks[t.ID]; !ok {
		return nil, domain.ErrTaskNotFound
	}
	r.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (r memTasks) SetAssignment(_ context.Context, ids []string, userID, userName string) (int64, error) {
	if err := r.call("tasks.SetAssignment"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			t.AssignedUser, t.AssignedUserName = userID, userName
			n++
		}
	}
	return n, nil
}

func (r memTasks) UnassignOwnedBy(_ context.Context, userID string, ids []string) (int64, error) {
	if err := r.call("tasks.UnassignOwnedBy"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.tasks {
		if t.AssignedUser != userID || (ids != nil && !slices.Contains(ids, id)) {
			continue
		}
		t.Unassign()
		n++
	}
	return n, nil
}

func (r memTasks) RenameAssignee(_ context.Context, userID, userName string) (int64, error) {
	if err := r.call("tasks.RenameAssignee"); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range r.tasks {
		if t.AssignedUser == userID {
			t.AssignedUserName = userName
			n++
		}
	}
	return n, nil
}

func (r memTasks) Delete(_ context.Context, id string) error {
	if err := r.call("tasks.Delete"); err != nil {
		return err
	}
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r memTasks) Get(_ context.Context, id string, projection bson.D) (query.Document, error) {
	if err := r.call("tasks.Get"); err != nil {
		return nil, err
	}
	r.lastProj = projection
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return query.Document{"_id": t.ID, "name": t.Name}, nil
}

func (r memTasks) List(_ context.Context, plan query.Plan) ([]query.Document, error) {
	if err := r.call("tasks.List"); err != nil {
		return nil, err
	}
	r.lastPlan = plan
	var out []query.Document
	for _, t := range r.tasks {
		if plan.Limit > 0 && int64(len(out)) == plan.Limit {
			break
		}
		out = append(out, query.Document{"_id": t.ID, "name": t.Name})
	}
	return out, nil
}

func (r memTasks) Count(_ context.Context, filter bson.D) (int64, error) {
	if err := r.call("tasks.Count"); err != nil {
		return 0, err
	}
	r.lastPlan = query.Plan{Filter: filter, CountOnly: true}
	return int64(len(r.tasks)), nil
}

// ---------------------------------------------------------------------------
// Events, idempotency and transactions
// ---------------------------------------------------------------------------

type stubEvents struct {
	mu        sync.Mutex
	published []domain.AssignmentEvent
	stored    map[string][]domain.AssignmentEvent
}

func (e *stubEvents) Publish(ev domain.AssignmentEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, ev)
}

func (e *stubEvents) InsertAssignmentEvent(_ context.Context, ev *domain.AssignmentEvent) error {
	if e.stored == nil {
		e.stored = make(map[string][]domain.AssignmentEvent)
	}
	e.stored[ev.TaskID] = append(e.stored[ev.TaskID], *ev)
	return nil
}

func (e *stubEvents) ListByTask(_ context.Context, taskID string) ([]domain.AssignmentEvent, error) {
	return e.stored[taskID], nil
}

type stubIdempotency struct {
	keys      map[string]string
	lookupErr error
}

func (s *stubIdempotency) Lookup(_ context.Context, scope, key string) (string, error) {
	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	return s.keys[scope+":"+key], nil
}

func (s *stubIdempotency) Remember(_ context.Context, scope, key, id string) error {
	if s.keys == nil {
		s.keys = make(map[string]string)
	}
	s.keys[scope+":"+key] = id
	return nil
}

type stubTx struct{ calls int }

func (s *stubTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	store  *memStore
	events *stubEvents
	users  ports.UserService
	tasks  ports.TaskService
}

func newFixture(opts Options) *fixture {
	store := newMemStore()
	events := &stubEvents{}
	if opts.Publisher == nil {
		opts.Publisher = events
	}
	log := zerolog.Nop()
	return &fixture{
		store:  store,
		events: events,
		users:  NewUserService(memUsers{store}, memTasks{store}, opts, log),
		tasks:  NewTaskService(memUsers{store}, memTasks{store}, events, opts, log),
	}
}

// assertConsistent checks that every task and user agree on ownership and
// that assigned tasks carry their owner's name.
func assertConsistent(t *testing.T, m *memStore) {
	t.Helper()
	listedBy := make(map[string][]string)
	for _, u := range m.users {
		for _, id := range u.PendingTasks {
			listedBy[id] = append(listedBy[id], u.ID)
		}
	}
	for _, task := range m.tasks {
		owners := listedBy[task.ID]
		if !task.IsAssigned() {
			if task.AssignedUserName != domain.UnassignedName {
				t.Errorf("task %s unassigned but named %q", task.ID, task.AssignedUserName)
			}
			if len(owners) != 0 {
				t.Errorf("task %s unassigned but listed by %v", task.ID, owners)
			}
			continue
		}
		owner, ok := m.users[task.AssignedUser]
		if !ok {
			t.Errorf("task %s assigned to missing user %s", task.ID, task.AssignedUser)
			continue
		}
		if len(owners) != 1 || owners[0] != owner.ID {
			t.Errorf("task %s assigned to %s but listed by %v", task.ID, owner.ID, owners)
		}
		if task.AssignedUserName != owner.Name {
			t.Errorf("task %s assignedUserName = %q, want %q", task.ID, task.AssignedUserName, owner.Name)
		}
	}
	for id, owners := range listedBy {
		if _, ok := m.tasks[id]; !ok {
			t.Errorf("users %v list missing task %s", owners, id)
		}
	}
}
