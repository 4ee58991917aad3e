package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskboard/taskboard-api/internal/core/domain"
)

func TestUserDocument_RoundTrip(t *testing.T) {
	u := &domain.User{
		ID:          domain.NewID(),
		Name:        "Ann",
		Email:       "a@x.com",
		DateCreated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	doc, err := newUserDocument(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.PendingTasks == nil {
		t.Error("nil pendingTasks must be stored as an empty array")
	}
	got := doc.toDomain()
	if got.ID != u.ID || got.Name != "Ann" || !got.DateCreated.Equal(u.DateCreated) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestTaskDocument_RejectsBadID(t *testing.T) {
	if _, err := newTaskDocument(&domain.Task{ID: "not-hex"}); err == nil {
		t.Fatal("expected error for a non-ObjectID id")
	}
}

func TestTaskDocument_StoredFieldNames(t *testing.T) {
	task := &domain.Task{ID: domain.NewID(), Name: "T1", Deadline: time.Now()}
	task.Unassign()

	doc, err := newTaskDocument(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"_id", "name", "description", "deadline", "completed", "assignedUser", "assignedUserName", "dateCreated"} {
		if _, ok := m[field]; !ok {
			t.Errorf("stored document lacks %q", field)
		}
	}
	if m["assignedUserName"] != domain.UnassignedName {
		t.Errorf("assignedUserName = %v", m["assignedUserName"])
	}
}

func TestObjectIDs_DropsInvalid(t *testing.T) {
	valid := domain.NewID()
	got := objectIDs([]string{valid, "nope", ""})
	if len(got) != 1 || got[0].Hex() != valid {
		t.Errorf("objectIDs = %v", got)
	}
}

func TestStoreErr(t *testing.T) {
	if storeErr("op", nil) != nil {
		t.Error("nil error should stay nil")
	}
	cause := errors.New("socket closed")
	err := storeErr("find user", cause)
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, cause) {
		t.Errorf("storeErr chain broken: %v", err)
	}
}

func TestIsNoDocuments(t *testing.T) {
	if !isNoDocuments(mongo.ErrNoDocuments) {
		t.Error("ErrNoDocuments not recognised")
	}
	if isNoDocuments(storeErr("x", errors.New("boom"))) {
		t.Error("store failure mistaken for a miss")
	}
}

func TestFilterOrEmpty(t *testing.T) {
	if f := filterOrEmpty(nil); f == nil || len(f) != 0 {
		t.Errorf("filterOrEmpty(nil) = %#v", f)
	}
}
