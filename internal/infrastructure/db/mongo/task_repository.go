package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// TaskRepository implements ports.TaskRepository on the tasks collection.
type TaskRepository struct {
	col *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{col: db.Collection(collectionTasks)}
}

// EnsureIndexes creates the indexes used by ownership updates and listings.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignedUser", Value: 1}}},
		{Keys: bson.D{{Key: "deadline", Value: 1}}},
		{Keys: bson.D{{Key: "completed", Value: 1}, {Key: "deadline", Value: 1}}},
	})
	return err
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := newTaskDocument(t)
	if err != nil {
		return nil, fmt.Errorf("insert task: invalid id %q: %w", t.ID, err)
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, storeErr("insert task", err)
	}
	return doc.toDomain(), nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}
	var doc taskDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, storeErr("find task", err)
	}
	return doc.toDomain(), nil
}

func (r *TaskRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Task, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, storeErr("find tasks", err)
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("find tasks", err)
	}
	out := make([]*domain.Task, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// Replace overwrites every mutable field and returns the stored result.
func (r *TaskRepository) Replace(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}
	update := bson.M{"$set": bson.M{
		"name":             t.Name,
		"description":      t.Description,
		"deadline":         t.Deadline.UTC(),
		"completed":        t.Completed,
		"assignedUser":     t.AssignedUser,
		"assignedUserName": t.AssignedUserName,
	}}

	var doc taskDocument
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, storeErr("replace task", err)
	}
	return doc.toDomain(), nil
}

func (r *TaskRepository) SetAssignment(ctx context.Context, ids []string, userID, userName string) (int64, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}
	return r.updateMany(ctx, "assign tasks",
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"assignedUser": userID, "assignedUserName": userName},
	)
}

func (r *TaskRepository) UnassignOwnedBy(ctx context.Context, userID string, ids []string) (int64, error) {
	filter := bson.M{"assignedUser": userID}
	if ids != nil {
		oids := objectIDs(ids)
		if len(oids) == 0 {
			return 0, nil
		}
		filter["_id"] = bson.M{"$in": oids}
	}
	return r.updateMany(ctx, "unassign tasks", filter,
		bson.M{"assignedUser": "", "assignedUserName": domain.UnassignedName},
	)
}

func (r *TaskRepository) RenameAssignee(ctx context.Context, userID, userName string) (int64, error) {
	return r.updateMany(ctx, "rename assignee",
		bson.M{"assignedUser": userID},
		bson.M{"assignedUserName": userName},
	)
}

func (r *TaskRepository) updateMany(ctx context.Context, op string, filter, set bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, storeErr(op, err)
	}
	return res.ModifiedCount, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTaskNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storeErr("delete task", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id string, projection bson.D) (query.Document, error) {
	doc, err := getDocument(ctx, r.col, id, projection)
	if isNoDocuments(err) {
		return nil, domain.ErrTaskNotFound
	}
	return doc, err
}

func (r *TaskRepository) List(ctx context.Context, plan query.Plan) ([]query.Document, error) {
	return listDocuments(ctx, r.col, plan)
}

func (r *TaskRepository) Count(ctx context.Context, filter bson.D) (int64, error) {
	return countDocuments(ctx, r.col, filter)
}
