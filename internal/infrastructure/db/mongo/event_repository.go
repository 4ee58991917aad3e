package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskboard/taskboard-api/internal/core/domain"
)

// EventRepository implements ports.EventRepository on the
// assignment_events audit collection.
type EventRepository struct {
	col *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(collectionAssignmentEvents)}
}

func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "taskId", Value: 1}, {Key: "at", Value: 1}},
	})
	return err
}

// InsertAssignmentEvent persists one transition to the audit trail.
func (r *EventRepository) InsertAssignmentEvent(ctx context.Context, event *domain.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := assignmentEventDocument{
		TaskID:    event.TaskID,
		Type:      string(event.Type),
		FromUser:  event.FromUser,
		ToUser:    event.ToUser,
		Operation: event.Operation,
		At:        event.At.UTC(),
	}
	_, err := r.col.InsertOne(ctx, doc)
	return storeErr("insert assignment event", err)
}

func (r *EventRepository) ListByTask(ctx context.Context, taskID string) ([]domain.AssignmentEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"taskId": taskID}, opts)
	if err != nil {
		return nil, storeErr("list assignment events", err)
	}
	var docs []assignmentEventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("list assignment events", err)
	}
	out := make([]domain.AssignmentEvent, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}
