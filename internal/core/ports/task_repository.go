package ports

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// TaskRepository is the tasks half of the entity store. Every method may
// fail with an error wrapping domain.ErrStoreUnavailable.
type TaskRepository interface {
	// Create inserts t keeping a pre-set t.ID.
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	// FindByIDs returns the tasks that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Task, error)
	// Replace overwrites every mutable field of the stored task.
	Replace(ctx context.Context, t *domain.Task) (*domain.Task, error)
	// SetAssignment points the given tasks at userID with the userName snapshot.
	SetAssignment(ctx context.Context, ids []string, userID, userName string) (int64, error)
	// UnassignOwnedBy clears every task assigned to userID. When ids is
	// non-nil only those tasks are considered.
	UnassignOwnedBy(ctx context.Context, userID string, ids []string) (int64, error)
	// RenameAssignee refreshes the name snapshot on every task owned by userID.
	RenameAssignee(ctx context.Context, userID, userName string) (int64, error)
	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string, projection bson.D) (query.Document, error)
	List(ctx context.Context, plan query.Plan) ([]query.Document, error)
	Count(ctx context.Context, filter bson.D) (int64, error)
}
