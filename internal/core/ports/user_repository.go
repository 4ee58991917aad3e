package ports

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

// UserRepository is the users half of the entity store. Every method may
// fail with an error wrapping domain.ErrStoreUnavailable.
type UserRepository interface {
	// Create inserts u. A pre-set u.ID is kept; duplicate emails fail with
	// domain.ErrDuplicateEmail.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail returns domain.ErrUserNotFound when no user owns email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Replace overwrites name, email and pendingTasks of the stored user.
	Replace(ctx context.Context, u *domain.User) (*domain.User, error)
	// PushPendingTask adds taskID to the user's list unless already present.
	PushPendingTask(ctx context.Context, userID, taskID string) error
	// PullPendingTask removes taskID. A missing user is not an error.
	PullPendingTask(ctx context.Context, userID, taskID string) error
	Delete(ctx context.Context, id string) error

	// Get reads a single projected document.
	Get(ctx context.Context, id string, projection bson.D) (query.Document, error)
	List(ctx context.Context, plan query.Plan) ([]query.Document, error)
	Count(ctx context.Context, filter bson.D) (int64, error)
}
