package ports

import "context"

// TxRunner executes fn as one unit. Implementations without transactional
// support simply call fn, leaving earlier steps applied if a later one fails.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdempotencyStore remembers which entity a client-supplied key created.
type IdempotencyStore interface {
	// Lookup returns the id recorded for key, or "" when none is recorded.
	Lookup(ctx context.Context, scope, key string) (string, error)
	Remember(ctx context.Context, scope, key, id string) error
}
