package notebooks

import (
	"context"

	"inkpad/internal/services/sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for notebook storage operations.
// All reads and writes are scoped to the owning user; a notebook owned by
// somebody else is indistinguishable from a missing one.
type Repository interface {
	Create(ctx context.Context, n *Notebook) error
	List(ctx context.Context, userID bson.ObjectID) ([]*Notebook, error)
	Get(ctx context.Context, userID, notebookID bson.ObjectID) (*Notebook, error)
	Update(ctx context.Context, userID, notebookID bson.ObjectID, patch UpdateNotebook) (*Notebook, error)
	Delete(ctx context.Context, userID, notebookID bson.ObjectID) error
}

// Bus defines the interface for relaying change snapshots to the owner's
// other live sessions.
type Bus interface {
	Broadcast(ctx context.Context, msg sync.Message)
}
