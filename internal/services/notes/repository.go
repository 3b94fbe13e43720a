package notes

import (
	"context"

	"inkpad/internal/services/sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for notes storage operations.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	List(ctx context.Context, userID bson.ObjectID, filter ListNotesRequest) ([]*Note, error)
	Update(ctx context.Context, userID, noteID bson.ObjectID, patch UpdateNote) (*Note, error)
	Delete(ctx context.Context, userID, noteID bson.ObjectID) (*Note, error)
	FindByFilename(ctx context.Context, userID bson.ObjectID, filename string) (*Note, error)
}

// Bus defines the interface for relaying change snapshots to the owner's
// other live sessions.
type Bus interface {
	Broadcast(ctx context.Context, msg sync.Message)
}

// Files is the slice of the blob store the service needs: removing the
// backing file of a deleted pdf note.
type Files interface {
	Remove(ctx context.Context, filename string) error
}
