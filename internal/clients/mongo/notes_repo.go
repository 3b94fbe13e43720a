package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkpad/internal/logger"
	"inkpad/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotesRepo implements the notes.Repository interface for MongoDB
type NotesRepo struct {
	collection *mongo.Collection
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}

// translateNoteNotFound maps the driver ErrNoDocuments to the domain-level ErrNoteNotFound.
func translateNoteNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates a new notes repository
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		// Default listing: a user's notes newest first
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		// Type filter
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "type", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		// Serving uploads by generated filename
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "filename", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "tags", Value: 1}},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notes")
				continue
			}
			logger.L().Error("failed to create index", "collection", "notes", "error", err)
			return nil, fmt.Errorf("failed to create notes collection index: %w", err)
		}
	}

	return &NotesRepo{
		collection: collection,
	}, nil
}

// Create creates a new note in the database
func (r *NotesRepo) Create(ctx context.Context, note *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, note)
	return err
}

// List retrieves the user's notes, optionally filtered by type and
// archived state, newest first.
func (r *NotesRepo) List(ctx context.Context, userID bson.ObjectID, req notes.ListNotesRequest) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := buildNotesFilter(userID, req)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	notesList := make([]*notes.Note, 0)
	if err := cursor.All(ctx, &notesList); err != nil {
		return nil, err
	}

	return notesList, nil
}

// buildNotesFilter constructs the MongoDB filter for the List query
func buildNotesFilter(userID bson.ObjectID, req notes.ListNotesRequest) bson.M {
	filter := bson.M{"user_id": userID}

	if req.Type != "" {
		filter["type"] = req.Type
	}

	switch req.Archived {
	case "true":
		filter["is_archived"] = true
	case "false":
		// Documents written before the archived flag existed count as active.
		filter["$or"] = bson.A{
			bson.M{"is_archived": false},
			bson.M{"is_archived": ExistsFalse},
		}
	}

	return filter
}

// Update updates a note belonging to the specified user
func (r *NotesRepo) Update(ctx context.Context, userID, noteID bson.ObjectID, patch notes.UpdateNote) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":     noteID,
		"user_id": userID,
	}

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}

	// Only update fields that are provided
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.IsArchived != nil {
		set["is_archived"] = *patch.IsArchived
	}

	// Skip the write when only updated_at would change
	if len(set) == 1 {
		var existingNote notes.Note
		err := r.collection.FindOne(ctx, filter).Decode(&existingNote)
		if err != nil {
			return nil, translateNoteNotFound(err)
		}
		return &existingNote, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updatedNote notes.Note
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updatedNote)
	if err != nil {
		return nil, translateNoteNotFound(err)
	}

	return &updatedNote, nil
}

// Delete deletes a note belonging to the specified user and returns the
// deleted document so the caller can clean up any backing file.
func (r *NotesRepo) Delete(ctx context.Context, userID, noteID bson.ObjectID) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":     noteID,
		"user_id": userID,
	}

	var deleted notes.Note
	err := r.collection.FindOneAndDelete(ctx, filter).Decode(&deleted)
	if err != nil {
		return nil, translateNoteNotFound(err)
	}

	return &deleted, nil
}

// FindByFilename resolves a pdf note by its generated filename, scoped to
// the owning user.
func (r *NotesRepo) FindByFilename(ctx context.Context, userID bson.ObjectID, filename string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"user_id":  userID,
		"filename": filename,
	}

	var note notes.Note
	err := r.collection.FindOne(ctx, filter).Decode(&note)
	if err != nil {
		return nil, translateNoteNotFound(err)
	}

	return &note, nil
}
