package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkpad/internal/logger"
	"inkpad/internal/services/notebooks"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotebooksRepo implements the notebooks.Repository interface for MongoDB
type NotebooksRepo struct {
	collection *mongo.Collection
}

// translateNotebookNotFound maps the driver ErrNoDocuments to the domain-level ErrNotebookNotFound.
func translateNotebookNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notebooks.ErrNotebookNotFound
	}
	return err
}

// NewNotebooksRepo creates a new notebooks repository
func NewNotebooksRepo(parentCtx context.Context, db *mongo.Database) (*NotebooksRepo, error) {
	collection := db.Collection("notebooks")

	indexes := []mongo.IndexModel{
		// Default listing: a user's notebooks, most recently touched first
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "last_modified", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "name", Value: 1},
			},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notebooks")
				continue
			}
			logger.L().Error("failed to create index", "collection", "notebooks", "error", err)
			return nil, fmt.Errorf("failed to create notebooks collection index: %w", err)
		}
	}

	return &NotebooksRepo{
		collection: collection,
	}, nil
}

// Create creates a new notebook in the database
func (r *NotebooksRepo) Create(ctx context.Context, notebook *notebooks.Notebook) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := time.Now()
	notebook.CreatedAt = now
	notebook.UpdatedAt = now
	notebook.LastModified = now

	_, err := r.collection.InsertOne(ctx, notebook)
	return err
}

// List retrieves the user's notebooks, most recently modified first.
func (r *NotebooksRepo) List(ctx context.Context, userID bson.ObjectID) ([]*notebooks.Notebook, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "last_modified", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	list := make([]*notebooks.Notebook, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// Get retrieves a single notebook belonging to the specified user
func (r *NotebooksRepo) Get(ctx context.Context, userID, notebookID bson.ObjectID) (*notebooks.Notebook, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":     notebookID,
		"user_id": userID,
	}

	var notebook notebooks.Notebook
	err := r.collection.FindOne(ctx, filter).Decode(&notebook)
	if err != nil {
		return nil, translateNotebookNotFound(err)
	}

	return &notebook, nil
}

// Update replaces the provided fields of a notebook belonging to the
// specified user. Every successful update advances last_modified, keeping
// it monotonically non-decreasing.
func (r *NotebooksRepo) Update(ctx context.Context, userID, notebookID bson.ObjectID, patch notebooks.UpdateNotebook) (*notebooks.Notebook, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":     notebookID,
		"user_id": userID,
	}

	now := time.Now().UTC()
	set := bson.M{
		"updated_at":    now,
		"last_modified": now,
	}

	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Pages != nil {
		set["pages"] = patch.Pages
	}
	if patch.Texts != nil {
		set["texts"] = patch.Texts
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated notebooks.Notebook
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, translateNotebookNotFound(err)
	}

	return &updated, nil
}

// Delete deletes a notebook belonging to the specified user
func (r *NotebooksRepo) Delete(ctx context.Context, userID, notebookID bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":     notebookID,
		"user_id": userID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return notebooks.ErrNotebookNotFound
	}

	return nil
}
