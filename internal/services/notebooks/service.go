package notebooks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"inkpad/internal/services/sync"
	"inkpad/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles notebook business logic
type Service struct {
	repo Repository
	bus  Bus
	log  *slog.Logger
}

// NewService creates a new notebooks service
func NewService(repo Repository, bus Bus, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
	}
}

// CreateNotebookRequest represents a notebook creation request
type CreateNotebookRequest struct {
	Name string `json:"name" validate:"required,max=100" example:"Physics"`
}

// UpdateNotebookRequest represents a notebook update request. Pages, when
// present, replace the stored sequence wholesale.
type UpdateNotebookRequest struct {
	Name  *string     `json:"name,omitempty" validate:"omitempty,min=1,max=100" example:"Physics II"`
	Pages []Page      `json:"pages,omitempty"`
	Texts []TextEntry `json:"texts,omitempty"`
}

// NotebookResponse represents a single notebook response
type NotebookResponse struct {
	Notebook *Notebook `json:"notebook"`
}

// ListNotebooksResponse represents a list of notebooks response
type ListNotebooksResponse struct {
	Notebooks []*Notebook `json:"notebooks"`
}

// Create creates a notebook with a single blank page.
func (s *Service) Create(ctx context.Context, userID bson.ObjectID, req CreateNotebookRequest) (*NotebookResponse, error) {
	now := time.Now()
	notebook := &Notebook{
		ID:           bson.NewObjectID(),
		UserID:       userID,
		Name:         sanitize.Clean(req.Name),
		Pages:        []Page{BlankPage(1)},
		LastModified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, notebook); err != nil {
		s.log.Error(ErrCreateNotebook.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrCreateNotebook
	}

	s.broadcast(ctx, notebook)

	return &NotebookResponse{Notebook: notebook}, nil
}

// List retrieves all notebooks owned by the user, most recently modified first.
func (s *Service) List(ctx context.Context, userID bson.ObjectID) (*ListNotebooksResponse, error) {
	notebooks, err := s.repo.List(ctx, userID)
	if err != nil {
		s.log.Error(ErrListNotebooks.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrListNotebooks
	}
	return &ListNotebooksResponse{Notebooks: notebooks}, nil
}

// Get retrieves a single notebook owned by the user.
func (s *Service) Get(ctx context.Context, userID, notebookID bson.ObjectID) (*NotebookResponse, error) {
	notebook, err := s.repo.Get(ctx, userID, notebookID)
	if err != nil {
		if errors.Is(err, ErrNotebookNotFound) {
			s.log.Info("notebook not found", "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
			return nil, ErrNotebookNotFound
		}
		s.log.Error("failed to get notebook", "error", err, "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
		return nil, err
	}
	return &NotebookResponse{Notebook: notebook}, nil
}

// Update applies a name and/or wholesale page replacement. Accepted
// mutations bump lastModified and are relayed to the owner's other sessions.
func (s *Service) Update(ctx context.Context, userID, notebookID bson.ObjectID, req UpdateNotebookRequest) (*NotebookResponse, error) {
	if err := validatePages(req.Pages); err != nil {
		return nil, err
	}

	patch := UpdateNotebook{
		Pages: sanitizedPages(req.Pages),
		Texts: sanitizedTexts(req.Texts),
	}
	if req.Name != nil {
		cleaned := sanitize.Clean(*req.Name)
		patch.Name = &cleaned
	}

	updated, err := s.repo.Update(ctx, userID, notebookID, patch)
	if err != nil {
		if errors.Is(err, ErrNotebookNotFound) {
			s.log.Info("notebook not found for update", "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
			return nil, ErrNotebookNotFound
		}
		s.log.Error(ErrUpdateNotebook.Error(), "error", err, "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
		return nil, ErrUpdateNotebook
	}

	s.broadcast(ctx, updated)

	return &NotebookResponse{Notebook: updated}, nil
}

// Delete removes a notebook owned by the user.
func (s *Service) Delete(ctx context.Context, userID, notebookID bson.ObjectID) error {
	if err := s.repo.Delete(ctx, userID, notebookID); err != nil {
		if errors.Is(err, ErrNotebookNotFound) {
			s.log.Info("notebook not found for delete", "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
			return ErrNotebookNotFound
		}
		s.log.Error(ErrDeleteNotebook.Error(), "error", err, "user_id", userID.Hex(), "notebook_id", notebookID.Hex())
		return ErrDeleteNotebook
	}
	return nil
}

// broadcast relays a full notebook snapshot. Relay failures are invisible
// to the caller; a marshal failure only costs the live update.
func (s *Service) broadcast(ctx context.Context, notebook *Notebook) {
	snapshot, err := json.Marshal(notebook)
	if err != nil {
		s.log.Warn("failed to marshal notebook snapshot", "error", err, "notebook_id", notebook.ID.Hex())
		return
	}

	s.bus.Broadcast(ctx, sync.Message{
		Kind:       sync.KindNotebookChange,
		UserID:     notebook.UserID.Hex(),
		NotebookID: notebook.ID.Hex(),
		Snapshot:   snapshot,
	})
}

// validatePages enforces the contiguity invariant: pageNumber i+1 at index i.
// A nil slice means "pages untouched" and is always valid.
func validatePages(pages []Page) error {
	for i, p := range pages {
		if p.PageNumber != i+1 {
			return ErrPageNumbering
		}
	}
	return nil
}

func sanitizedPages(pages []Page) []Page {
	for i := range pages {
		pages[i].Text = sanitize.Clean(pages[i].Text)
		if pages[i].Drawings == nil {
			pages[i].Drawings = []Stroke{}
		}
	}
	return pages
}

func sanitizedTexts(texts []TextEntry) []TextEntry {
	for i := range texts {
		texts[i].Text = sanitize.Clean(texts[i].Text)
	}
	return texts
}
