package notes

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

// Service handles notes business logic
type Service struct {
	repo  Repository
	bus   Bus
	files Files
	log   *slog.Logger
}

// NewService creates a new notes service
func NewService(repo Repository, bus Bus, files Files, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		bus:   bus,
		files: files,
		log:   log,
	}
}

// CreateNoteRequest represents a text note creation request
type CreateNoteRequest struct {
	Title   string   `json:"title" validate:"required,max=200" example:"Meeting Notes"`
	Content string   `json:"content" validate:"required,max=10000" example:"Remember to discuss the quarterly targets"`
	Tags    []string `json:"tags" validate:"omitempty,dive,min=1,max=50"`
}

// UpdateNoteRequest represents a note update request
type UpdateNoteRequest struct {
	Title      *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content    *string  `json:"content,omitempty" validate:"omitempty,min=1,max=10000"`
	Tags       []string `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=50"`
	IsArchived *bool    `json:"isArchived,omitempty"`
}

// ListNotesRequest represents a list notes request
type ListNotesRequest struct {
	Type     string `query:"type" validate:"omitempty,oneof=text pdf" example:"text"`
	Archived string `query:"archived" validate:"omitempty,oneof=true false" example:"false"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note *Note `json:"note"`
}

// ListNotesResponse represents a list of notes response
type ListNotesResponse struct {
	Notes []*Note `json:"notes"`
}

// Create creates a new text note
func (s *Service) Create(ctx context.Context, userID bson.ObjectID, req CreateNoteRequest) (*NoteResponse, error) {
	now := time.Now()
	note := &Note{
		ID:        bson.NewObjectID(),
		UserID:    userID,
		Title:     sanitize.Clean(req.Title),
		Content:   sanitize.Clean(req.Content),
		Type:      TypeText,
		Tags:      normalizeTags(req.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrCreateNote
	}

	s.broadcast(ctx, note)

	return &NoteResponse{Note: note}, nil
}

// CreatePDF records an uploaded file that is already in the blob store.
// If the document insert fails the blob is removed again so no partial
// state survives.
func (s *Service) CreatePDF(ctx context.Context, userID bson.ObjectID, meta PDFMeta) (*NoteResponse, error) {
	now := time.Now()
	note := &Note{
		ID:           bson.NewObjectID(),
		UserID:       userID,
		Title:        sanitize.Clean(meta.OriginalName),
		Content:      "PDF file: " + sanitize.Clean(meta.OriginalName),
		Type:         TypePDF,
		Filename:     meta.Filename,
		OriginalName: meta.OriginalName,
		FilePath:     meta.Path,
		FileSize:     meta.Size,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err, "user_id", userID.Hex(), "filename", meta.Filename)
		if rmErr := s.files.Remove(ctx, meta.Filename); rmErr != nil {
			s.log.Warn("failed to remove orphaned upload", "error", rmErr, "filename", meta.Filename)
		}
		return nil, ErrCreateNote
	}

	s.broadcast(ctx, note)

	return &NoteResponse{Note: note}, nil
}

// List retrieves the user's notes, optionally filtered by type and
// archived flag, newest first.
func (s *Service) List(ctx context.Context, userID bson.ObjectID, req ListNotesRequest) (*ListNotesResponse, error) {
	notesList, err := s.repo.List(ctx, userID, req)
	if err != nil {
		s.log.Error(ErrListNotes.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrListNotes
	}
	return &ListNotesResponse{Notes: notesList}, nil
}

// Update updates the text fields of a note belonging to the user
func (s *Service) Update(ctx context.Context, userID, noteID bson.ObjectID, req UpdateNoteRequest) (*NoteResponse, error) {
	patch := UpdateNote{
		Tags:       normalizeTags(req.Tags),
		IsArchived: req.IsArchived,
	}
	if req.Title != nil {
		cleaned := sanitize.Clean(*req.Title)
		patch.Title = &cleaned
	}
	if req.Content != nil {
		cleaned := sanitize.Clean(*req.Content)
		patch.Content = &cleaned
	}

	updated, err := s.repo.Update(ctx, userID, noteID, patch)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for update", "user_id", userID.Hex(), "note_id", noteID.Hex())
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrUpdateNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, ErrUpdateNote
	}

	s.broadcast(ctx, updated)

	return &NoteResponse{Note: updated}, nil
}

// Delete deletes a note belonging to the user. For pdf notes the backing
// file is removed best-effort: the delete already succeeded, so a cleanup
// failure is logged and swallowed.
func (s *Service) Delete(ctx context.Context, userID, noteID bson.ObjectID) error {
	deleted, err := s.repo.Delete(ctx, userID, noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for delete", "user_id", userID.Hex(), "note_id", noteID.Hex())
			return ErrNoteNotFound
		}
		s.log.Error(ErrDeleteNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return ErrDeleteNote
	}

	if deleted.Type == TypePDF && deleted.Filename != "" {
		if rmErr := s.files.Remove(ctx, deleted.Filename); rmErr != nil {
			s.log.Warn("failed to delete backing file", "error", rmErr, "filename", deleted.Filename, "note_id", noteID.Hex())
		}
	}

	s.broadcast(ctx, &Note{ID: noteID, UserID: userID, Type: deleted.Type})

	return nil
}

// GetPDF resolves a pdf note by its generated filename, scoped to the owner.
func (s *Service) GetPDF(ctx context.Context, userID bson.ObjectID, filename string) (*Note, error) {
	note, err := s.repo.FindByFilename(ctx, userID, filename)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("pdf not found", "user_id", userID.Hex(), "filename", filename)
			return nil, ErrNoteNotFound
		}
		s.log.Error("failed to look up pdf", "error", err, "user_id", userID.Hex(), "filename", filename)
		return nil, err
	}
	return note, nil
}

// broadcast relays a full note snapshot to the owner's other sessions.
func (s *Service) broadcast(ctx context.Context, note *Note) {
	snapshot, err := json.Marshal(note)
	if err != nil {
		s.log.Warn("failed to marshal note snapshot", "error", err, "note_id", note.ID.Hex())
		return
	}

	s.bus.Broadcast(ctx, sync.Message{
		Kind:     sync.KindNoteChange,
		UserID:   note.UserID.Hex(),
		Snapshot: snapshot,
	})
}

// normalizeTags sanitizes each tag and never stores nil.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if cleaned := sanitize.Clean(tag); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
