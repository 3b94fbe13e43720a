package notes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	syncsvc "inkpad/internal/services/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockNotesRepo is a mock implementation of Repository
type MockNotesRepo struct {
	mock.Mock
}

func (m *MockNotesRepo) Create(ctx context.Context, note *Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNotesRepo) List(ctx context.Context, userID bson.ObjectID, filter ListNotesRequest) ([]*Note, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Note), args.Error(1)
}

func (m *MockNotesRepo) Update(ctx context.Context, userID, noteID bson.ObjectID, patch UpdateNote) (*Note, error) {
	args := m.Called(ctx, userID, noteID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

func (m *MockNotesRepo) Delete(ctx context.Context, userID, noteID bson.ObjectID) (*Note, error) {
	args := m.Called(ctx, userID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

func (m *MockNotesRepo) FindByFilename(ctx context.Context, userID bson.ObjectID, filename string) (*Note, error) {
	args := m.Called(ctx, userID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Note), args.Error(1)
}

// MockBus is a mock implementation of Bus
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Broadcast(ctx context.Context, msg syncsvc.Message) {
	m.Called(ctx, msg)
}

// MockFiles is a mock implementation of Files
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Remove(ctx context.Context, filename string) error {
	args := m.Called(ctx, filename)
	return args.Error(0)
}

func newTestService(repo *MockNotesRepo, bus *MockBus, files *MockFiles) *Service {
	return NewService(repo, bus, files, silentLogger)
}

func TestServiceCreate(t *testing.T) {
	userID := bson.NewObjectID()

	t.Run("successful creation", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		repo.On("Create", mock.Anything, mock.AnythingOfType("*notes.Note")).Return(nil)
		bus.On("Broadcast", mock.Anything, mock.MatchedBy(func(msg syncsvc.Message) bool {
			return msg.Kind == syncsvc.KindNoteChange && msg.UserID == userID.Hex()
		})).Return()

		svc := newTestService(repo, bus, &MockFiles{})
		resp, err := svc.Create(context.Background(), userID, CreateNoteRequest{
			Title:   "Groceries",
			Content: "milk, eggs",
			Tags:    []string{"home"},
		})
		require.NoError(t, err)
		assert.Equal(t, TypeText, resp.Note.Type)
		assert.Equal(t, []string{"home"}, resp.Note.Tags)
		assert.False(t, resp.Note.IsArchived)

		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		svc := newTestService(repo, bus, &MockFiles{})
		_, err := svc.Create(context.Background(), userID, CreateNoteRequest{Title: "x", Content: "y"})
		assert.ErrorIs(t, err, ErrCreateNote)
		bus.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})
}

func TestServiceCreatePDF(t *testing.T) {
	userID := bson.NewObjectID()
	meta := PDFMeta{
		Filename:     "b1946ac9.pdf",
		OriginalName: "lecture-3.pdf",
		Path:         "uploads/b1946ac9.pdf",
		Size:         482133,
	}

	t.Run("success", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		files := &MockFiles{}
		repo.On("Create", mock.Anything, mock.MatchedBy(func(n *Note) bool {
			return n.Type == TypePDF && n.Filename == meta.Filename && n.FileSize == meta.Size
		})).Return(nil)
		bus.On("Broadcast", mock.Anything, mock.Anything).Return()

		svc := newTestService(repo, bus, files)
		resp, err := svc.CreatePDF(context.Background(), userID, meta)
		require.NoError(t, err)
		assert.Equal(t, "lecture-3.pdf", resp.Note.Title)
		files.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("insert failure removes the blob", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		files := &MockFiles{}
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
		files.On("Remove", mock.Anything, meta.Filename).Return(nil)

		svc := newTestService(repo, bus, files)
		_, err := svc.CreatePDF(context.Background(), userID, meta)
		assert.ErrorIs(t, err, ErrCreateNote)
		files.AssertExpectations(t)
		bus.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})
}

func TestServiceDelete(t *testing.T) {
	userID := bson.NewObjectID()
	noteID := bson.NewObjectID()

	t.Run("pdf delete removes backing file", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		files := &MockFiles{}
		repo.On("Delete", mock.Anything, userID, noteID).Return(&Note{
			ID:       noteID,
			UserID:   userID,
			Type:     TypePDF,
			Filename: "b1946ac9.pdf",
		}, nil)
		files.On("Remove", mock.Anything, "b1946ac9.pdf").Return(nil)
		bus.On("Broadcast", mock.Anything, mock.Anything).Return()

		svc := newTestService(repo, bus, files)
		require.NoError(t, svc.Delete(context.Background(), userID, noteID))
		files.AssertExpectations(t)
	})

	t.Run("file cleanup failure is swallowed", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		files := &MockFiles{}
		repo.On("Delete", mock.Anything, userID, noteID).Return(&Note{
			ID:       noteID,
			UserID:   userID,
			Type:     TypePDF,
			Filename: "b1946ac9.pdf",
		}, nil)
		files.On("Remove", mock.Anything, "b1946ac9.pdf").Return(errors.New("disk gone"))
		bus.On("Broadcast", mock.Anything, mock.Anything).Return()

		svc := newTestService(repo, bus, files)
		assert.NoError(t, svc.Delete(context.Background(), userID, noteID))
	})

	t.Run("text delete touches no files", func(t *testing.T) {
		repo := &MockNotesRepo{}
		bus := &MockBus{}
		files := &MockFiles{}
		repo.On("Delete", mock.Anything, userID, noteID).Return(&Note{
			ID:     noteID,
			UserID: userID,
			Type:   TypeText,
		}, nil)
		bus.On("Broadcast", mock.Anything, mock.Anything).Return()

		svc := newTestService(repo, bus, files)
		require.NoError(t, svc.Delete(context.Background(), userID, noteID))
		files.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &MockNotesRepo{}
		repo.On("Delete", mock.Anything, userID, noteID).Return(nil, ErrNoteNotFound)

		svc := newTestService(repo, &MockBus{}, &MockFiles{})
		assert.ErrorIs(t, svc.Delete(context.Background(), userID, noteID), ErrNoteNotFound)
	})
}

func TestServiceUpdate(t *testing.T) {
	userID := bson.NewObjectID()
	noteID := bson.NewObjectID()

	t.Run("success broadcasts updated snapshot", func(t *testing.T) {
		title := "Renamed"
		updated := &Note{ID: noteID, UserID: userID, Title: title, Type: TypeText}

		repo := &MockNotesRepo{}
		bus := &MockBus{}
		repo.On("Update", mock.Anything, userID, noteID, mock.AnythingOfType("notes.UpdateNote")).Return(updated, nil)
		bus.On("Broadcast", mock.Anything, mock.MatchedBy(func(msg syncsvc.Message) bool {
			return msg.Kind == syncsvc.KindNoteChange && len(msg.Snapshot) > 0
		})).Return()

		svc := newTestService(repo, bus, &MockFiles{})
		resp, err := svc.Update(context.Background(), userID, noteID, UpdateNoteRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, resp.Note.Title)
		bus.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &MockNotesRepo{}
		repo.On("Update", mock.Anything, userID, noteID, mock.Anything).Return(nil, ErrNoteNotFound)

		svc := newTestService(repo, &MockBus{}, &MockFiles{})
		_, err := svc.Update(context.Background(), userID, noteID, UpdateNoteRequest{})
		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestServiceGetPDF(t *testing.T) {
	userID := bson.NewObjectID()

	t.Run("found", func(t *testing.T) {
		repo := &MockNotesRepo{}
		want := &Note{UserID: userID, Type: TypePDF, Filename: "b1946ac9.pdf", OriginalName: "lecture-3.pdf"}
		repo.On("FindByFilename", mock.Anything, userID, "b1946ac9.pdf").Return(want, nil)

		svc := newTestService(repo, &MockBus{}, &MockFiles{})
		got, err := svc.GetPDF(context.Background(), userID, "b1946ac9.pdf")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("other user's file is indistinguishable from missing", func(t *testing.T) {
		repo := &MockNotesRepo{}
		repo.On("FindByFilename", mock.Anything, userID, "b1946ac9.pdf").Return(nil, ErrNoteNotFound)

		svc := newTestService(repo, &MockBus{}, &MockFiles{})
		_, err := svc.GetPDF(context.Background(), userID, "b1946ac9.pdf")
		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestNormalizeTags(t *testing.T) {
	assert.Nil(t, normalizeTags(nil))
	assert.Equal(t, []string{"a", "b"}, normalizeTags([]string{"a", "<i>b</i>", ""}))
}
