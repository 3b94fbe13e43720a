package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"inkpad/cmd/server/handlers/handlerutil"
	"inkpad/cmd/server/handlers/httperr"
	"inkpad/internal/logger"
	"inkpad/internal/services/notes"
	"inkpad/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// uploadField is the multipart form field the client puts the file in.
	uploadField = "pdf"

	pdfContentType = "application/pdf"
)

// Service defines the interface for notes service
type Service interface {
	Create(ctx context.Context, userID bson.ObjectID, req notes.CreateNoteRequest) (*notes.NoteResponse, error)
	CreatePDF(ctx context.Context, userID bson.ObjectID, meta notes.PDFMeta) (*notes.NoteResponse, error)
	List(ctx context.Context, userID bson.ObjectID, req notes.ListNotesRequest) (*notes.ListNotesResponse, error)
	Update(ctx context.Context, userID, noteID bson.ObjectID, req notes.UpdateNoteRequest) (*notes.NoteResponse, error)
	Delete(ctx context.Context, userID, noteID bson.ObjectID) error
	GetPDF(ctx context.Context, userID bson.ObjectID, filename string) (*notes.Note, error)
}

// Store is the slice of the blob store the handlers need.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (int64, error)
	Open(ctx context.Context, filename string) (io.ReadSeekCloser, error)
	Path(filename string) (string, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service        Service
	store          Store
	validator      *validator.Validate
	jwtSecret      string
	maxUploadBytes int64
}

// NewHandlers creates new notes handlers. jwtSecret is needed because the
// pdf download route authenticates outside the usual Bearer middleware.
func NewHandlers(service Service, store Store, validator *validator.Validate, jwtSecret string, maxUploadBytes int64) *Handlers {
	return &Handlers{
		service:        service,
		store:          store,
		validator:      validator,
		jwtSecret:      jwtSecret,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles text note creation
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	resp, err := h.service.Create(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", userID, nil, notes.ErrNoteNotFound)
	}

	return c.Status(201).JSON(resp)
}

// List handles notes listing, optionally filtered by type and archived flag
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.ListNotesRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "List"); err != nil {
		return err
	}

	resp, err := h.service.List(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", userID, nil, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}

// Update handles note updates
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, userID, "Update", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	resp, err := h.service.Update(c.Context(), userID, noteID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}

// Delete handles note deletion
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, userID, "Delete", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	err = h.service.Delete(c.Context(), userID, noteID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Delete", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.SendStatus(204)
}

// UploadPDF accepts a multipart pdf upload, writes the blob under a
// generated name, then records the note document. The service removes the
// blob again if the insert fails.
func (h *Handlers) UploadPDF(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		logger.L().Warn("missing upload field", "handler", "UploadPDF", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.E{Status: 400, Message: "No PDF file uploaded"})
	}

	if !isPDFUpload(fileHeader.Filename, fileHeader.Header.Get(fiber.HeaderContentType)) {
		logger.L().Warn("rejected non-pdf upload", "handler", "UploadPDF", "userID", userID.Hex(), "filename", fileHeader.Filename)
		return httperr.Fail(httperr.ErrUnsupportedMedia)
	}

	if fileHeader.Size > h.maxUploadBytes {
		logger.L().Warn("rejected oversize upload", "handler", "UploadPDF", "userID", userID.Hex(), "size", fileHeader.Size)
		return httperr.Fail(httperr.ErrPayloadTooLarge)
	}

	src, err := fileHeader.Open()
	if err != nil {
		logger.L().Error("failed to open upload", "handler", "UploadPDF", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.L().Warn("failed to close upload stream", "handler", "UploadPDF", "error", closeErr)
		}
	}()

	filename := storage.GenerateName(fileHeader.Filename)
	path, err := h.store.Path(filename)
	if err != nil {
		logger.L().Error("unusable generated filename", "handler", "UploadPDF", "filename", filename, "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	written, err := h.store.Save(c.Context(), filename, src)
	if err != nil {
		logger.L().Error("failed to store upload", "handler", "UploadPDF", "userID", userID.Hex(), "filename", filename, "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	resp, err := h.service.CreatePDF(c.Context(), userID, notes.PDFMeta{
		Filename:     filename,
		OriginalName: fileHeader.Filename,
		Path:         path,
		Size:         written,
	})
	if err != nil {
		return handlerutil.HandleServiceError(err, "UploadPDF", userID, nil, notes.ErrNoteNotFound)
	}

	return c.Status(201).JSON(resp)
}

// ServePDF streams a stored pdf back to its owner. The token is accepted
// from the Authorization header or the "token" query parameter, because a
// pdf opened in a browser tab cannot send custom headers.
func (h *Handlers) ServePDF(c *fiber.Ctx) error {
	token := handlerutil.BearerOrQueryToken(c)
	if token == "" {
		return httperr.Fail(httperr.ErrUnauthorized)
	}

	userID, _, err := handlerutil.ValidateToken(token, h.jwtSecret)
	if err != nil {
		logger.L().Info("rejected pdf token", "handler", "ServePDF", "error", err)
		return httperr.Fail(httperr.ErrUnauthorized)
	}

	filename := c.Params("filename")
	note, err := h.service.GetPDF(c.Context(), userID, filename)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			return handlerutil.NotFoundError(notes.ErrNoteNotFound)
		}
		return httperr.Fail(httperr.ErrInternal)
	}

	blob, err := h.store.Open(c.Context(), note.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.L().Error("pdf note without backing file", "handler", "ServePDF", "filename", note.Filename)
			return handlerutil.NotFoundError(notes.ErrNoteNotFound)
		}
		logger.L().Error("failed to open pdf", "handler", "ServePDF", "filename", note.Filename, "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}
	// SendStream takes ownership of the reader; Fiber closes it when the
	// response is done.

	c.Set(fiber.HeaderContentType, pdfContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", note.OriginalName))
	return c.SendStream(blob, contentLength(note.FileSize))
}

// contentLength narrows a stored file size to the int SendStream expects.
// Sizes that are unknown or do not fit fall back to -1, which makes Fiber
// stream with chunked transfer encoding instead of a Content-Length.
func contentLength(size int64) int {
	if size <= 0 || size > math.MaxInt {
		return -1
	}
	return int(size)
}

// isPDFUpload checks extension and declared content type. The declared type
// is advisory but rejecting obvious mismatches catches honest mistakes.
func isPDFUpload(filename, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return false
	}
	return contentType == "" || strings.HasPrefix(contentType, pdfContentType)
}
