package notebooks

import (
	"context"
	"errors"

	"inkpad/cmd/server/handlers/handlerutil"
	"inkpad/cmd/server/handlers/httperr"
	"inkpad/internal/services/notebooks"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service defines the interface for notebooks service
type Service interface {
	Create(ctx context.Context, userID bson.ObjectID, req notebooks.CreateNotebookRequest) (*notebooks.NotebookResponse, error)
	List(ctx context.Context, userID bson.ObjectID) (*notebooks.ListNotebooksResponse, error)
	Get(ctx context.Context, userID, notebookID bson.ObjectID) (*notebooks.NotebookResponse, error)
	Update(ctx context.Context, userID, notebookID bson.ObjectID, req notebooks.UpdateNotebookRequest) (*notebooks.NotebookResponse, error)
	Delete(ctx context.Context, userID, notebookID bson.ObjectID) error
}

// Handlers contains the notebooks HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new notebooks handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// Create handles notebook creation. The new notebook starts with one blank
// page.
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notebooks.CreateNotebookRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	resp, err := h.service.Create(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", userID, nil, notebooks.ErrNotebookNotFound)
	}

	return c.Status(201).JSON(resp)
}

// List handles listing the user's notebooks, most recently modified first.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	resp, err := h.service.List(c.Context(), userID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", userID, nil, notebooks.ErrNotebookNotFound)
	}

	return c.JSON(resp)
}

// Get handles fetching a single notebook with all its pages.
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	notebookID, err := handlerutil.ExtractObjectID(c, userID, "Get", notebooks.ErrNotebookNotFound)
	if err != nil {
		return err
	}

	resp, err := h.service.Get(c.Context(), userID, notebookID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Get", userID, &notebookID, notebooks.ErrNotebookNotFound)
	}

	return c.JSON(resp)
}

// Update handles renaming and wholesale page replacement.
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	notebookID, err := handlerutil.ExtractObjectID(c, userID, "Update", notebooks.ErrNotebookNotFound)
	if err != nil {
		return err
	}

	var req notebooks.UpdateNotebookRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	resp, err := h.service.Update(c.Context(), userID, notebookID, req)
	if err != nil {
		if errors.Is(err, notebooks.ErrPageNumbering) {
			return httperr.InvalidInput(err)
		}
		return handlerutil.HandleServiceError(err, "Update", userID, &notebookID, notebooks.ErrNotebookNotFound)
	}

	return c.JSON(resp)
}

// Delete handles notebook deletion
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	notebookID, err := handlerutil.ExtractObjectID(c, userID, "Delete", notebooks.ErrNotebookNotFound)
	if err != nil {
		return err
	}

	err = h.service.Delete(c.Context(), userID, notebookID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Delete", userID, &notebookID, notebooks.ErrNotebookNotFound)
	}

	return c.SendStatus(204)
}
