package auth

import (
	"context"
	"errors"

	"inkpad/cmd/server/handlers/handlerutil"
	"inkpad/cmd/server/handlers/httperr"
	"inkpad/internal/logger"
	"inkpad/internal/services/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthService defines the interface for auth service
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
	Profile(ctx context.Context, userID bson.ObjectID) (*auth.User, error)
}

// Handlers contains the auth HTTP handlers
type Handlers struct {
	authService AuthService
	validator   *validator.Validate
}

// NewHandlers creates new auth handlers
func NewHandlers(authService AuthService, validator *validator.Validate) *Handlers {
	return &Handlers{
		authService: authService,
		validator:   validator,
	}
}

// Register handles user registration. Duplicate accounts come back as a
// plain 400 with a generic message; the service already masked the cause.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse register request body", "handler", "Register", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("register request validation failed", "handler", "Register", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.Register(c.Context(), req)
	if err != nil {
		logger.L().Error("register service failed", "handler", "Register", "email", req.Email, "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.Status(201).JSON(resp)
}

// Login handles user authentication. Every failure is a 401; wrong
// password, unknown account and deactivated account are indistinguishable.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse login request body", "handler", "Login", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("login request validation failed", "handler", "Login", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.Login(c.Context(), req)
	if err != nil {
		logger.L().Info("login rejected", "handler", "Login", "email", req.Email, "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// Profile returns the authenticated user's account document.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			logger.L().Info("profile for unknown user", "handler", "Profile", "userID", userID.Hex())
			return handlerutil.NotFoundError(auth.ErrUserNotFound)
		}
		logger.L().Error("profile service failed", "handler", "Profile", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	return c.JSON(fiber.Map{"user": user})
}
