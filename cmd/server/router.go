package main

import (
	"context"
	"strings"
	"time"

	"inkpad/cmd/server/handlers"
	authHandlers "inkpad/cmd/server/handlers/auth"
	notebooksHandlers "inkpad/cmd/server/handlers/notebooks"
	notesHandlers "inkpad/cmd/server/handlers/notes"
	syncHandlers "inkpad/cmd/server/handlers/sync"
	"inkpad/cmd/server/handlers/httperr"
	"inkpad/cmd/server/middlewares"
	"inkpad/internal/clients/mongo"
	"inkpad/internal/config"
	"inkpad/internal/logger"
	authServices "inkpad/internal/services/auth"
	notebooksServices "inkpad/internal/services/notebooks"
	notesServices "inkpad/internal/services/notes"
	syncServices "inkpad/internal/services/sync"
	"inkpad/internal/storage"
	"inkpad/internal/utils/crypto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {

	// Initialize validator and register password validation
	v := validator.New()
	if err := crypto.RegisterPasswordValidator(v); err != nil {
		logger.L().Error("failed to register password validator", "err", err)
		panic(err)
	}

	// Validate JWT algorithm at boot. Websocket upgrades and pdf downloads
	// verify tokens directly against the shared secret, so only HS256 works
	// end to end.
	alg := strings.ToUpper(cfg.JWTAlgorithm)
	switch alg {
	case "HS256":
		// Valid algorithm
	default:
		logger.L().Error(authServices.ErrUnsupportedJWTAlg.Error(), "algorithm", cfg.JWTAlgorithm)
		panic(authServices.ErrUnsupportedJWTAlg.Error() + ": " + cfg.JWTAlgorithm)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	app.Get("/health", handlers.Health)

	app.Static("/", "./web-ui", fiber.Static{
		Browse: false,
		Index:  "index.html",
	})

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)
	loginLimiter := middlewares.BuildRateLimiter(cfg.LoginRatePerMin, RateLimitExpiration)

	// Auth routes
	usersRepo := mongo.NewUsersRepo(mongo.DB())
	authSvc := authServices.NewService(usersRepo, cfg, logger.L())
	authH := authHandlers.NewHandlers(authSvc, v)

	authGrp := v1.Group("/auth")
	authGrp.Post("/register", authH.Register)
	authGrp.Post("/login", loginLimiter, authH.Login)
	authGrp.Get("/profile", jwtMiddleware, authH.Profile)

	// Realtime relay, shared by the REST services and the websocket stream
	hub := syncServices.NewHub(cfg.WSOutboxBuffer)
	bus := syncServices.NewBroadcaster(hub)

	// Blob store for pdf uploads
	store, err := storage.NewLocalFS(cfg.UploadDir)
	if err != nil {
		logger.L().Error("failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		panic(err)
	}

	// Notebook routes
	notebooksRepo, err := mongo.NewNotebooksRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(notebooksServices.ErrCreateNotebooksRepo.Error(), "error", err)
		panic(err)
	}
	notebooksSvc := notebooksServices.NewService(notebooksRepo, bus, logger.L())
	notebooksH := notebooksHandlers.NewHandlers(notebooksSvc, v)

	notebooksGrp := v1.Group("/notebooks", jwtMiddleware)
	notebooksGrp.Post("/", notebooksH.Create)
	notebooksGrp.Get("/", notebooksH.List)
	notebooksGrp.Get("/:id", notebooksH.Get)
	notebooksGrp.Put("/:id", notebooksH.Update)
	notebooksGrp.Delete("/:id", notebooksH.Delete)

	// Notes routes. The pdf download route authenticates inside the handler
	// (token query parameter or Bearer header), so jwt goes on each route
	// instead of the group.
	notesRepo, err := mongo.NewNotesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(notesServices.ErrCreateNotesRepo.Error(), "error", err)
		panic(err)
	}
	notesSvc := notesServices.NewService(notesRepo, bus, store, logger.L())
	notesH := notesHandlers.NewHandlers(notesSvc, store, v, cfg.JWTSecret, cfg.MaxUploadBytes)

	notesGrp := v1.Group("/notes")
	notesGrp.Post("/", jwtMiddleware, notesH.Create)
	notesGrp.Get("/", jwtMiddleware, notesH.List)
	notesGrp.Post("/upload-pdf", jwtMiddleware, notesH.UploadPDF)
	notesGrp.Get("/pdf/:filename", notesH.ServePDF)
	notesGrp.Put("/:id", jwtMiddleware, notesH.Update)
	notesGrp.Delete("/:id", jwtMiddleware, notesH.Delete)

	// WebSocket routes
	wsHandlers := syncHandlers.NewWebSocketHandlers(hub, cfg.JWTSecret, cfg.WSMaxSessionSec)
	app.Use("/ws", syncHandlers.LogWSConnections(cfg.JWTSecret))
	app.Get("/ws/sync", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSSyncStream))

	return app
}
