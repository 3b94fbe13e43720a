// Package ctxkeys centralizes the fiber.Ctx.Locals keys shared between
// middlewares and handlers so the two sides cannot drift apart.
package ctxkeys

const (
	// UserIDKey holds the authenticated user's id (hex ObjectID string).
	UserIDKey = "userID"
	// UserEmailKey holds the authenticated user's email.
	UserEmailKey = "userEmail"
	// ParentCtxKey carries the request-bound context.Context across the
	// websocket upgrade, where fiber.Ctx is no longer available.
	ParentCtxKey = "parentCtx"
)
