package main

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// Mirrors the real route layout: login is rate limited but not
// authenticated, profile is authenticated but not rate limited, and the pdf
// download route carries neither (it validates its token in the handler).
func TestRouteMiddlewareOrder(t *testing.T) {
	type stack []string

	mw := func(s *stack, id string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			*s = append(*s, id)
			return c.Next() // just record & pass through
		}
	}
	final := func(s *stack, id string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			*s = append(*s, id)
			return c.SendStatus(200) // terminate the chain with 200
		}
	}

	tests := []struct {
		method string
		path   string
		expect []string
	}{
		{fiber.MethodPost, "/api/v1/auth/login", []string{"limiter", "handler"}},
		{fiber.MethodGet, "/api/v1/auth/profile", []string{"jwt", "handler"}},
		{fiber.MethodPost, "/api/v1/notes/upload-pdf", []string{"jwt", "handler"}},
		{fiber.MethodGet, "/api/v1/notes/pdf/abc.pdf", []string{"handler"}},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			var trace stack
			app := fiber.New()

			limiterSpy := mw(&trace, "limiter")
			jwtSpy := mw(&trace, "jwt")
			handlerSpy := final(&trace, "handler")

			switch tc.path {
			case "/api/v1/auth/login":
				app.Post(tc.path, limiterSpy, handlerSpy)
			case "/api/v1/auth/profile":
				app.Get(tc.path, jwtSpy, handlerSpy)
			case "/api/v1/notes/upload-pdf":
				app.Post(tc.path, jwtSpy, handlerSpy)
			case "/api/v1/notes/pdf/abc.pdf":
				app.Get("/api/v1/notes/pdf/:filename", handlerSpy)
			}

			req := httptest.NewRequest(tc.method, tc.path, nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			assert.Equal(t, tc.expect, []string(trace),
				"middleware execution order drifted")
		})
	}
}
