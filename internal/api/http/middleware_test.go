package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestRequestTimeoutDeadlineReachesHandlers(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeoutMiddleware(5 * time.Second))

	var hasDeadline bool
	app.Get("/ping", func(c *fiber.Ctx) error {
		// handlers hand c.UserContext() to services, so the deadline
		// must live there
		_, hasDeadline = c.UserContext().Deadline()
		return c.SendStatus(fiber.StatusOK)
	})

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if !hasDeadline {
		t.Fatal("request deadline not propagated to the handler context")
	}
}
