package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/service"
)

func TestParseListParamsQueryNames(t *testing.T) {
	app := fiber.New()
	var got service.ListParams
	app.Get("/cases", func(c *fiber.Ctx) error {
		got = parseListParams(c, false)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/cases?date_from=2026-03-01&date_to=2026-03-31&assigned_user_id=7&per_page=25", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request: %v", err)
	}

	if got.DateFrom != "2026-03-01" || got.DateTo != "2026-03-31" {
		t.Fatalf("date range not parsed: %q %q", got.DateFrom, got.DateTo)
	}
	if got.AssignedUserID == nil || *got.AssignedUserID != 7 {
		t.Fatalf("assigned_user_id not parsed: %v", got.AssignedUserID)
	}
	if got.PerPage != 25 {
		t.Fatalf("per_page not parsed: %d", got.PerPage)
	}
}

func TestParseListParamsAssignedToKeywords(t *testing.T) {
	app := fiber.New()
	var got service.ListParams
	app.Get("/cases", func(c *fiber.Ctx) error {
		got = parseListParams(c, false)
		return c.SendStatus(fiber.StatusNoContent)
	})

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cases?assigned_to=unassigned", nil)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if got.AssignedTo != "unassigned" || got.AssignedUserID != nil {
		t.Fatalf("keyword filter mismatch: %+v", got)
	}

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cases?assigned_to=9", nil)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if got.AssignedUserID == nil || *got.AssignedUserID != 9 {
		t.Fatalf("numeric assigned_to mismatch: %v", got.AssignedUserID)
	}
}

func TestAssignRequestBodyField(t *testing.T) {
	app := fiber.New()
	var got dto.AssignRequest
	app.Post("/assign", func(c *fiber.Ctx) error {
		if err := c.BodyParser(&got); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/assign", strings.NewReader(`{"assigned_user_id":9}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request: %v", err)
	}
	if got.AssignedUserID != 9 {
		t.Fatalf("assigned_user_id not bound: %d", got.AssignedUserID)
	}
}
