package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
)

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", 25)
	offset := queryInt(c, "offset", 0)
	notifications, err := h.service.Inbox(c.UserContext(), actor.ID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, notificationResponse(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.UserContext(), actor.ID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		CaseKind:  n.CaseKind,
		CaseID:    n.CaseID,
		Action:    n.Action,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
