package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
)

// NotificationService fans domain events out to recipient inboxes.
// Everything here is best-effort: failures are logged and never
// propagate back into the workflow.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	users         repository.UserRepository
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	dispatcher events.Dispatcher,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		users:         users,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCaseCreated, n.handleTransition)
	n.dispatcher.Subscribe(events.EventCaseAssigned, n.handleTransition)
	n.dispatcher.Subscribe(events.EventCaseUnassigned, n.handleTransition)
	n.dispatcher.Subscribe(events.EventCaseEscalated, n.handleTransition)
	n.dispatcher.Subscribe(events.EventCaseStateChanged, n.handleTransition)
	n.dispatcher.Subscribe(events.EventCaseCommented, n.handleTransition)
}

func (n *NotificationService) handleTransition(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TransitionPayload)
	if !ok {
		n.logger.Warn("notification event with unexpected payload",
			zap.String("event_type", string(event.Type)),
			zap.Int64("case_id", event.CaseID))
		return nil
	}

	seen := make(map[int64]struct{}, len(payload.RecipientIDs))
	for _, recipientID := range payload.RecipientIDs {
		if _, dup := seen[recipientID]; dup {
			continue
		}
		seen[recipientID] = struct{}{}
		n.deliver(ctx, event, payload, recipientID)
	}

	n.sendEmailStub(event, payload)
	n.sendWebhookStub(event, payload)
	return nil
}

// deliver writes one inbox row. Recipients who no longer hold any
// capability are skipped rather than notified about cases they cannot
// open.
func (n *NotificationService) deliver(ctx context.Context, event events.Event, payload events.TransitionPayload, recipientID int64) {
	recipient, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed",
			zap.Int64("user_id", recipientID),
			zap.Int64("case_id", event.CaseID),
			zap.Error(err))
		return
	}
	if !recipient.Permissions.HasAny() {
		n.logger.Debug("notification skipped, recipient has no capabilities",
			zap.Int64("user_id", recipientID),
			zap.Int64("case_id", event.CaseID))
		return
	}

	notification := &domain.Notification{
		UserID:   recipientID,
		Message:  payload.Message,
		CaseKind: event.Kind,
		CaseID:   event.CaseID,
		Action:   payload.Action,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("notification write failed",
			zap.Int64("user_id", recipientID),
			zap.Int64("case_id", event.CaseID),
			zap.Error(err))
	}
}

func (n *NotificationService) sendEmailStub(event events.Event, payload events.TransitionPayload) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("case_id", event.CaseID),
		zap.String("event_type", string(event.Type)),
		zap.Int("recipients", len(payload.RecipientIDs)))
}

func (n *NotificationService) sendWebhookStub(event events.Event, payload events.TransitionPayload) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("case_id", event.CaseID),
		zap.String("event_type", string(event.Type)))
}

// Inbox returns a page of the user's notifications, newest first.
func (n *NotificationService) Inbox(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return n.notifications.ListByUser(ctx, userID, limit, offset)
}

// MarkRead flags one of the user's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return n.notifications.MarkRead(ctx, userID, id)
}
