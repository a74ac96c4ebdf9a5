package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/municipal-service/internal/config"
	"github.com/spec-kit/municipal-service/internal/events"
)

// NotificationService emits notifications for domain events. Delivery
// channels (SMS, WhatsApp, webhooks) are stubbed; the real dispatchers are
// external collaborators.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleIssueStatusChanged)
	n.dispatcher.Subscribe(events.EventIssueAssigned, n.handleIssueAssigned)
	n.dispatcher.Subscribe(events.EventIssueEscalated, n.handleIssueEscalated)
	n.dispatcher.Subscribe(events.EventPaymentReceived, n.handlePaymentReceived)
}

func (n *NotificationService) handleIssueCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueCreated", zap.Int64("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendSMSStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIssueStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueStatusChanged", zap.Int64("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendSMSStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIssueAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueAssigned", zap.Int64("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIssueEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueEscalated", zap.Int64("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePaymentReceived(ctx context.Context, event events.Event) error {
	n.logger.Info("PaymentReceived", zap.Any("payload", event.Payload))
	n.sendSMSStub(ctx, event)
	return nil
}

func (n *NotificationService) sendSMSStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.SMSFrom) == "" {
		return
	}
	n.logger.Debug("sendSMSStub",
		zap.String("from", n.cfg.SMSFrom),
		zap.Int64("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}
