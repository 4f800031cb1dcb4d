package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/events"
	"github.com/spec-kit/semillero-service/internal/repository"
)

// AuditService records workflow events in the log and the audit trail.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.HandoffAuditRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, repo repository.HandoffAuditRepository, logger *zap.Logger) *AuditService {
	if repo == nil {
		repo = repository.NewHandoffAuditRepository(nil)
	}
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSubmitted, a.handleVerification)
	a.dispatcher.Subscribe(events.EventCodeVerified, a.handleVerification)
	a.dispatcher.Subscribe(events.EventCodeRejected, a.handleVerification)
	a.dispatcher.Subscribe(events.EventPaymentHandedOff, a.handleHandoff)
	a.dispatcher.Subscribe(events.EventPaymentFailed, a.handleHandoff)
	a.dispatcher.Subscribe(events.EventEnrollmentDispatched, a.handleHandoff)
	a.dispatcher.Subscribe(events.EventEnrollmentFailed, a.handleHandoff)
}

// History lists the recorded events of a session, newest first.
func (a *AuditService) History(ctx context.Context, sessionID string, limit int) ([]repository.HandoffAudit, error) {
	return a.repo.ListBySession(ctx, sessionID, limit)
}

func (a *AuditService) handleVerification(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleHandoff(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	return a.repo.Append(ctx, &repository.HandoffAudit{
		EventID:   event.ID,
		EventType: string(event.Type),
		SessionID: event.SessionID,
		Payload:   payload,
	})
}
